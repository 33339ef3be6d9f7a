package pipeline

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/coverage"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/spec"
	"github.com/HendryAvila/propgate/internal/validation"
)

// BuildPlan is the hand-off to code generation. It is only produced by a
// run that reached Ready.
type BuildPlan struct {
	RunID                     string               `json:"run_id"`
	Approach                  spec.Approach        `json:"approach"`
	EquilibriumForm           spec.EquilibriumForm `json:"equilibrium_form,omitempty"`
	ReferenceExample          string               `json:"reference_example,omitempty"`
	CoverageTable             *coverage.Table      `json:"coverage_table"`
	MethodBindings            []mapper.Binding     `json:"method_bindings"`
	ParameterGaps             []mapper.MatrixRow   `json:"parameter_gaps"`
	FilePlan                  catalog.FilePlan     `json:"file_plan"`
	InitializationPlan        []InitStep           `json:"initialization_plan"`
	ValidationChecklistResult []validation.Result  `json:"validation_checklist_result"`
}

// InitStep is one ordered step of the package initialization routine.
type InitStep struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// BuildPlanFor assembles the plan of a Ready outcome.
func BuildPlanFor(runID string, s *spec.Specification, out *validation.Outcome) (*BuildPlan, error) {
	if !out.Ready() {
		return nil, fmt.Errorf("run %s is %s, not Ready: %w", runID, out.State, out.Err())
	}
	approach := out.Selection.Approach
	gaps := out.Mapping.Gaps()
	if gaps == nil {
		gaps = []mapper.MatrixRow{}
	}
	return &BuildPlan{
		RunID:                     runID,
		Approach:                  approach,
		EquilibriumForm:           out.Form,
		ReferenceExample:          out.Mapping.Reference,
		CoverageTable:             out.Coverage,
		MethodBindings:            out.Mapping.Bindings,
		ParameterGaps:             gaps,
		FilePlan:                  catalog.BuildFilePlan(s, approach),
		InitializationPlan:        initializationPlan(s, approach),
		ValidationChecklistResult: out.Checks,
	}, nil
}

// initializationPlan lays out how the state block is brought to a solved
// point: fix state, seed the phase split, solve, then release.
func initializationPlan(s *spec.Specification, approach spec.Approach) []InitStep {
	var steps []InitStep
	add := func(action, format string, args ...any) {
		steps = append(steps, InitStep{Step: len(steps) + 1, Action: action, Detail: fmt.Sprintf(format, args...)})
	}

	if s.StateDefinition != spec.StateCustom {
		add("fix_state", "fix %s inside state_bounds", strings.Join(catalog.StateVars(s.StateDefinition), ", "))
	} else {
		add("fix_state", "fix the state variables declared by define_state_vars")
	}

	if s.Equilibrium.Required {
		pairs := make([]string, len(s.Equilibrium.Pairs))
		for i, p := range s.Equilibrium.Pairs {
			pairs[i] = p.String()
		}
		add("seed_phase_split", "estimate bubble and dew temperatures for %s and seed phase fractions from them", strings.Join(pairs, ", "))
	} else if s.IsMultiphase() {
		add("seed_phase_split", "phase fractions come from the specified state; no equilibrium seed")
	}

	if approach == spec.ApproachClassBased {
		add("initialize", "StateBlock methods class initialize(): deactivate equilibrium constraints, solve, reactivate")
	} else {
		add("initialize", "generic state block initialize() with the configured bubble_dew_method")
	}
	add("check_dof", "degrees of freedom must be zero before solving")
	add("solve", "solve the state block and confirm an optimal termination condition")
	add("release_state", "unfix the state variables fixed in step 1")
	return steps
}
