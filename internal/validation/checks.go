package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/spec"
)

// Checklist entries, in the order they run.
const (
	CheckConstruction          = "construction_feasibility"
	CheckUnits                 = "unit_consistency"
	CheckDegreesOfFreedom      = "degrees_of_freedom"
	CheckParameterCompleteness = "parameter_completeness"
	CheckEquilibriumTriad      = "equilibrium_triad"
)

// Checklist is the fixed, ordered list of mandatory checks.
var Checklist = []string{
	CheckConstruction,
	CheckUnits,
	CheckDegreesOfFreedom,
	CheckParameterCompleteness,
	CheckEquilibriumTriad,
}

// checkReasons maps each terminal check to its blocked reason.
var checkReasons = map[string]Reason{
	CheckConstruction:     ReasonConstructionInfeasible,
	CheckUnits:            ReasonUnitInconsistent,
	CheckDegreesOfFreedom: ReasonDegreesOfFreedomMismatch,
	CheckEquilibriumTriad: ReasonEquilibriumTriadInconsistent,
}

// repairable reports whether a failing check can be fixed by re-mapping
// with an expanded parameter search.
func repairable(check string) bool {
	return check == CheckParameterCompleteness
}

// --- Check status enum ---

// CheckStatus is the outcome of one check.
type CheckStatus string

const (
	CheckPass    CheckStatus = "pass"
	CheckFail    CheckStatus = "fail"
	CheckBlocked CheckStatus = "blocked"
)

// Result is one checklist entry.
type Result struct {
	Check  string      `json:"check_name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail"`
	// Items lists every unresolved item behind a failure.
	Items []string `json:"items,omitempty"`
}

type checkInput struct {
	spec     *spec.Specification
	approach spec.Approach
	form     spec.EquilibriumForm
	mapping  *mapper.Result
}

func pass(check, detail string) Result {
	return Result{Check: check, Status: CheckPass, Detail: detail}
}

func fail(check string, items []string, format string, args ...any) Result {
	return Result{Check: check, Status: CheckFail, Detail: fmt.Sprintf(format, args...), Items: items}
}

// runChecklist runs every check in order. Each check runs even when an
// earlier one failed, so a blocked report lists every problem at once.
func (o *Orchestrator) runChecklist(in checkInput) []Result {
	return []Result{
		o.checkConstruction(in),
		checkUnits(in),
		checkDegreesOfFreedom(in.spec),
		checkParameters(in),
		o.checkEquilibriumTriad(in),
	}
}

func (o *Orchestrator) checkConstruction(in checkInput) Result {
	var items []string
	for _, p := range in.mapping.Unbound {
		items = append(items, "no method bound for "+p)
	}
	for _, ph := range in.spec.Phases {
		if _, ok := in.spec.EosByPhase[ph.ID]; !ok {
			items = append(items, "no EOS for phase "+ph.ID)
		}
	}
	plan := catalog.BuildFilePlan(in.spec, in.approach)
	for _, term := range catalog.MissingPlanTerms(plan, in.approach) {
		items = append(items, "file plan does not cover "+term)
	}
	if len(items) > 0 {
		return fail(CheckConstruction, items, "%d construction problem(s)", len(items))
	}
	return pass(CheckConstruction, fmt.Sprintf("%d properties bound; %s plan covers its required terms",
		len(in.mapping.Bindings), in.approach))
}

func checkUnits(in checkInput) Result {
	var items []string
	for _, dim := range catalog.BaseDimensions {
		unit, ok := in.spec.BaseUnits[dim]
		if !ok || unit == "" {
			items = append(items, "no base unit for "+dim)
			continue
		}
		if allowed := catalog.AllowedBaseUnits(dim); !slices.Contains(allowed, unit) {
			items = append(items, fmt.Sprintf("base unit %s=%s not in {%s}", dim, unit, strings.Join(allowed, ", ")))
		}
	}
	for _, row := range in.mapping.Matrix {
		if row.Status != mapper.ParamPresent {
			continue
		}
		allowed, constrained := catalog.AllowedUnits(row.Key.Name)
		if constrained && !slices.Contains(allowed, row.Unit) {
			items = append(items, fmt.Sprintf("%s has unit %q, allowed {%s}", row.Key, row.Unit, strings.Join(allowed, ", ")))
		}
	}
	if len(items) > 0 {
		return fail(CheckUnits, items, "%d unit problem(s)", len(items))
	}
	return pass(CheckUnits, "base units and parameter units are consistent")
}

// checkDegreesOfFreedom compares the phase split the state variables
// leave open with the constraints the equilibrium pairs impose.
//
// With a total-flow state definition and P phases, the P-1 independent
// phase fractions must each be fixed by an independent equilibrium pair.
// A phase-flow definition carries the split in its state, so pairs are
// optional but there can be at most P-1 independent ones. A pair that
// closes a cycle is redundant and over-constrains in either case.
func checkDegreesOfFreedom(s *spec.Specification) Result {
	vars := catalog.StateVars(s.StateDefinition)
	if s.StateDefinition == spec.StateCustom {
		return pass(CheckDegreesOfFreedom, "custom state definition; the class-based package declares its own state variables")
	}

	var pairs []spec.PhasePair
	if s.Equilibrium.Required {
		pairs = s.Equilibrium.Pairs
	}
	independent, cycles := countIndependent(s.PhaseIDs(), pairs)
	p := len(s.Phases)
	open := p - 1

	var items []string
	for _, c := range cycles {
		items = append(items, fmt.Sprintf("pair %s is redundant and over-constrains the phase split", c))
	}
	if !s.StateDefinition.IsPhaseFlow() && independent != open {
		items = append(items, fmt.Sprintf("%s with %d phase(s) leaves %d phase fraction(s) open but %d independent equilibrium pair(s) constrain them",
			s.StateDefinition, p, open, independent))
	}
	if len(items) > 0 {
		return fail(CheckDegreesOfFreedom, items, "%d state variable(s) and %d phase(s) do not balance", len(vars), p)
	}
	return pass(CheckDegreesOfFreedom, fmt.Sprintf("%d state variable(s), %d phase(s), %d equilibrium constraint(s)", len(vars), p, independent))
}

// countIndependent counts pairs that join two previously unconnected
// phases and returns the rest as cycles.
func countIndependent(phases []string, pairs []spec.PhasePair) (int, []spec.PhasePair) {
	parent := make(map[string]string, len(phases))
	for _, p := range phases {
		parent[p] = p
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	n := 0
	var cycles []spec.PhasePair
	for _, pair := range pairs {
		a, b := find(pair.First), find(pair.Second)
		if a == b {
			cycles = append(cycles, pair)
			continue
		}
		parent[a] = b
		n++
	}
	return n, cycles
}

func checkParameters(in checkInput) Result {
	gaps := in.mapping.Gaps()
	if len(gaps) == 0 {
		return pass(CheckParameterCompleteness, fmt.Sprintf("%d parameter key(s) present", len(in.mapping.Matrix)))
	}
	items := make([]string, len(gaps))
	for i, g := range gaps {
		items[i] = fmt.Sprintf("%s (%s)", g.Key, g.Status)
	}
	return fail(CheckParameterCompleteness, items, "%d of %d parameter key(s) not present", len(gaps), len(in.mapping.Matrix))
}

func (o *Orchestrator) checkEquilibriumTriad(in checkInput) Result {
	s := in.spec
	if !s.Equilibrium.Required {
		return pass(CheckEquilibriumTriad, "phase equilibrium not required")
	}

	var items []string
	if in.form == spec.FormAuto {
		items = append(items, "no equilibrium form selected")
	}
	for _, prop := range catalog.EquilibriumTriad {
		b, ok := in.mapping.Binding(prop)
		if !ok {
			items = append(items, "no method bound for "+prop)
			continue
		}
		meth, ok := o.catalog.Method(b.MethodID)
		if !ok {
			items = append(items, fmt.Sprintf("%s bound to unknown method %s", prop, b.MethodID))
			continue
		}
		if prop == catalog.PropPhaseEquilibriumForm && meth.Form != in.form {
			items = append(items, fmt.Sprintf("%s method %s uses %s, selected form is %s", prop, meth.ID, meth.Form, in.form))
		}
		for _, pair := range s.Equilibrium.Pairs {
			for _, ph := range []string{pair.First, pair.Second} {
				eos := s.EosByPhase[ph]
				if !meth.SupportsFamily(eos.Family()) && meth.ID != catalog.CustomCorrelationMethod {
					items = append(items, fmt.Sprintf("%s method %s does not support %s on phase %s of pair %s", prop, meth.ID, eos, ph, pair))
				}
				if in.form != spec.FormAuto && !catalog.FormCompatible(eos.Family(), in.form) {
					items = append(items, fmt.Sprintf("form %s is incompatible with %s on phase %s of pair %s", in.form, eos, ph, pair))
				}
			}
		}
	}
	if len(items) > 0 {
		return fail(CheckEquilibriumTriad, dedupe(items), "equilibrium triad is inconsistent")
	}
	return pass(CheckEquilibriumTriad, fmt.Sprintf("%s form with %d pair(s)", in.form, len(s.Equilibrium.Pairs)))
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
