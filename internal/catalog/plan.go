package catalog

import (
	"strings"

	"github.com/HendryAvila/propgate/internal/spec"
)

// Plan terms every design plan must cover, and the approach-specific ones.
var (
	commonPlanTerms     = []string{"approach", "state", "component", "phase", "initialization", "scaling", "validation", "assumption"}
	genericPlanTerms    = []string{"configuration", "state_definition", "state_bounds", "pressure_ref", "temperature_ref"}
	classBasedPlanTerms = []string{"physicalparameterblock", "stateblockdata", "initialize", "release_state", "define_metadata"}
)

// ClassContract is the minimum set of methods a class-based state block
// must implement.
var ClassContract = []string{
	"get_material_flow_terms",
	"get_enthalpy_flow_terms",
	"get_material_density_terms",
	"get_energy_density_terms",
	"default_material_balance_type",
	"default_energy_balance_type",
	"get_material_flow_basis",
	"define_state_vars",
	"define_display_vars",
	"initialize",
	"release_state",
}

var genericChecklist = []string{
	"Approach rationale documented as Generic.",
	"Components and phases defined with required methods.",
	"State definition and bounds documented.",
	"Reference state defined.",
	"Phase equilibrium configuration documented where needed.",
	"Initialization path documented.",
	"Scaling plan documented.",
	"Validation matrix documented.",
	"Source traceability table complete.",
}

var classBasedChecklist = []string{
	"Approach rationale documented as class-based.",
	"Parameter block responsibilities documented.",
	"StateBlock methods class responsibilities documented.",
	"StateBlockData required methods documented.",
	"State variable definitions documented.",
	"Initialization and release-state logic documented.",
	"Scaling strategy documented.",
	"Validation matrix documented.",
	"Source traceability table complete.",
}

// PlannedFile is one artifact the code generator is expected to produce.
type PlannedFile struct {
	Path     string   `json:"path"`
	Purpose  string   `json:"purpose"`
	Sections []string `json:"sections"`
}

// FilePlan is the artifact layout handed to code generation.
type FilePlan struct {
	Files     []PlannedFile `json:"files"`
	Checklist []string      `json:"checklist"`
}

// RequiredPlanTerms returns the terms a plan for approach must mention.
func RequiredPlanTerms(approach spec.Approach) []string {
	terms := append([]string(nil), commonPlanTerms...)
	if approach == spec.ApproachClassBased {
		return append(terms, classBasedPlanTerms...)
	}
	return append(terms, genericPlanTerms...)
}

// MissingPlanTerms returns the required terms absent from the plan's
// sections, in requirement order.
func MissingPlanTerms(plan FilePlan, approach spec.Approach) []string {
	var b strings.Builder
	for _, f := range plan.Files {
		for _, sec := range f.Sections {
			b.WriteString(strings.ToLower(sec))
			b.WriteByte('\n')
		}
	}
	text := b.String()

	var missing []string
	for _, term := range RequiredPlanTerms(approach) {
		if !strings.Contains(text, term) {
			missing = append(missing, term)
		}
	}
	return missing
}

// BuildFilePlan lays out the package module and its test module for the
// chosen approach.
func BuildFilePlan(s *spec.Specification, approach spec.Approach) FilePlan {
	name := s.Name
	common := []string{
		"approach: " + string(approach),
		"state: " + string(s.StateDefinition) + " state variables " + strings.Join(StateVars(s.StateDefinition), ", "),
		"component list: " + strings.Join(s.ComponentIDs(), ", "),
		"phase list: " + strings.Join(s.PhaseIDs(), ", "),
		"assumption register",
		"scaling factors for state variables",
	}

	var pkg PlannedFile
	var checklist []string
	if approach == spec.ApproachClassBased {
		sections := append([]string{}, common...)
		sections = append(sections,
			"PhysicalParameterBlock: components, phases, parameters, define_metadata",
			"StateBlock methods class: initialize, release_state",
			"StateBlockData: "+strings.Join(ClassContract, ", "),
		)
		pkg = PlannedFile{Path: name + ".py", Purpose: "class-based property package", Sections: sections}
		checklist = append([]string(nil), classBasedChecklist...)
	} else {
		sections := append([]string{}, common...)
		sections = append(sections,
			"configuration dictionary",
			"state_definition: "+string(s.StateDefinition),
			"state_bounds for flow, temperature and pressure",
			"pressure_ref and temperature_ref reference state",
			"base_units",
		)
		if s.Equilibrium.Required {
			sections = append(sections, "phases_in_equilibrium, phase_equilibrium_state, bubble_dew_method")
		}
		pkg = PlannedFile{Path: name + ".py", Purpose: "generic property package configuration", Sections: sections}
		checklist = append([]string(nil), genericChecklist...)
	}

	test := PlannedFile{
		Path:    "test_" + name + ".py",
		Purpose: "construction, initialization and validation tests",
		Sections: []string{
			"build and initialization test",
			"degrees of freedom check",
			"validation against reference data",
		},
	}
	return FilePlan{Files: []PlannedFile{pkg, test}, Checklist: checklist}
}
