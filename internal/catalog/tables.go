package catalog

import "github.com/HendryAvila/propgate/internal/spec"

// StateDefinitionMethod is the id of the method that supplies the state
// variables and the phase split.
const StateDefinitionMethod = "state_definition"

// Equilibrium triad members.
const (
	PropPhaseEquilibriumForm  = "phase_equilibrium_form"
	PropPhasesInEquilibrium   = "phases_in_equilibrium"
	PropPhaseEquilibriumState = "phase_equilibrium_state"
)

// EquilibriumTriad lists the three configuration entries every
// equilibrium-bearing package needs.
var EquilibriumTriad = []string{
	PropPhaseEquilibriumForm,
	PropPhasesInEquilibrium,
	PropPhaseEquilibriumState,
}

var stateVars = map[spec.StateDefinition][]string{
	spec.StateFTPx:  {"flow_mol", "temperature", "pressure", "mole_frac_comp"},
	spec.StateFpcTP: {"flow_mol_phase_comp", "temperature", "pressure"},
	spec.StateFcTP:  {"flow_mol_comp", "temperature", "pressure"},
	spec.StateFPhx:  {"flow_mol", "temperature", "pressure", "mole_frac_comp", "enth_mol"},
	spec.StateFcPh:  {"flow_mol_comp", "temperature", "pressure", "enth_mol"},
}

// StateVars returns the state variables of a state definition. A custom
// formulation starts from the FTPx set; the class-based package declares
// its own variables on top.
func StateVars(sd spec.StateDefinition) []string {
	if vars, ok := stateVars[sd]; ok {
		return append([]string(nil), vars...)
	}
	return append([]string(nil), stateVars[spec.StateFTPx]...)
}

// BaseParameters are required for every component whatever methods are
// selected.
var BaseParameters = []Parameter{
	{Key: "mw", Scope: PerComponent},
	{Key: "pressure_crit", Scope: PerComponent},
	{Key: "temperature_crit", Scope: PerComponent},
}

func defaultProperties() []Property {
	minimum := []Profile{ProfileMinimum}
	comp := []Profile{ProfileComprehensive}
	transport := []Profile{ProfileTransport}

	return []Property{
		// State variables. Membership comes from the state definition.
		{Name: "flow_mol", Applicability: Always, Description: "total molar flow"},
		{Name: "flow_mol_comp", Applicability: Always, Description: "component molar flows"},
		{Name: "flow_mol_phase_comp", Applicability: Always, Description: "phase-component molar flows"},
		{Name: "temperature", Applicability: Always, Description: "temperature"},
		{Name: "pressure", Applicability: Always, Description: "pressure"},
		{Name: "mole_frac_comp", Applicability: Always, Description: "overall mole fractions"},

		// Phase split.
		{Name: "flow_mol_phase", Applicability: MultiphaseOnly, Profiles: minimum, Description: "phase molar flows"},
		{Name: "mole_frac_phase_comp", Applicability: MultiphaseOnly, Profiles: minimum, Description: "phase mole fractions"},
		{Name: "phase_frac", Applicability: MultiphaseOnly, Profiles: minimum, Description: "phase fractions"},

		// Equilibrium. Forced in whenever equilibrium is required.
		{Name: PropPhaseEquilibriumForm, Applicability: EquilibriumRequired, Description: "equilibrium condition form per phase pair"},
		{Name: PropPhasesInEquilibrium, Applicability: EquilibriumRequired, Description: "phase pairs assumed at equilibrium"},
		{Name: PropPhaseEquilibriumState, Applicability: EquilibriumRequired, Description: "equilibrium temperature formulation per pair"},
		{Name: "fug_phase_comp", Applicability: EquilibriumRequired, Description: "component fugacity per phase"},

		{Name: "enth_mol", Applicability: Always, Profiles: comp, Description: "mixture molar enthalpy"},
		{Name: "enth_mol_phase", Applicability: Always, Profiles: comp, Description: "phase molar enthalpy"},
		{Name: "entr_mol", Applicability: Always, Profiles: comp, Description: "mixture molar entropy"},
		{Name: "entr_mol_phase", Applicability: Always, Profiles: comp, Description: "phase molar entropy"},
		{Name: "dens_mol", Applicability: Always, Profiles: comp, Description: "mixture molar density"},
		{Name: "dens_mol_phase", Applicability: Always, Profiles: comp, Description: "phase molar density"},
		{Name: "mw", Applicability: Always, Profiles: comp, Description: "mixture molecular weight"},
		{Name: "mw_phase", Applicability: Always, Profiles: comp, Description: "phase molecular weight"},
		{Name: "pressure_sat_comp", Applicability: MultiphaseOnly, Profiles: comp, Description: "component saturation pressure"},
		{Name: "temperature_bubble", Applicability: MultiphaseOnly, Profiles: comp, Description: "bubble temperature"},
		{Name: "temperature_dew", Applicability: MultiphaseOnly, Profiles: comp, Description: "dew temperature"},
		{Name: "pressure_bubble", Applicability: MultiphaseOnly, Profiles: comp, Description: "bubble pressure"},
		{Name: "pressure_dew", Applicability: MultiphaseOnly, Profiles: comp, Description: "dew pressure"},

		{Name: "visc_d_phase", Applicability: Always, Profiles: transport, Description: "phase dynamic viscosity"},
		{Name: "therm_cond_phase", Applicability: Always, Profiles: transport, Description: "phase thermal conductivity"},

		// Only through an explicit include. No library method exists.
		{Name: "act_coeff_phase_comp", Applicability: MultiphaseOnly, Description: "activity coefficients"},
	}
}

func defaultMethods() []Method {
	ideal := []spec.EosFamily{spec.FamilyIdeal}
	cubic := []spec.EosFamily{spec.FamilyCubic}
	both := []spec.EosFamily{spec.FamilyIdeal, spec.FamilyCubic}

	pureIdealGas := []Parameter{
		{Key: "cp_mol_ig_comp_coeff", Scope: PerComponent},
		{Key: "enth_mol_form_vap_comp_ref", Scope: PerComponent},
		{Key: "entr_mol_form_vap_comp_ref", Scope: PerComponent},
		{Key: "pressure_sat_comp_coeff", Scope: PerComponent},
	}
	pureProps := []string{"enth_mol", "enth_mol_phase", "entr_mol", "entr_mol_phase", "pressure_sat_comp"}
	bubbleDew := []string{"temperature_bubble", "temperature_dew", "pressure_bubble", "pressure_dew"}
	vleState := []string{PropPhasesInEquilibrium, PropPhaseEquilibriumState}

	return []Method{
		{
			ID: StateDefinitionMethod,
			Computes: []string{
				"flow_mol", "flow_mol_comp", "flow_mol_phase_comp", "temperature", "pressure",
				"mole_frac_comp", "flow_mol_phase", "mole_frac_phase_comp", "phase_frac",
			},
			Generic: true,
			Notes:   "state variables and phase split come from the state definition",
		},
		{ID: "Ideal", Computes: []string{"fug_phase_comp"}, Generic: true, Families: ideal},
		{
			ID:       "Cubic",
			Computes: []string{"fug_phase_comp", "dens_mol", "dens_mol_phase"},
			Generic:  true,
			Families: cubic,
			Params: []Parameter{
				{Key: "pressure_crit", Scope: PerComponent},
				{Key: "temperature_crit", Scope: PerComponent},
				{Key: "omega", Scope: PerComponent},
				{Key: "kappa", Scope: PerCubicEos},
			},
		},
		{ID: "RPP4", Computes: pureProps, Generic: true, Params: pureIdealGas},
		{ID: "NIST", Computes: pureProps, Generic: true, Params: pureIdealGas},
		{ID: "RPP5", Computes: pureProps, Generic: true, Params: pureIdealGas},
		{
			ID:       "Perrys",
			Computes: []string{"dens_mol", "dens_mol_phase", "enth_mol", "enth_mol_phase", "entr_mol", "entr_mol_phase"},
			Generic:  true,
			Families: ideal,
			Params: []Parameter{
				{Key: "dens_mol_liq_comp_coeff", Scope: PerComponent},
				{Key: "cp_mol_liq_comp_coeff", Scope: PerComponent},
				{Key: "enth_mol_form_liq_comp_ref", Scope: PerComponent},
				{Key: "entr_mol_form_liq_comp_ref", Scope: PerComponent},
			},
		},
		{
			ID:       "ConstantProperties",
			Computes: []string{"dens_mol", "dens_mol_phase"},
			Generic:  true,
			Notes:    "constant-value approximation",
		},
		{
			ID:       "molecular_weight",
			Computes: []string{"mw", "mw_phase"},
			Generic:  true,
			Params:   []Parameter{{Key: "mw", Scope: PerComponent}},
		},
		{ID: "fugacity", Computes: []string{PropPhaseEquilibriumForm}, Generic: true, Families: ideal, Form: spec.FormFugacity},
		{ID: "log_fugacity", Computes: []string{PropPhaseEquilibriumForm}, Generic: true, Families: both, Form: spec.FormLogFugacity},
		{ID: "SmoothVLE", Computes: vleState, Generic: true},
		{ID: "CubicComplementarityVLE", Computes: vleState, Generic: true, Families: cubic},
		{ID: "IdealBubbleDew", Computes: bubbleDew, Generic: true, Families: ideal},
		{ID: "LogBubbleDew", Computes: bubbleDew, Generic: true, Families: both},
		{
			ID:       "ChapmanEnskogLennardJones",
			Computes: []string{"visc_d_phase"},
			Generic:  true,
			Params: []Parameter{
				{Key: "lennard_jones_sigma", Scope: PerComponent},
				{Key: "lennard_jones_epsilon_reduced", Scope: PerComponent},
			},
		},
		{
			ID:       "Eucken",
			Computes: []string{"therm_cond_phase"},
			Generic:  true,
			Params:   []Parameter{{Key: "f_int_eucken", Scope: PerComponent}},
		},
		{
			ID:       CustomCorrelationMethod,
			Computes: []string{Wildcard},
			Notes:    "explicit equations written in the class-based package",
		},
	}
}

// CustomCorrelationMethod is the class-based catch-all method.
const CustomCorrelationMethod = "custom_correlation"

func defaultReferences() []Reference {
	return []Reference{
		{
			Name:       "ideal-vle-ftpx",
			Family:     spec.FamilyIdeal,
			Form:       spec.FormFugacity,
			Multiphase: true,
			Methods:    []string{StateDefinitionMethod, "Ideal", "Perrys", "RPP4", "molecular_weight", "fugacity", "SmoothVLE", "IdealBubbleDew"},
		},
		{
			Name:       "cubic-vle",
			Family:     spec.FamilyCubic,
			Form:       spec.FormLogFugacity,
			Multiphase: true,
			Methods:    []string{StateDefinitionMethod, "Cubic", "RPP4", "molecular_weight", "log_fugacity", "CubicComplementarityVLE", "LogBubbleDew"},
		},
		{
			Name:       "minimal-single-phase",
			Family:     spec.FamilyIdeal,
			Multiphase: false,
			Methods:    []string{StateDefinitionMethod, "Ideal", "molecular_weight"},
		},
	}
}

// --- Units ---

var allowedUnits = map[string][]string{
	"mw":                            {"kg/mol", "g/mol"},
	"pressure_crit":                 {"Pa", "kPa", "MPa", "bar"},
	"temperature_crit":              {"K"},
	"omega":                         {""},
	"kappa":                         {""},
	"enth_mol_form_vap_comp_ref":    {"J/mol", "kJ/mol"},
	"enth_mol_form_liq_comp_ref":    {"J/mol", "kJ/mol"},
	"entr_mol_form_vap_comp_ref":    {"J/mol/K", "J/mol.K"},
	"entr_mol_form_liq_comp_ref":    {"J/mol/K", "J/mol.K"},
	"lennard_jones_sigma":           {"m", "nm", "angstrom"},
	"lennard_jones_epsilon_reduced": {"K"},
	"f_int_eucken":                  {""},
}

// AllowedUnits returns the units accepted for a parameter key and whether
// the key is constrained at all. Correlation coefficient sets carry mixed
// units and are not constrained. Per-EOS keys such as PR_kappa share the
// rule of their base key.
func AllowedUnits(key string) ([]string, bool) {
	if units, ok := allowedUnits[key]; ok {
		return units, true
	}
	for _, k := range []spec.EosKind{spec.EosPR, spec.EosSRK} {
		prefix := string(k) + "_"
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			return AllowedUnits(key[len(prefix):])
		}
	}
	return nil, false
}

var baseUnits = map[string][]string{
	"time":        {"s", "min", "h"},
	"length":      {"m", "cm", "mm"},
	"mass":        {"kg", "g"},
	"amount":      {"mol", "kmol"},
	"temperature": {"K"},
}

// BaseDimensions are the dimensions every package must declare a base
// unit for.
var BaseDimensions = []string{"time", "length", "mass", "amount", "temperature"}

// AllowedBaseUnits returns the units accepted for a base dimension.
func AllowedBaseUnits(dimension string) []string {
	return append([]string(nil), baseUnits[dimension]...)
}
