package catalog

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/spec"
)

func twoPhase(eos spec.EosKind) *spec.Specification {
	return &spec.Specification{
		Name:            "ab",
		Components:      []spec.Component{{ID: "A"}, {ID: "B"}},
		Phases:          []spec.Phase{{ID: "Liq", Kind: spec.KindLiquid}, {ID: "Vap", Kind: spec.KindVapor}},
		StateDefinition: spec.StateFTPx,
		CoverageMode:    spec.ModeMinimum,
		EosByPhase:      map[string]spec.EosKind{"Liq": eos, "Vap": eos},
	}
}

func singlePhase() *spec.Specification {
	return &spec.Specification{
		Name:            "gas",
		Components:      []spec.Component{{ID: "N2"}},
		Phases:          []spec.Phase{{ID: "Vap", Kind: spec.KindVapor}},
		StateDefinition: spec.StateFTPx,
		CoverageMode:    spec.ModeMinimum,
		EosByPhase:      map[string]spec.EosKind{"Vap": spec.EosIdeal},
	}
}

func TestDefault_TablesConsistent(t *testing.T) {
	c := Default()
	if len(c.Properties()) == 0 || len(c.Methods()) == 0 || len(c.References()) != 3 {
		t.Fatalf("unexpected table sizes: %d properties, %d methods, %d references",
			len(c.Properties()), len(c.Methods()), len(c.References()))
	}
	for _, name := range EquilibriumTriad {
		p, ok := c.Property(name)
		if !ok {
			t.Fatalf("triad member %s missing from catalog", name)
		}
		if p.Applicability != EquilibriumRequired {
			t.Errorf("%s applicability = %s, want equilibrium_required", name, p.Applicability)
		}
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]Property{{Name: "x"}, {Name: "x"}}, nil, nil)
	if err == nil {
		t.Error("expected duplicate property error")
	}
	_, err = New(nil, []Method{{ID: "m"}, {ID: "m"}}, nil)
	if err == nil {
		t.Error("expected duplicate method error")
	}
	_, err = New(nil, []Method{{ID: "m"}}, []Reference{{Name: "r", Methods: []string{"ghost"}}})
	if err == nil {
		t.Error("expected dangling reference error")
	}
}

func TestResolve_MinimumTwoPhaseNoEquilibrium(t *testing.T) {
	c := Default()
	res := c.Resolve(twoPhase(spec.EosIdeal))

	want := []string{"flow_mol", "temperature", "pressure", "mole_frac_comp", "flow_mol_phase", "mole_frac_phase_comp", "phase_frac"}
	if got := res.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	for _, p := range res.Properties {
		if p.Applicability == EquilibriumRequired {
			t.Errorf("equilibrium property %s resolved without equilibrium", p.Name)
		}
	}
}

func TestResolve_EquilibriumForcedIn(t *testing.T) {
	c := Default()
	s := twoPhase(spec.EosPR)
	s.Equilibrium = spec.Equilibrium{Required: true, Pairs: []spec.PhasePair{{First: "Vap", Second: "Liq"}}}
	s.RequiredProperties.Exclude = []string{"fug_phase_comp"}

	res := c.Resolve(s)
	for _, name := range append(slices.Clone(EquilibriumTriad), "fug_phase_comp") {
		if !res.Has(name) {
			t.Errorf("%s should be forced into the resolved set", name)
		}
	}
	for _, p := range res.Properties {
		if p.Name == "fug_phase_comp" && !p.Forced {
			t.Error("excluded equilibrium property should be marked forced")
		}
	}
}

func TestResolve_RemovalIsLoggedAsDecision(t *testing.T) {
	c := Default()
	s := singlePhase()
	s.CoverageMode = spec.ModeComprehensive

	res := c.Resolve(s)
	if res.Has("pressure_sat_comp") || res.Has("phase_frac") {
		t.Error("multiphase-only properties must be removed for a single phase")
	}
	if !res.Has("enth_mol") || !res.Has("mw") {
		t.Error("comprehensive always-applicable properties missing")
	}

	removed := map[string]bool{}
	for _, d := range res.Decisions {
		if d.Point != decision.PointPropertyRemoval {
			t.Errorf("decision point = %s, want property_removal", d.Point)
		}
		removed[strings.TrimPrefix(d.Selected, "exclude ")] = true
	}
	for _, name := range []string{"flow_mol_phase", "phase_frac", "pressure_sat_comp", "temperature_bubble", "pressure_dew"} {
		if !removed[name] {
			t.Errorf("no removal decision for %s", name)
		}
	}
}

func TestResolve_IncludeExcludeAndUnknown(t *testing.T) {
	c := Default()
	s := twoPhase(spec.EosIdeal)
	s.TransportIncluded = true
	s.RequiredProperties = spec.RequiredProperties{
		Include: []string{"surf_tens_phase", "enth_mol"},
		Exclude: []string{"therm_cond_phase"},
	}

	res := c.Resolve(s)
	if !res.Has("visc_d_phase") {
		t.Error("transport profile should be included")
	}
	if res.Has("therm_cond_phase") {
		t.Error("excluded property should be absent")
	}
	if !res.Has("enth_mol") {
		t.Error("included property should be present")
	}
	last := res.Properties[len(res.Properties)-1]
	if last.Name != "surf_tens_phase" || last.Known {
		t.Errorf("unknown include should be appended last and flagged unknown, got %+v", last)
	}
}

func TestResolve_StateVarsFollowDefinition(t *testing.T) {
	c := Default()
	s := twoPhase(spec.EosIdeal)
	s.StateDefinition = spec.StateFPhx

	res := c.Resolve(s)
	if !res.Has("enth_mol") {
		t.Error("FPhx must resolve enth_mol as a state variable")
	}
	methods := c.MethodsFor("enth_mol", s)
	if len(methods) == 0 || methods[0].ID != StateDefinitionMethod {
		t.Errorf("state variable should be computed by the state definition first, got %v", methodIDs(methods))
	}
}

func TestResolve_Deterministic(t *testing.T) {
	c := Default()
	s := twoPhase(spec.EosSRK)
	s.CoverageMode = spec.ModeComprehensive
	first := c.Resolve(s)
	for i := 0; i < 20; i++ {
		if got := c.Resolve(s); !reflect.DeepEqual(got, first) {
			t.Fatalf("Resolve not deterministic on iteration %d", i)
		}
	}
}

func TestHasGenericMethod(t *testing.T) {
	c := Default()
	s := twoPhase(spec.EosIdeal)

	tests := []struct {
		property string
		want     bool
	}{
		{"flow_mol", true},
		{"fug_phase_comp", true},
		{"act_coeff_phase_comp", false},
		{"surf_tens_phase", false},
	}
	for _, tt := range tests {
		if got := c.HasGenericMethod(tt.property, s); got != tt.want {
			t.Errorf("HasGenericMethod(%s) = %v, want %v", tt.property, got, tt.want)
		}
	}

	// Custom correlation is the only candidate for an unknown property.
	methods := c.MethodsFor("surf_tens_phase", s)
	if len(methods) != 1 || methods[0].ID != CustomCorrelationMethod {
		t.Errorf("MethodsFor(unknown) = %v", methodIDs(methods))
	}
}

func TestFormCompatible(t *testing.T) {
	tests := []struct {
		family spec.EosFamily
		form   spec.EquilibriumForm
		want   bool
	}{
		{spec.FamilyIdeal, spec.FormFugacity, true},
		{spec.FamilyIdeal, spec.FormLogFugacity, true},
		{spec.FamilyCubic, spec.FormLogFugacity, true},
		{spec.FamilyCubic, spec.FormFugacity, false},
	}
	for _, tt := range tests {
		if got := FormCompatible(tt.family, tt.form); got != tt.want {
			t.Errorf("FormCompatible(%s, %s) = %v, want %v", tt.family, tt.form, got, tt.want)
		}
	}
}

func TestReferenceFor(t *testing.T) {
	c := Default()

	if r, ok := c.ReferenceFor(twoPhase(spec.EosPR), spec.FormLogFugacity); !ok || r.Name != "cubic-vle" {
		t.Errorf("cubic two-phase reference = %v, %v", r.Name, ok)
	}
	if r, ok := c.ReferenceFor(twoPhase(spec.EosIdeal), spec.FormFugacity); !ok || r.Name != "ideal-vle-ftpx" {
		t.Errorf("ideal two-phase reference = %v, %v", r.Name, ok)
	}
	if r, ok := c.ReferenceFor(singlePhase(), spec.FormAuto); !ok || r.Name != "minimal-single-phase" {
		t.Errorf("single-phase reference = %v, %v", r.Name, ok)
	}

	mixed := twoPhase(spec.EosIdeal)
	mixed.EosByPhase["Liq"] = spec.EosPR
	if _, ok := c.ReferenceFor(mixed, spec.FormLogFugacity); ok {
		t.Error("mixed EOS families have no reference example")
	}
}

func TestAllowedUnits(t *testing.T) {
	units, ok := AllowedUnits("PR_kappa")
	if !ok || !reflect.DeepEqual(units, []string{""}) {
		t.Errorf("AllowedUnits(PR_kappa) = %v, %v", units, ok)
	}
	if _, ok := AllowedUnits("cp_mol_ig_comp_coeff"); ok {
		t.Error("coefficient sets should be unconstrained")
	}
	units, _ = AllowedUnits("temperature_crit")
	if !slices.Contains(units, "K") {
		t.Errorf("temperature_crit units = %v", units)
	}
}

func TestBuildFilePlan_CoversRequiredTerms(t *testing.T) {
	s := twoPhase(spec.EosIdeal)
	s.Equilibrium.Required = true

	for _, approach := range []spec.Approach{spec.ApproachGeneric, spec.ApproachClassBased} {
		plan := BuildFilePlan(s, approach)
		if missing := MissingPlanTerms(plan, approach); len(missing) != 0 {
			t.Errorf("%s plan misses terms %v", approach, missing)
		}
		if len(plan.Files) != 2 || plan.Files[0].Path != "ab.py" || plan.Files[1].Path != "test_ab.py" {
			t.Errorf("%s plan files = %+v", approach, plan.Files)
		}
		if len(plan.Checklist) == 0 {
			t.Errorf("%s plan has no checklist", approach)
		}
	}
}

func TestMissingPlanTerms_DetectsGaps(t *testing.T) {
	plan := FilePlan{Files: []PlannedFile{{Path: "x.py", Sections: []string{"approach", "state"}}}}
	missing := MissingPlanTerms(plan, spec.ApproachGeneric)
	if !slices.Contains(missing, "scaling") || !slices.Contains(missing, "state_bounds") {
		t.Errorf("MissingPlanTerms = %v", missing)
	}
}

func methodIDs(ms []Method) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}
