package approach

import (
	"reflect"
	"strings"
	"testing"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/spec"
)

func twoPhase() *spec.Specification {
	return &spec.Specification{
		Name:            "ab",
		Components:      []spec.Component{{ID: "A"}, {ID: "B"}},
		Phases:          []spec.Phase{{ID: "Liq", Kind: spec.KindLiquid}, {ID: "Vap", Kind: spec.KindVapor}},
		StateDefinition: spec.StateFTPx,
		CoverageMode:    spec.ModeMinimum,
		EosByPhase:      map[string]spec.EosKind{"Liq": spec.EosIdeal, "Vap": spec.EosIdeal},
	}
}

func selectFor(s *spec.Specification) Selection {
	c := catalog.Default()
	return Select(s, c.Resolve(s), c)
}

func TestSelect_DefaultsToGenericWithTieBreak(t *testing.T) {
	sel := selectFor(twoPhase())
	if sel.Approach != spec.ApproachGeneric {
		t.Fatalf("approach = %s, want generic", sel.Approach)
	}
	if len(sel.Decisions) != 2 {
		t.Fatalf("decisions = %v", sel.Decisions)
	}
	if sel.Decisions[0].Point != decision.PointApproach || sel.Decisions[1].Point != decision.PointTieBreak {
		t.Errorf("decision points = %s, %s", sel.Decisions[0].Point, sel.Decisions[1].Point)
	}
}

func TestSelect_PropertyWithoutGenericMethodBlocks(t *testing.T) {
	s := twoPhase()
	s.RequiredProperties.Include = []string{"act_coeff_phase_comp"}

	sel := selectFor(s)
	if sel.Approach != spec.ApproachClassBased {
		t.Fatalf("approach = %s, want class_based", sel.Approach)
	}
	if len(sel.Decisions) != 1 {
		t.Fatalf("decisions = %v", sel.Decisions)
	}
	d := sel.Decisions[0]
	if !strings.Contains(d.Rationale, "act_coeff_phase_comp") || d.Rejected != string(spec.ApproachGeneric) {
		t.Errorf("decision does not cite the blocking property: %s", d)
	}
}

func TestSelect_OtherBlockingFactors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*spec.Specification)
		cite   string
	}{
		{"custom state definition", func(s *spec.Specification) { s.StateDefinition = spec.StateCustom }, "state definition custom"},
		{"custom correlation", func(s *spec.Specification) { s.CustomCorrelations = []string{"enth_mol"} }, "custom correlation required for enth_mol"},
		{"unknown property", func(s *spec.Specification) { s.RequiredProperties.Include = []string{"surf_tens_phase"} }, "surf_tens_phase is not in the catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := twoPhase()
			tt.mutate(s)
			sel := selectFor(s)
			if sel.Approach != spec.ApproachClassBased {
				t.Fatalf("approach = %s", sel.Approach)
			}
			if !strings.Contains(sel.Decisions[0].Rationale, tt.cite) {
				t.Errorf("rationale %q does not cite %q", sel.Decisions[0].Rationale, tt.cite)
			}
		})
	}
}

func TestSelect_Overrides(t *testing.T) {
	t.Run("class-based override honored with risk note", func(t *testing.T) {
		s := twoPhase()
		s.ApproachOverride = spec.ApproachClassBased
		sel := selectFor(s)
		if sel.Approach != spec.ApproachClassBased || len(sel.Decisions[0].RiskNotes) == 0 {
			t.Errorf("selection = %+v", sel)
		}
	})
	t.Run("generic override honored", func(t *testing.T) {
		s := twoPhase()
		s.ApproachOverride = spec.ApproachGeneric
		sel := selectFor(s)
		if sel.Approach != spec.ApproachGeneric || len(sel.Decisions) != 1 || len(sel.Decisions[0].RiskNotes) != 0 {
			t.Errorf("selection = %+v", sel)
		}
	})
	t.Run("generic override with hard incompatibility", func(t *testing.T) {
		s := twoPhase()
		s.ApproachOverride = spec.ApproachGeneric
		s.StateDefinition = spec.StateCustom
		sel := selectFor(s)
		if sel.Approach != spec.ApproachClassBased || len(sel.Decisions[0].RiskNotes) == 0 {
			t.Errorf("selection = %+v", sel)
		}
	})
}

func TestSelect_Deterministic(t *testing.T) {
	s := twoPhase()
	s.CoverageMode = spec.ModeComprehensive
	s.RequiredProperties.Include = []string{"act_coeff_phase_comp", "surf_tens_phase"}
	first := selectFor(s)
	for i := 0; i < 20; i++ {
		if got := selectFor(s); !reflect.DeepEqual(got, first) {
			t.Fatalf("Select not deterministic on iteration %d", i)
		}
	}
}
