package coverage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/metrics"
	"github.com/HendryAvila/propgate/internal/spec"
)

func twoPhase(eos spec.EosKind, equilibrium bool) *spec.Specification {
	s := &spec.Specification{
		Name:            "ab",
		Components:      []spec.Component{{ID: "A"}, {ID: "B"}},
		Phases:          []spec.Phase{{ID: "Liq", Kind: spec.KindLiquid}, {ID: "Vap", Kind: spec.KindVapor}},
		StateDefinition: spec.StateFTPx,
		CoverageMode:    spec.ModeMinimum,
		EosByPhase:      map[string]spec.EosKind{"Liq": eos, "Vap": eos},
	}
	if equilibrium {
		s.Equilibrium = spec.Equilibrium{Required: true, Pairs: []spec.PhasePair{{First: "Vap", Second: "Liq"}}}
	}
	return s
}

func realGate(l *ledger.Ledger) *Gate {
	return NewGate(mapper.New(catalog.Default(), l, nil, mapper.Config{}), metrics.New())
}

func TestEvaluate_NoEquilibriumEntriesWithoutEquilibrium(t *testing.T) {
	s := twoPhase(spec.EosIdeal, false)
	res := catalog.Default().Resolve(s)

	table, err := realGate(ledger.New(nil)).Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormAuto})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, e := range table.Entries {
		if e.Applicability == catalog.EquilibriumRequired {
			t.Errorf("unexpected equilibrium entry %s", e.Property)
		}
		if e.Status != StatusCovered {
			t.Errorf("%s status = %s, want covered", e.Property, e.Status)
		}
	}
	if table.Verdict != VerdictPass {
		t.Errorf("verdict = %s, failures = %v", table.Verdict, table.Failures)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	l := ledger.New(nil)
	s := twoPhase(spec.EosPR, true)
	res := catalog.Default().Resolve(s)
	g := realGate(l)

	first, err := g.Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormLogFugacity})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := g.Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormLogFugacity})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !reflect.DeepEqual(first, second) || first.Digest == "" || first.Digest != second.Digest {
		t.Errorf("coverage tables differ:\n%+v\n%+v", first, second)
	}
	all, _ := l.All(context.Background())
	if len(all) != 0 {
		t.Errorf("Evaluate wrote %d ledger records", len(all))
	}
}

func TestEvaluate_MissingParametersAreRepairable(t *testing.T) {
	l := ledger.New(nil)
	s := twoPhase(spec.EosPR, true)
	res := catalog.Default().Resolve(s)
	g := realGate(l)
	ctx := context.Background()

	table, err := g.Evaluate(ctx, Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormLogFugacity})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	e, _ := table.Entry("fug_phase_comp")
	if e.Status != StatusMissing || e.Method != "Cubic" || len(e.MissingParameters) != 7 {
		t.Fatalf("fug_phase_comp entry = %+v", e)
	}
	if table.Verdict != VerdictFail || !table.ParameterOnly() {
		t.Errorf("verdict = %s, parameter only = %v", table.Verdict, table.ParameterOnly())
	}

	for _, name := range e.MissingParameters {
		key := keyFromString(t, name)
		_, err := l.Insert(ctx, ledger.Record{Key: key, Value: "1", Source: "handbook", RetrievedOn: time.Now(), Confidence: ledger.ConfidenceHigh}, ledger.InsertOptions{})
		if err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
	table, err = g.Evaluate(ctx, Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormLogFugacity})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if table.Verdict != VerdictPass {
		t.Errorf("verdict after filling ledger = %s, failures = %v", table.Verdict, table.Failures)
	}
}

func TestEvaluate_EquilibriumCannotBeDeferred(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*spec.Specification)
		want   []string
	}{
		{"excluded", func(s *spec.Specification) {
			s.RequiredProperties.Exclude = []string{"fug_phase_comp"}
		}, []string{"fug_phase_comp"}},
		{"deferred", func(s *spec.Specification) {
			s.Deferrals = map[string]string{catalog.PropPhasesInEquilibrium: "later"}
		}, []string{catalog.PropPhasesInEquilibrium}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := twoPhase(spec.EosIdeal, true)
			tt.mutate(s)
			res := catalog.Default().Resolve(s)

			_, err := realGate(ledger.New(nil)).Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormFugacity})
			var v *EquilibriumCoverageViolation
			if !errors.As(err, &v) {
				t.Fatalf("expected EquilibriumCoverageViolation, got %v", err)
			}
			if !reflect.DeepEqual(v.Properties, tt.want) {
				t.Errorf("properties = %v, want %v", v.Properties, tt.want)
			}
		})
	}

	// Without required equilibrium, a deferral note is just a note.
	s := twoPhase(spec.EosIdeal, false)
	s.Deferrals = map[string]string{"fug_phase_comp": "later"}
	if _, err := realGate(ledger.New(nil)).Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: catalog.Default().Resolve(s), Form: spec.FormAuto}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvaluate_UnknownPropertyIsNotRepairable(t *testing.T) {
	s := twoPhase(spec.EosIdeal, false)
	s.RequiredProperties.Include = []string{"surf_tens_phase"}
	res := catalog.Default().Resolve(s)

	table, err := realGate(ledger.New(nil)).Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormAuto})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	e, _ := table.Entry("surf_tens_phase")
	if e.Status != StatusMissing || e.Method != "" {
		t.Errorf("entry = %+v", e)
	}
	if table.ParameterOnly() {
		t.Error("a property with no method cannot be repaired by parameter lookup")
	}
}

// fakeProber returns canned probes.
type fakeProber map[string]mapper.Probe

func (f fakeProber) Probe(_ context.Context, _ *spec.Specification, _ spec.Approach, property string, _ spec.EquilibriumForm, _ bool) (mapper.Probe, error) {
	p, ok := f[property]
	if !ok {
		return mapper.Probe{}, errors.New("unexpected probe for " + property)
	}
	return p, nil
}

func TestVerdict_ModesAndDeferrals(t *testing.T) {
	prober := fakeProber{
		"x": {Candidates: []string{"m"}, Method: "m"},
		"y": {Candidates: []string{catalog.CustomCorrelationMethod}, Method: catalog.CustomCorrelationMethod, Custom: true},
		"z": {Candidates: []string{"m"}, Method: "m", MissingParameters: []string{"k@package"}},
	}
	res := catalog.Resolution{Properties: []catalog.ResolvedProperty{
		{Name: "x", Applicability: catalog.Always, Known: true},
		{Name: "y", Applicability: catalog.Always, Known: true},
		{Name: "z", Applicability: catalog.Always, Known: true},
	}}

	tests := []struct {
		name      string
		mode      spec.CoverageMode
		deferrals map[string]string
		want      []string
	}{
		{"minimum fails on missing only", spec.ModeMinimum, nil, []string{"z"}},
		{"minimum accepts deferred missing", spec.ModeMinimum, map[string]string{"z": "data next sprint"}, nil},
		{"comprehensive needs covered", spec.ModeComprehensive, nil, []string{"y", "z"}},
		{"comprehensive accepts deferrals", spec.ModeComprehensive, map[string]string{"y": "hand-written", "z": "later"}, nil},
		{"blank deferral note does not count", spec.ModeComprehensive, map[string]string{"y": "  ", "z": "later"}, []string{"y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := twoPhase(spec.EosIdeal, false)
			s.CoverageMode = tt.mode
			s.Deferrals = tt.deferrals

			table, err := NewGate(prober, nil).Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachClassBased, Resolution: res, Form: spec.FormAuto})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if !reflect.DeepEqual(table.Failures, tt.want) {
				t.Errorf("failures = %v, want %v", table.Failures, tt.want)
			}
			wantVerdict := VerdictPass
			if len(tt.want) > 0 {
				wantVerdict = VerdictFail
			}
			if table.Verdict != wantVerdict {
				t.Errorf("verdict = %s, want %s", table.Verdict, wantVerdict)
			}
		})
	}
}

func TestEvaluate_ProbeErrorsPropagate(t *testing.T) {
	s := twoPhase(spec.EosIdeal, false)
	res := catalog.Resolution{Properties: []catalog.ResolvedProperty{{Name: "unknown", Known: true}}}
	if _, err := NewGate(fakeProber{}, nil).Evaluate(context.Background(), Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: res, Form: spec.FormAuto}); err == nil {
		t.Error("expected probe error")
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := twoPhase(spec.EosIdeal, false)
	_, err := realGate(ledger.New(nil)).Evaluate(ctx, Input{Spec: s, Approach: spec.ApproachGeneric, Resolution: catalog.Default().Resolve(s), Form: spec.FormAuto})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func keyFromString(t *testing.T, s string) ledger.Key {
	t.Helper()
	name, rest, _ := strings.Cut(s, "@")
	k, err := ledger.ParseAppliesTo(name, rest)
	if err != nil {
		t.Fatalf("parsing key %s: %v", s, err)
	}
	return k
}
