// Package coverage cross-references the resolved property set against the
// method catalog and the provenance ledger, producing a coverage table and
// a pass/fail verdict.
//
// The gate is re-entrant: it only reads through the mapper's probe, so two
// evaluations over the same specification and an unchanged ledger yield
// byte-identical tables. Table.Digest makes that checkable.
package coverage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/metrics"
	"github.com/HendryAvila/propgate/internal/spec"
)

// --- Status enum ---

// Status is the coverage state of one property.
type Status string

const (
	StatusCovered      Status = "covered"
	StatusMissing      Status = "missing"
	StatusCustomNeeded Status = "custom_implementation_needed"
)

// --- Verdict enum ---

// Verdict is the gate outcome.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Entry is one row of the coverage table. Entries are immutable once
// emitted; a changed status means a new table.
type Entry struct {
	Property          string                `json:"property_name"`
	Applicability     catalog.Applicability `json:"applicability"`
	Status            Status                `json:"status"`
	Method            string                `json:"method,omitempty"`
	Methods           []string              `json:"methods,omitempty"`
	MissingParameters []string              `json:"missing_parameters,omitempty"`
	Deferral          string                `json:"deferral,omitempty"`
	Detail            string                `json:"detail,omitempty"`
}

// Deferred reports whether the user accepted a deferral for the entry.
func (e Entry) Deferred() bool {
	return strings.TrimSpace(e.Deferral) != ""
}

// Table is the gate output.
type Table struct {
	Mode     spec.CoverageMode `json:"mode"`
	Approach spec.Approach     `json:"approach"`
	Entries  []Entry           `json:"entries"`
	Verdict  Verdict           `json:"verdict"`
	Failures []string          `json:"failures,omitempty"`
	Digest   string            `json:"digest"`
}

// Entry returns the row for property, if present.
func (t *Table) Entry(property string) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Property == property {
			return e, true
		}
	}
	return Entry{}, false
}

// ParameterOnly reports whether every failure is caused solely by missing
// parameters of an otherwise bound method, which the repair loop can
// address.
func (t *Table) ParameterOnly() bool {
	if t.Verdict == VerdictPass {
		return false
	}
	for _, name := range t.Failures {
		e, _ := t.Entry(name)
		if e.Status != StatusMissing || e.Method == "" {
			return false
		}
	}
	return true
}

// EquilibriumCoverageViolation reports an attempt to exclude or defer an
// equilibrium property while equilibrium is required.
type EquilibriumCoverageViolation struct {
	Properties []string
}

func (e *EquilibriumCoverageViolation) Error() string {
	return fmt.Sprintf("equilibrium is required; these properties cannot be excluded or deferred: %s",
		strings.Join(e.Properties, ", "))
}

// Prober answers side-effect-free method and parameter questions for one
// property. *mapper.Mapper implements it.
type Prober interface {
	Probe(ctx context.Context, s *spec.Specification, approach spec.Approach, property string, form spec.EquilibriumForm, relaxed bool) (mapper.Probe, error)
}

// Input is what one evaluation looks at.
type Input struct {
	Spec       *spec.Specification
	Approach   spec.Approach
	Resolution catalog.Resolution
	Form       spec.EquilibriumForm

	// Relaxed probes with the repair ranking, so the table agrees with a
	// relaxed mapping.
	Relaxed bool
}

// Gate evaluates coverage.
type Gate struct {
	prober  Prober
	metrics *metrics.Metrics
}

// NewGate creates a Gate. m may be nil.
func NewGate(p Prober, m *metrics.Metrics) *Gate {
	return &Gate{prober: p, metrics: m}
}

// Evaluate builds the coverage table for the resolved properties under the
// chosen approach and equilibrium form.
func (g *Gate) Evaluate(ctx context.Context, in Input) (*Table, error) {
	s, approach := in.Spec, in.Approach
	if err := checkEquilibriumDeferrals(s, in.Resolution); err != nil {
		return nil, err
	}

	t := &Table{Mode: s.CoverageMode, Approach: approach}
	for _, rp := range in.Resolution.Properties {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := g.prober.Probe(ctx, s, approach, rp.Name, in.Form, in.Relaxed)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", rp.Name, err)
		}
		e := Entry{
			Property:      rp.Name,
			Applicability: rp.Applicability,
			Method:        p.Method,
			Methods:       p.Candidates,
			Deferral:      strings.TrimSpace(s.Deferrals[rp.Name]),
		}
		switch {
		case p.Method == "":
			e.Status = StatusMissing
			e.Detail = fmt.Sprintf("no %s method computes %s", approachLabel(approach), rp.Name)
			if !rp.Known {
				e.Detail = rp.Name + " is not in the property catalog"
			}
		case p.Custom:
			e.Status = StatusCustomNeeded
			e.Detail = "requires an explicit correlation in the class-based package"
		case len(p.MissingParameters) > 0:
			e.Status = StatusMissing
			e.MissingParameters = p.MissingParameters
			e.Detail = fmt.Sprintf("%s lacks %d parameter(s)", p.Method, len(p.MissingParameters))
		default:
			e.Status = StatusCovered
		}
		t.Entries = append(t.Entries, e)
	}

	t.Failures = failures(t.Entries, s.CoverageMode)
	t.Verdict = VerdictPass
	if len(t.Failures) > 0 {
		t.Verdict = VerdictFail
	}
	t.Digest = digest(t)
	g.metrics.IncrementCoverageVerdict(string(s.CoverageMode), string(t.Verdict))
	return t, nil
}

// checkEquilibriumDeferrals enforces that equilibrium properties are
// neither excluded nor deferred while equilibrium is required.
func checkEquilibriumDeferrals(s *spec.Specification, res catalog.Resolution) error {
	if !s.Equilibrium.Required {
		return nil
	}
	var bad []string
	for _, rp := range res.Properties {
		if rp.Applicability != catalog.EquilibriumRequired {
			continue
		}
		if slices.Contains(s.RequiredProperties.Exclude, rp.Name) || s.IsDeferred(rp.Name) {
			bad = append(bad, rp.Name)
		}
	}
	if len(bad) > 0 {
		return &EquilibriumCoverageViolation{Properties: bad}
	}
	return nil
}

// failures lists the properties that make the verdict fail. In minimum
// mode only missing, non-deferred entries fail; comprehensive mode also
// fails any entry that is not covered unless the user accepted a deferral.
func failures(entries []Entry, mode spec.CoverageMode) []string {
	var out []string
	for _, e := range entries {
		if e.Deferred() {
			continue
		}
		if e.Status == StatusMissing || (mode == spec.ModeComprehensive && e.Status != StatusCovered) {
			out = append(out, e.Property)
		}
	}
	return out
}

// digest hashes the canonical JSON of the table with the digest cleared.
// Every field is a struct or slice, so encoding order is fixed.
func digest(t *Table) string {
	c := *t
	c.Digest = ""
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func approachLabel(a spec.Approach) string {
	if a == spec.ApproachClassBased {
		return "class-based"
	}
	return "generic"
}
