// Package approach chooses between the two implementation strategies of a
// property package: Generic (configuration over library methods) and
// ClassBased (explicit equations in hand-written classes).
//
// Rules, first match wins:
//  1. an explicit user override without hard incompatibility is honored,
//     with risk notes when it goes against rule 2;
//  2. a resolved property without a Generic-compatible method, a
//     non-standard state definition, or a demanded custom correlation
//     selects ClassBased;
//  3. otherwise Generic, recorded as a tie-break.
//
// Select is pure: identical inputs give identical decisions.
package approach

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/spec"
)

// GenericBinder reports whether a property has a Generic-compatible
// method. *catalog.Catalog implements it.
type GenericBinder interface {
	HasGenericMethod(property string, s *spec.Specification) bool
}

// Selection is the outcome of Select.
type Selection struct {
	Approach spec.Approach `json:"approach"`
	// Blocking lists every factor that rules out Generic, in the order
	// they were found.
	Blocking  []string            `json:"blocking_factors,omitempty"`
	Decisions []decision.Decision `json:"decisions"`
}

// Select applies the rule matrix.
func Select(s *spec.Specification, res catalog.Resolution, binder GenericBinder) Selection {
	blocking := BlockingFactors(s, res, binder)
	sel := Selection{Blocking: blocking}

	switch s.ApproachOverride {
	case spec.ApproachGeneric:
		if len(blocking) > 0 {
			sel.Approach = spec.ApproachClassBased
			sel.Decisions = []decision.Decision{{
				Point:     decision.PointApproach,
				Selected:  string(spec.ApproachClassBased),
				Rejected:  string(spec.ApproachGeneric),
				Rationale: "generic override is incompatible: " + strings.Join(blocking, "; "),
				RiskNotes: []string{"user override to generic was not honored"},
			}}
			return sel
		}
		sel.Approach = spec.ApproachGeneric
		sel.Decisions = []decision.Decision{{
			Point:     decision.PointApproach,
			Selected:  string(spec.ApproachGeneric),
			Rejected:  string(spec.ApproachClassBased),
			Rationale: "user override honored; every resolved property has a generic method",
		}}
		return sel

	case spec.ApproachClassBased:
		sel.Approach = spec.ApproachClassBased
		d := decision.Decision{
			Point:     decision.PointApproach,
			Selected:  string(spec.ApproachClassBased),
			Rejected:  string(spec.ApproachGeneric),
			Rationale: "user override honored",
		}
		if len(blocking) == 0 {
			d.RiskNotes = []string{
				"generic is feasible for every resolved property; the class-based package adds code to implement and validate",
			}
		} else {
			d.Rationale += "; also required by: " + strings.Join(blocking, "; ")
		}
		sel.Decisions = []decision.Decision{d}
		return sel
	}

	if len(blocking) > 0 {
		sel.Approach = spec.ApproachClassBased
		sel.Decisions = []decision.Decision{{
			Point:     decision.PointApproach,
			Selected:  string(spec.ApproachClassBased),
			Rejected:  string(spec.ApproachGeneric),
			Rationale: "generic is blocked by: " + strings.Join(blocking, "; "),
		}}
		return sel
	}

	sel.Approach = spec.ApproachGeneric
	sel.Decisions = []decision.Decision{
		{
			Point:     decision.PointApproach,
			Selected:  string(spec.ApproachGeneric),
			Rejected:  string(spec.ApproachClassBased),
			Rationale: fmt.Sprintf("all %d resolved properties have generic methods and %s is a library state definition", len(res.Properties), s.StateDefinition),
		},
		{
			Point:     decision.PointTieBreak,
			Selected:  string(spec.ApproachGeneric),
			Rejected:  string(spec.ApproachClassBased),
			Rationale: "both approaches are feasible; the default tie-break prefers generic",
		},
	}
	return sel
}

// BlockingFactors lists the reasons Generic cannot be used.
func BlockingFactors(s *spec.Specification, res catalog.Resolution, binder GenericBinder) []string {
	var out []string
	for _, p := range res.Properties {
		switch {
		case s.RequiresCustomCorrelation(p.Name):
			// Reported below with the other custom correlations.
		case !p.Known:
			out = append(out, fmt.Sprintf("property %s is not in the catalog and has no generic method", p.Name))
		case !binder.HasGenericMethod(p.Name, s):
			out = append(out, fmt.Sprintf("property %s has no generic method", p.Name))
		}
	}
	if !s.StateDefinition.IsLibraryStandard() {
		out = append(out, fmt.Sprintf("state definition %s is not a library state definition", s.StateDefinition))
	}
	for _, p := range s.CustomCorrelations {
		out = append(out, fmt.Sprintf("custom correlation required for %s", p))
	}
	return out
}
