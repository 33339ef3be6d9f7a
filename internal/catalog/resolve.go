package catalog

import (
	"fmt"
	"slices"

	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/spec"
)

// ResolvedProperty is one member of the resolved required set.
type ResolvedProperty struct {
	Name          string        `json:"name"`
	Applicability Applicability `json:"applicability"`
	// Forced is set for equilibrium properties pulled in by a required
	// equilibrium regardless of mode or user exclusions.
	Forced bool `json:"forced,omitempty"`
	// Known is false for user-requested properties absent from the table.
	Known bool `json:"known"`
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Properties []ResolvedProperty `json:"properties"`
	// Decisions record every property dropped because its applicability
	// precondition is not met. They are not yet linked to a run.
	Decisions []decision.Decision `json:"decisions,omitempty"`
}

// Names returns the resolved property names in order.
func (r Resolution) Names() []string {
	out := make([]string, len(r.Properties))
	for i, p := range r.Properties {
		out[i] = p.Name
	}
	return out
}

// Has reports whether name is in the resolved set.
func (r Resolution) Has(name string) bool {
	for _, p := range r.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Resolve computes the required property set for s: the profile base set
// and state variables, plus user includes, minus user excludes, minus any
// property whose applicability precondition s does not meet. When
// equilibrium is required every equilibrium property is forced in.
//
// Order is catalog declaration order followed by unknown user includes in
// request order.
func (c *Catalog) Resolve(s *spec.Specification) Resolution {
	wanted := make(map[string]bool)
	for _, v := range StateVars(s.StateDefinition) {
		wanted[v] = true
	}
	for _, p := range c.properties {
		if p.In(ProfileMinimum) ||
			(s.CoverageMode == spec.ModeComprehensive && p.In(ProfileComprehensive)) ||
			(s.TransportIncluded && p.In(ProfileTransport)) {
			wanted[p.Name] = true
		}
	}
	for _, name := range s.RequiredProperties.Include {
		wanted[name] = true
	}
	for _, name := range s.RequiredProperties.Exclude {
		delete(wanted, name)
	}

	var res Resolution
	keep := func(name string, a Applicability, forced, known bool) {
		res.Properties = append(res.Properties, ResolvedProperty{Name: name, Applicability: a, Forced: forced, Known: known})
	}

	for _, p := range c.properties {
		if p.Applicability == EquilibriumRequired && s.Equilibrium.Required {
			keep(p.Name, p.Applicability, !wanted[p.Name], true)
			continue
		}
		if !wanted[p.Name] {
			continue
		}
		if reason, ok := unmet(p.Applicability, s); ok {
			res.Decisions = append(res.Decisions, decision.Decision{
				Point:     decision.PointPropertyRemoval,
				Selected:  "exclude " + p.Name,
				Rejected:  "include " + p.Name,
				Rationale: fmt.Sprintf("applicability %s not met: %s", p.Applicability, reason),
			})
			continue
		}
		keep(p.Name, p.Applicability, false, true)
	}

	for _, name := range s.RequiredProperties.Include {
		if _, known := c.byName[name]; known || !wanted[name] {
			continue
		}
		if slices.ContainsFunc(res.Properties, func(r ResolvedProperty) bool { return r.Name == name }) {
			continue
		}
		keep(name, Always, false, false)
	}
	return res
}

func unmet(a Applicability, s *spec.Specification) (string, bool) {
	switch a {
	case MultiphaseOnly:
		if !s.IsMultiphase() {
			return fmt.Sprintf("only %d phase declared", len(s.Phases)), true
		}
	case EquilibriumRequired:
		if !s.Equilibrium.Required {
			return "phase equilibrium is not required", true
		}
	}
	return "", false
}
