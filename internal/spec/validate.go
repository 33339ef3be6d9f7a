package spec

import "fmt"

// Validate checks an already-normalized Specification, for example one
// decoded from a stored BuildPlan. It applies the same reference and
// enumeration rules as Normalize.
func (s *Specification) Validate() error {
	missing := &IncompleteSpecError{}
	if len(s.Components) == 0 {
		missing.add("components")
	}
	if len(s.Phases) == 0 {
		missing.add("phases")
	}
	if s.StateDefinition == "" {
		missing.add("state_definition")
	}
	if err := missing.orNil(); err != nil {
		return err
	}

	for _, p := range s.Phases {
		if !validKinds[p.Kind] {
			return &InvalidValueError{Field: fmt.Sprintf("phases.%s.kind", p.ID), Value: string(p.Kind), Allowed: []string{"Liquid", "Vapor", "Solid"}}
		}
	}
	if !validStates[s.StateDefinition] {
		return &InvalidValueError{Field: "state_definition", Value: string(s.StateDefinition), Allowed: stateNames()}
	}
	if !validModes[s.CoverageMode] {
		return &InvalidValueError{Field: "coverage_mode", Value: string(s.CoverageMode), Allowed: []string{"minimum", "comprehensive"}}
	}
	if !validForms[s.Equilibrium.Form] {
		return &InvalidValueError{Field: "equilibrium.form", Value: string(s.Equilibrium.Form), Allowed: []string{"fugacity", "log_fugacity"}}
	}
	if !validApproaches[s.ApproachOverride] {
		return &InvalidValueError{Field: "approach", Value: string(s.ApproachOverride), Allowed: []string{"generic", "class_based"}}
	}
	for phase, kind := range s.EosByPhase {
		if !validEos[kind] {
			return &InvalidValueError{Field: "eos_by_phase." + phase, Value: string(kind), Allowed: []string{"Ideal", "PR", "SRK"}}
		}
	}

	if err := checkReferences(s, s.EosByPhase); err != nil {
		return err
	}
	for _, p := range s.Phases {
		if _, ok := s.EosByPhase[p.ID]; !ok {
			missing.add("eos_by_phase." + p.ID)
		}
	}
	if s.Equilibrium.Required && len(s.Equilibrium.Pairs) == 0 {
		missing.add("equilibrium.pairs")
	}
	return missing.orNil()
}
