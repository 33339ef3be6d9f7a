package spec

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults are the documented values applied to low-impact fields the
// request leaves out. High-impact fields have no defaults.
var Defaults = struct {
	Name         string
	CoverageMode CoverageMode
	BaseUnits    map[string]string
}{
	Name:         "property_package",
	CoverageMode: ModeMinimum,
	BaseUnits: map[string]string{
		"time":        "s",
		"length":      "m",
		"mass":        "kg",
		"amount":      "mol",
		"temperature": "K",
	},
}

// ParseRequest decodes a YAML or JSON request document into the raw
// key-value form accepted by Normalize.
func ParseRequest(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// Normalize converts a raw, possibly partial request into a Specification.
//
// Error precedence: an out-of-range enumerated value is reported first
// (InvalidValueError), then missing components/phases, then dangling phase
// references (InvalidReferenceError), then any other missing mandatory
// field. All missing fields are reported together.
func Normalize(raw map[string]any) (*Specification, error) {
	missing := &IncompleteSpecError{}
	s := &Specification{
		Name:         Defaults.Name,
		CoverageMode: Defaults.CoverageMode,
		BaseUnits:    make(map[string]string, len(Defaults.BaseUnits)),
		EosByPhase:   map[string]EosKind{},
	}
	for k, v := range Defaults.BaseUnits {
		s.BaseUnits[k] = v
	}

	if name, ok := asString(raw["name"]); ok && name != "" {
		s.Name = name
	}

	components, err := normalizeComponents(raw["components"], missing)
	if err != nil {
		return nil, err
	}
	s.Components = components

	phases, err := normalizePhases(raw["phases"], missing)
	if err != nil {
		return nil, err
	}
	s.Phases = phases

	if state, ok := asString(raw["state_definition"]); ok && state != "" {
		sd := StateDefinition(state)
		if !validStates[sd] {
			return nil, &InvalidValueError{Field: "state_definition", Value: state, Allowed: stateNames()}
		}
		s.StateDefinition = sd
	} else {
		missing.add("state_definition")
	}

	if mode, ok := asString(raw["coverage_mode"]); ok && mode != "" {
		cm := CoverageMode(strings.ToLower(mode))
		if !validModes[cm] {
			return nil, &InvalidValueError{Field: "coverage_mode", Value: mode, Allowed: []string{"minimum", "comprehensive"}}
		}
		s.CoverageMode = cm
	}

	s.RequiredProperties = normalizeRequired(raw["required_properties"])
	s.Deferrals = asStringMap(raw["deferrals"])
	s.CustomCorrelations = dedupe(asStringList(raw["custom_correlations"]))
	s.MethodOverrides = asStringMap(raw["method_overrides"])

	transport, err := asBool("transport_included", raw["transport_included"])
	if err != nil {
		return nil, err
	}
	s.TransportIncluded = transport
	for dim, unit := range asStringMap(raw["base_units"]) {
		s.BaseUnits[dim] = unit
	}

	if a, ok := asString(raw["approach"]); ok && a != "" {
		approach, err := parseApproach(a)
		if err != nil {
			return nil, err
		}
		s.ApproachOverride = approach
	}

	eq, err := normalizeEquilibrium(raw["equilibrium"], missing)
	if err != nil {
		return nil, err
	}
	s.Equilibrium = eq

	eos, err := normalizeEos(raw)
	if err != nil {
		return nil, err
	}

	// Components or phases absent: references cannot be checked meaningfully.
	if len(s.Components) == 0 || len(s.Phases) == 0 {
		for _, p := range s.Phases {
			if _, ok := eos[p.ID]; !ok {
				missing.add("eos_by_phase." + p.ID)
			}
		}
		return nil, missing.orNil()
	}

	if err := checkReferences(s, eos); err != nil {
		return nil, err
	}

	for _, p := range s.Phases {
		kind, ok := eos[p.ID]
		if !ok {
			missing.add("eos_by_phase." + p.ID)
			continue
		}
		s.EosByPhase[p.ID] = kind
	}

	if err := missing.orNil(); err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeComponents(v any, missing *IncompleteSpecError) ([]Component, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		missing.add("components")
		return nil, nil
	}
	seen := make(map[string]bool, len(list))
	out := make([]Component, 0, len(list))
	for i, item := range list {
		var c Component
		switch x := item.(type) {
		case string:
			c.ID = strings.TrimSpace(x)
		case map[string]any:
			c.ID = firstString(x, "id", "name")
			comp := x["elemental_composition"]
			if comp == nil {
				comp = x["elements"]
			}
			elems, err := asIntMap(fmt.Sprintf("components[%d].elemental_composition", i), comp)
			if err != nil {
				return nil, err
			}
			c.ElementalComposition = elems
		}
		if c.ID == "" {
			missing.add(fmt.Sprintf("components[%d].id", i))
			continue
		}
		if seen[c.ID] {
			return nil, &InvalidValueError{Field: "components", Value: c.ID, Allowed: []string{"unique component ids"}}
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}

func normalizePhases(v any, missing *IncompleteSpecError) ([]Phase, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		missing.add("phases")
		return nil, nil
	}
	seen := make(map[string]bool, len(list))
	out := make([]Phase, 0, len(list))
	for i, item := range list {
		var p Phase
		var kind string
		switch x := item.(type) {
		case string:
			p.ID = strings.TrimSpace(x)
		case map[string]any:
			p.ID = firstString(x, "id", "name")
			kind = firstString(x, "kind", "type")
		}
		if p.ID == "" {
			missing.add(fmt.Sprintf("phases[%d].id", i))
			continue
		}
		if kind != "" {
			k, err := parseKind(kind)
			if err != nil {
				return nil, err
			}
			p.Kind = k
		} else if k, ok := canonicalPhases[p.ID]; ok {
			p.Kind = k
		} else {
			missing.add(fmt.Sprintf("phases[%d].kind", i))
			continue
		}
		if seen[p.ID] {
			return nil, &InvalidValueError{Field: "phases", Value: p.ID, Allowed: []string{"unique phase ids"}}
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}

func normalizeRequired(v any) RequiredProperties {
	switch x := v.(type) {
	case []any:
		return RequiredProperties{Include: dedupe(asStringList(x))}
	case map[string]any:
		return RequiredProperties{
			Include: dedupe(asStringList(x["include"])),
			Exclude: dedupe(asStringList(x["exclude"])),
		}
	}
	return RequiredProperties{}
}

func normalizeEquilibrium(v any, missing *IncompleteSpecError) (Equilibrium, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Equilibrium{}, nil
	}
	var eq Equilibrium
	required, err := asBool("equilibrium.required", m["required"])
	if err != nil {
		return Equilibrium{}, err
	}
	eq.Required = required
	if f, ok := asString(m["form"]); ok && f != "" {
		form := EquilibriumForm(strings.ToLower(f))
		if !validForms[form] {
			return Equilibrium{}, &InvalidValueError{Field: "equilibrium.form", Value: f, Allowed: []string{"fugacity", "log_fugacity"}}
		}
		eq.Form = form
	}
	pairs, _ := m["pairs"].([]any)
	for i, item := range pairs {
		var pair PhasePair
		switch x := item.(type) {
		case []any:
			if len(x) == 2 {
				pair.First, _ = asString(x[0])
				pair.Second, _ = asString(x[1])
			}
		case map[string]any:
			pair.First = firstString(x, "first", "from")
			pair.Second = firstString(x, "second", "to")
		}
		if pair.First == "" || pair.Second == "" {
			missing.add(fmt.Sprintf("equilibrium.pairs[%d]", i))
			continue
		}
		eq.Pairs = append(eq.Pairs, pair)
	}
	if eq.Required && len(eq.Pairs) == 0 {
		missing.add("equilibrium.pairs")
	}
	return eq, nil
}

// normalizeEos accepts either eos_by_phase: {phase: kind} or the skill-pack
// layout eos: {phase_to_eos: {phase: kind}}.
func normalizeEos(raw map[string]any) (map[string]EosKind, error) {
	src := asStringMap(raw["eos_by_phase"])
	if len(src) == 0 {
		if eos, ok := raw["eos"].(map[string]any); ok {
			src = asStringMap(eos["phase_to_eos"])
		}
	}
	out := make(map[string]EosKind, len(src))
	for phase, kind := range src {
		k, err := parseEos(kind)
		if err != nil {
			return nil, err
		}
		out[phase] = k
	}
	return out, nil
}

func checkReferences(s *Specification, eos map[string]EosKind) error {
	declared := make(map[string]bool, len(s.Phases))
	for _, p := range s.Phases {
		declared[p.ID] = true
	}
	for i, pair := range s.Equilibrium.Pairs {
		field := fmt.Sprintf("equilibrium.pairs[%d]", i)
		if !declared[pair.First] {
			return &InvalidReferenceError{Field: field, Ref: pair.First}
		}
		if !declared[pair.Second] {
			return &InvalidReferenceError{Field: field, Ref: pair.Second}
		}
		if pair.First == pair.Second {
			return &InvalidReferenceError{Field: field, Ref: pair.Second}
		}
	}
	phases := make([]string, 0, len(eos))
	for phase := range eos {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	for _, phase := range phases {
		if !declared[phase] {
			return &InvalidReferenceError{Field: "eos_by_phase", Ref: phase}
		}
	}
	return nil
}

// --- Enum parsing ---

func parseKind(v string) (PhaseKind, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(v), "Phase")) {
	case "liquid", "liq":
		return KindLiquid, nil
	case "vapor", "vapour", "vap":
		return KindVapor, nil
	case "solid", "sol":
		return KindSolid, nil
	}
	return "", &InvalidValueError{Field: "phase kind", Value: v, Allowed: []string{"Liquid", "Vapor", "Solid"}}
}

func parseEos(v string) (EosKind, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "IDEAL":
		return EosIdeal, nil
	case "PR":
		return EosPR, nil
	case "SRK":
		return EosSRK, nil
	}
	return "", &InvalidValueError{Field: "eos", Value: v, Allowed: []string{"Ideal", "PR", "SRK"}}
}

func parseApproach(v string) (Approach, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "generic":
		return ApproachGeneric, nil
	case "class_based", "class-based", "class", "custom":
		return ApproachClassBased, nil
	}
	return "", &InvalidValueError{Field: "approach", Value: v, Allowed: []string{"generic", "class_based"}}
}

func stateNames() []string {
	names := make([]string, 0, len(validStates))
	for s := range validStates {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

// --- Loose value helpers ---

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return strings.TrimSpace(s), ok
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := asString(m[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

func asStringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := asString(item); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := asString(val); ok {
			out[k] = s
		}
	}
	return out
}

// asIntMap reads an element-count map. Counts must be non-negative
// integers; 2.0 is accepted, 1.5 is not.
func asIntMap(field string, v any) (map[string]int, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidValueError{Field: field, Value: fmt.Sprint(v), Allowed: []string{"element: count map"}}
	}
	out := make(map[string]int, len(m))
	for k, val := range m {
		var n int
		switch x := val.(type) {
		case int:
			n = x
		case int64:
			n = int(x)
		case float64:
			if x != math.Trunc(x) || math.IsInf(x, 0) {
				return nil, &InvalidValueError{Field: field + "." + k, Value: fmt.Sprint(val), Allowed: []string{"non-negative integer"}}
			}
			n = int(x)
		default:
			return nil, &InvalidValueError{Field: field + "." + k, Value: fmt.Sprint(val), Allowed: []string{"non-negative integer"}}
		}
		if n < 0 {
			return nil, &InvalidValueError{Field: field + "." + k, Value: fmt.Sprint(val), Allowed: []string{"non-negative integer"}}
		}
		out[k] = n
	}
	return out, nil
}

// asBool reads an optional flag. Besides YAML booleans it takes the
// spellings true/false, yes/no and on/off in any case. Anything else is
// an InvalidValueError, never a silent false.
func asBool(field string, v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
	}
	return false, &InvalidValueError{Field: field, Value: fmt.Sprint(v), Allowed: []string{"true", "false"}}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
