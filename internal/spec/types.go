// Package spec turns a loosely specified property-package request into a
// strict Specification.
//
// High-impact fields (components, phases, state definition, EOS per phase)
// are never guessed: when they are absent the normalizer reports them in a
// single IncompleteSpecError. Low-impact fields get the documented defaults
// in Defaults.
package spec

import (
	"fmt"
	"sort"
	"strings"
)

// --- Phase kind enum ---

// PhaseKind is the physical nature of a phase.
type PhaseKind string

const (
	KindLiquid PhaseKind = "Liquid"
	KindVapor  PhaseKind = "Vapor"
	KindSolid  PhaseKind = "Solid"
)

var validKinds = map[PhaseKind]bool{
	KindLiquid: true,
	KindVapor:  true,
	KindSolid:  true,
}

// canonicalPhases maps the conventional short phase ids to their kind.
// Only these ids may omit an explicit kind.
var canonicalPhases = map[string]PhaseKind{
	"Liq": KindLiquid,
	"Vap": KindVapor,
	"Sol": KindSolid,
}

// --- State definition enum ---

// StateDefinition names the state-variable formulation of the package.
type StateDefinition string

const (
	StateFTPx   StateDefinition = "FTPx"
	StateFpcTP  StateDefinition = "FpcTP"
	StateFcTP   StateDefinition = "FcTP"
	StateFPhx   StateDefinition = "FPhx"
	StateFcPh   StateDefinition = "FcPh"
	StateCustom StateDefinition = "custom"
)

var validStates = map[StateDefinition]bool{
	StateFTPx:   true,
	StateFpcTP:  true,
	StateFcTP:   true,
	StateFPhx:   true,
	StateFcPh:   true,
	StateCustom: true,
}

// IsLibraryStandard reports whether the modeling library ships this state
// definition. Non-standard formulations force a class-based package.
func (s StateDefinition) IsLibraryStandard() bool {
	return validStates[s] && s != StateCustom
}

// IsPhaseFlow reports whether the state variables carry per-phase flows,
// so the phase split is part of the state rather than computed by a flash.
func (s StateDefinition) IsPhaseFlow() bool {
	return s == StateFpcTP
}

// --- Coverage mode enum ---

// CoverageMode is the strictness profile for required properties.
type CoverageMode string

const (
	ModeMinimum       CoverageMode = "minimum"
	ModeComprehensive CoverageMode = "comprehensive"
)

var validModes = map[CoverageMode]bool{
	ModeMinimum:       true,
	ModeComprehensive: true,
}

// --- Equilibrium form enum ---

// EquilibriumForm is the formulation of the phase-equilibrium condition.
type EquilibriumForm string

const (
	FormAuto        EquilibriumForm = ""
	FormFugacity    EquilibriumForm = "fugacity"
	FormLogFugacity EquilibriumForm = "log_fugacity"
)

var validForms = map[EquilibriumForm]bool{
	FormAuto:        true,
	FormFugacity:    true,
	FormLogFugacity: true,
}

// --- EOS enum ---

// EosKind is the equation of state chosen for a phase.
type EosKind string

const (
	EosIdeal EosKind = "Ideal"
	EosPR    EosKind = "PR"
	EosSRK   EosKind = "SRK"
)

var validEos = map[EosKind]bool{
	EosIdeal: true,
	EosPR:    true,
	EosSRK:   true,
}

// EosFamily groups EOS kinds that share equilibrium-form constraints.
type EosFamily string

const (
	FamilyIdeal EosFamily = "ideal"
	FamilyCubic EosFamily = "cubic"
)

// Family returns the EOS family of the kind.
func (k EosKind) Family() EosFamily {
	if k == EosPR || k == EosSRK {
		return FamilyCubic
	}
	return FamilyIdeal
}

// --- Approach enum ---

// Approach is one of the two mutually exclusive implementation strategies.
type Approach string

const (
	ApproachNone       Approach = ""
	ApproachGeneric    Approach = "generic"
	ApproachClassBased Approach = "class_based"
)

var validApproaches = map[Approach]bool{
	ApproachNone:       true,
	ApproachGeneric:    true,
	ApproachClassBased: true,
}

// --- Core data structures ---

// Component is a chemical species in the package.
type Component struct {
	ID                   string         `json:"id" yaml:"id"`
	ElementalComposition map[string]int `json:"elemental_composition,omitempty" yaml:"elemental_composition,omitempty"`
}

// Phase is a declared phase of the package.
type Phase struct {
	ID   string    `json:"id" yaml:"id"`
	Kind PhaseKind `json:"kind" yaml:"kind"`
}

// PhasePair is an ordered pair of phases assumed to reach equilibrium,
// conventionally (vapor, liquid).
type PhasePair struct {
	First  string `json:"first" yaml:"first"`
	Second string `json:"second" yaml:"second"`
}

func (p PhasePair) String() string {
	return fmt.Sprintf("(%s, %s)", p.First, p.Second)
}

// Equilibrium captures the phase-equilibrium requirements.
type Equilibrium struct {
	Required bool            `json:"required" yaml:"required"`
	Pairs    []PhasePair     `json:"pairs,omitempty" yaml:"pairs,omitempty"`
	Form     EquilibriumForm `json:"form,omitempty" yaml:"form,omitempty"`
}

// RequiredProperties holds the explicit user additions and removals applied
// on top of the coverage profile.
type RequiredProperties struct {
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Specification is the normalized request. It is owned by a single
// pipeline run.
type Specification struct {
	Name               string             `json:"name"`
	Components         []Component        `json:"components"`
	Phases             []Phase            `json:"phases"`
	StateDefinition    StateDefinition    `json:"state_definition"`
	CoverageMode       CoverageMode       `json:"coverage_mode"`
	RequiredProperties RequiredProperties `json:"required_properties"`
	Deferrals          map[string]string  `json:"deferrals,omitempty"`
	Equilibrium        Equilibrium        `json:"equilibrium"`
	EosByPhase         map[string]EosKind `json:"eos_by_phase"`
	TransportIncluded  bool               `json:"transport_included"`
	BaseUnits          map[string]string  `json:"base_units"`
	ApproachOverride   Approach           `json:"approach_override,omitempty"`
	CustomCorrelations []string           `json:"custom_correlations,omitempty"`
	MethodOverrides    map[string]string  `json:"method_overrides,omitempty"`
}

// Phase returns the declared phase with the given id.
func (s *Specification) Phase(id string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// IsMultiphase reports whether more than one phase is declared.
func (s *Specification) IsMultiphase() bool {
	return len(s.Phases) > 1
}

// ComponentIDs returns component ids in declaration order.
func (s *Specification) ComponentIDs() []string {
	ids := make([]string, len(s.Components))
	for i, c := range s.Components {
		ids[i] = c.ID
	}
	return ids
}

// PhaseIDs returns phase ids in declaration order.
func (s *Specification) PhaseIDs() []string {
	ids := make([]string, len(s.Phases))
	for i, p := range s.Phases {
		ids[i] = p.ID
	}
	return ids
}

// Families returns the distinct EOS families in use, sorted.
func (s *Specification) Families() []EosFamily {
	seen := make(map[EosFamily]bool)
	for _, k := range s.EosByPhase {
		seen[k.Family()] = true
	}
	out := make([]EosFamily, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CubicKinds returns the distinct cubic EOS kinds in use, sorted.
func (s *Specification) CubicKinds() []EosKind {
	seen := make(map[EosKind]bool)
	for _, k := range s.EosByPhase {
		if k.Family() == FamilyCubic {
			seen[k] = true
		}
	}
	out := make([]EosKind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsDeferred reports whether the user accepted a deferral for property.
func (s *Specification) IsDeferred(property string) bool {
	note, ok := s.Deferrals[property]
	return ok && strings.TrimSpace(note) != ""
}

// RequiresCustomCorrelation reports whether the user demanded a
// non-library correlation for property.
func (s *Specification) RequiresCustomCorrelation(property string) bool {
	for _, p := range s.CustomCorrelations {
		if p == property {
			return true
		}
	}
	return false
}
