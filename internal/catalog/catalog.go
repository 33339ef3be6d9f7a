// Package catalog is the static domain reference of the engine: which
// properties exist, when they apply, which profiles they belong to, which
// library methods compute them, and what parameters those methods need.
//
// The tables are versioned with the package. Lookups by property name and
// method id are O(1); iteration always follows declaration order so every
// consumer that walks the catalog is deterministic.
package catalog

import (
	"fmt"
	"slices"

	"github.com/HendryAvila/propgate/internal/spec"
)

// Version identifies the catalog tables. Bump it whenever a property,
// method or reference example changes.
const Version = "2026.10"

// --- Applicability enum ---

// Applicability is the precondition under which a property is meaningful.
type Applicability string

const (
	Always              Applicability = "always"
	MultiphaseOnly      Applicability = "multiphase_only"
	EquilibriumRequired Applicability = "equilibrium_required"
)

// --- Profile enum ---

// Profile is a named property set a property can belong to.
type Profile string

const (
	ProfileMinimum       Profile = "minimum"
	ProfileComprehensive Profile = "comprehensive"
	ProfileTransport     Profile = "transport"
)

// Property is one row of the property table.
type Property struct {
	Name          string        `json:"name"`
	Applicability Applicability `json:"applicability"`
	Profiles      []Profile     `json:"profiles,omitempty"`
	Description   string        `json:"description"`
}

// In reports whether the property belongs to profile p.
func (p Property) In(profile Profile) bool {
	return slices.Contains(p.Profiles, profile)
}

// --- Parameters ---

// ParamScope says how a method parameter expands into ledger keys.
type ParamScope string

const (
	PerComponent ParamScope = "component"
	PerPhase     ParamScope = "phase"
	PerPackage   ParamScope = "package"

	// PerCubicEos expands to one package key "<EOS>_<name>" per cubic
	// EOS kind in use, e.g. PR_kappa.
	PerCubicEos ParamScope = "cubic_eos"
)

// Parameter is a parameter a method requires.
type Parameter struct {
	Key   string     `json:"key"`
	Scope ParamScope `json:"scope"`
}

// --- Methods ---

// Wildcard in Method.Computes means the method can compute any property.
const Wildcard = "*"

// Method is a computation method the modeling library (or a hand-written
// class) can use for one or more properties.
type Method struct {
	ID       string               `json:"id"`
	Computes []string             `json:"computes"`
	Generic  bool                 `json:"generic"`
	Families []spec.EosFamily     `json:"families,omitempty"`
	Form     spec.EquilibriumForm `json:"form,omitempty"`
	Params   []Parameter          `json:"params,omitempty"`
	Notes    string               `json:"notes,omitempty"`
}

// SupportsFamily reports whether the method works with EOS family f.
// A method with no declared families works with all of them.
func (m Method) SupportsFamily(f spec.EosFamily) bool {
	return len(m.Families) == 0 || slices.Contains(m.Families, f)
}

// SupportsAny reports whether the method works with at least one of fs.
func (m Method) SupportsAny(fs []spec.EosFamily) bool {
	if len(m.Families) == 0 {
		return true
	}
	for _, f := range fs {
		if slices.Contains(m.Families, f) {
			return true
		}
	}
	return false
}

// ExplicitlySupports reports whether the method declares f by name rather
// than by accepting every family.
func (m Method) ExplicitlySupports(f spec.EosFamily) bool {
	return slices.Contains(m.Families, f)
}

// --- Reference examples ---

// Reference is an official example package whose methods have been
// validated together for one EOS family and equilibrium form.
type Reference struct {
	Name       string               `json:"name"`
	Family     spec.EosFamily       `json:"family"`
	Form       spec.EquilibriumForm `json:"form,omitempty"`
	Multiphase bool                 `json:"multiphase"`
	Methods    []string             `json:"methods"`
}

// Validates reports whether the reference example uses method id.
func (r Reference) Validates(id string) bool {
	return slices.Contains(r.Methods, id)
}

// --- Catalog ---

// Catalog indexes the property, method and reference tables.
type Catalog struct {
	properties []Property
	byName     map[string]int
	methods    []Method
	byID       map[string]int
	references []Reference
}

// New builds a catalog and checks the tables for duplicates and dangling
// method references.
func New(properties []Property, methods []Method, references []Reference) (*Catalog, error) {
	c := &Catalog{
		properties: properties,
		byName:     make(map[string]int, len(properties)),
		methods:    methods,
		byID:       make(map[string]int, len(methods)),
		references: references,
	}
	for i, p := range properties {
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate property %q", p.Name)
		}
		c.byName[p.Name] = i
	}
	for i, m := range methods {
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate method %q", m.ID)
		}
		c.byID[m.ID] = i
	}
	for _, r := range references {
		for _, id := range r.Methods {
			if _, ok := c.byID[id]; !ok {
				return nil, fmt.Errorf("reference %s uses unknown method %q", r.Name, id)
			}
		}
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultProperties(), defaultMethods(), defaultReferences())
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in tables are inconsistent: %v", err))
	}
	return c
}

// Property looks up a property by name.
func (c *Catalog) Property(name string) (Property, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Property{}, false
	}
	return c.properties[i], true
}

// Properties returns the property table in declaration order.
func (c *Catalog) Properties() []Property {
	return slices.Clone(c.properties)
}

// Method looks up a method by id.
func (c *Catalog) Method(id string) (Method, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Method{}, false
	}
	return c.methods[i], true
}

// Methods returns the method table in declaration order.
func (c *Catalog) Methods() []Method {
	return slices.Clone(c.methods)
}

// References returns the reference examples.
func (c *Catalog) References() []Reference {
	return slices.Clone(c.references)
}

// MethodsFor returns every method that can compute property for s, in
// declaration order. State variables of the chosen state definition are
// computed by the state definition itself. Wildcard methods come last.
func (c *Catalog) MethodsFor(property string, s *spec.Specification) []Method {
	var out, wildcard []Method
	isStateVar := slices.Contains(StateVars(s.StateDefinition), property)
	for _, m := range c.methods {
		switch {
		case m.ID == StateDefinitionMethod && isStateVar:
			out = append(out, m)
		case slices.Contains(m.Computes, property):
			out = append(out, m)
		case slices.Contains(m.Computes, Wildcard):
			wildcard = append(wildcard, m)
		}
	}
	return append(out, wildcard...)
}

// HasGenericMethod reports whether property has at least one
// Generic-compatible method usable with the EOS families of s.
func (c *Catalog) HasGenericMethod(property string, s *spec.Specification) bool {
	families := s.Families()
	for _, m := range c.MethodsFor(property, s) {
		if m.Generic && m.SupportsAny(families) {
			return true
		}
	}
	return false
}

// ReferenceFor returns the reference example matching the EOS profile of
// s and the chosen equilibrium form, if there is one. Mixed EOS families
// have no reference.
func (c *Catalog) ReferenceFor(s *spec.Specification, form spec.EquilibriumForm) (Reference, bool) {
	families := s.Families()
	if len(families) != 1 {
		return Reference{}, false
	}
	for _, r := range c.references {
		if r.Family != families[0] || r.Multiphase != s.IsMultiphase() {
			continue
		}
		if r.Multiphase && r.Form != form {
			continue
		}
		return r, true
	}
	return Reference{}, false
}

// --- EOS / equilibrium form compatibility ---

var formCompatibility = map[spec.EosFamily][]spec.EquilibriumForm{
	spec.FamilyIdeal: {spec.FormFugacity, spec.FormLogFugacity},
	spec.FamilyCubic: {spec.FormLogFugacity},
}

// FormCompatible reports whether the equilibrium form can be used with a
// phase of EOS family f.
func FormCompatible(f spec.EosFamily, form spec.EquilibriumForm) bool {
	return slices.Contains(formCompatibility[f], form)
}

// CompatibleForms returns the forms usable with family f, in preference
// order.
func CompatibleForms(f spec.EosFamily) []spec.EquilibriumForm {
	return slices.Clone(formCompatibility[f])
}
