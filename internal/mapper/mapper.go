// Package mapper binds each resolved property to a computation method and
// checks the parameters those methods need against the provenance ledger.
//
// Method priority is (a) validated by the reference example for the run's
// EOS family and equilibrium form, (b) explicitly declared for the EOS
// family or form in use, (c) fewest missing parameters. Remaining ties go
// to catalog declaration order. Relaxed mode, used by repair, ranks (c)
// first.
//
// The mapper never invents a value. Missing keys are looked up through the
// knowledge chain when asked to, and otherwise reported as missing or, under
// the placeholder policy, recorded as explicit TODO placeholders.
package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/knowledge"
	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/spec"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// --- Resolution policy enum ---

// Policy says what happens to keys that stay missing after lookup.
type Policy string

const (
	PolicyNone        Policy = "none"
	PolicyPlaceholder Policy = "placeholder"
)

var validPolicies = map[Policy]bool{
	PolicyNone:        true,
	PolicyPlaceholder: true,
}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !validPolicies[p] {
		return "", fmt.Errorf("unknown resolution policy %q (allowed: none, placeholder)", s)
	}
	return p, nil
}

// --- Parameter status enum ---

// ParameterStatus is the state of one parameter key in the matrix.
type ParameterStatus string

const (
	ParamPresent     ParameterStatus = "present"
	ParamPlaceholder ParameterStatus = "placeholder"
	ParamMissing     ParameterStatus = "missing"
)

// --- Output types ---

// Binding is the method chosen for one property.
type Binding struct {
	Property              string   `json:"property_name"`
	MethodID              string   `json:"method_id"`
	RequiredParameterKeys []string `json:"required_parameter_keys"`
}

// MatrixRow is one parameter key of the completeness matrix.
type MatrixRow struct {
	Key        ledger.Key        `json:"key"`
	Status     ParameterStatus   `json:"status"`
	Value      string            `json:"value,omitempty"`
	Unit       string            `json:"units,omitempty"`
	Source     string            `json:"source,omitempty"`
	Confidence ledger.Confidence `json:"confidence,omitempty"`
	RequiredBy []string          `json:"required_by"`
}

// Result is the outcome of Map.
type Result struct {
	Form      spec.EquilibriumForm `json:"equilibrium_form,omitempty"`
	Reference string               `json:"reference_example,omitempty"`
	Bindings  []Binding            `json:"method_bindings"`
	Unbound   []string             `json:"unbound_properties,omitempty"`
	Matrix    []MatrixRow          `json:"parameter_matrix"`

	// Decisions are not yet linked to a run.
	Decisions []decision.Decision `json:"decisions,omitempty"`
}

// Gaps returns every matrix row that is not present, in matrix order.
func (r *Result) Gaps() []MatrixRow {
	var out []MatrixRow
	for _, row := range r.Matrix {
		if row.Status != ParamPresent {
			out = append(out, row)
		}
	}
	return out
}

// Binding returns the binding for property, if any.
func (r *Result) Binding(property string) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Property == property {
			return b, true
		}
	}
	return Binding{}, false
}

// Probe is the side-effect-free view of one property used by the
// coverage gate.
type Probe struct {
	Candidates        []string `json:"candidates"`
	Method            string   `json:"method,omitempty"`
	Custom            bool     `json:"custom,omitempty"`
	MissingParameters []string `json:"missing_parameters,omitempty"`
}

// Options tunes one Map call.
type Options struct {
	// Relaxed ranks methods by fewest missing parameters first.
	Relaxed bool
	// Lookup queries the knowledge chain for missing keys.
	Lookup bool
}

// Config configures a Mapper.
type Config struct {
	Policy Policy
	Logger *slog.Logger
}

// --- Mapper ---

// Mapper selects methods and builds the parameter-completeness matrix.
type Mapper struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	chain   *knowledge.Chain
	policy  Policy
	logger  *slog.Logger
}

// New creates a Mapper. chain may be nil, in which case lookups find
// nothing.
func New(cat *catalog.Catalog, led *ledger.Ledger, chain *knowledge.Chain, cfg Config) *Mapper {
	m := &Mapper{
		catalog: cat,
		ledger:  led,
		chain:   chain,
		policy:  cfg.Policy,
		logger:  cfg.Logger,
	}
	if m.policy == "" {
		m.policy = PolicyNone
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// SelectForm chooses the equilibrium form. A form forced by the request or
// by a method override must suit the EOS of both phases of every pair.
// Otherwise the first form in preference order that suits all of them is
// chosen. Without required equilibrium there is no form.
func (m *Mapper) SelectForm(s *spec.Specification) (spec.EquilibriumForm, []decision.Decision, error) {
	if !s.Equilibrium.Required {
		return spec.FormAuto, nil, nil
	}

	forced, source := s.Equilibrium.Form, "equilibrium.form"
	overrideID := s.MethodOverrides[catalog.PropPhaseEquilibriumForm]
	if overrideID != "" {
		meth, ok := m.catalog.Method(overrideID)
		if !ok || meth.Form == spec.FormAuto {
			return "", nil, &OverrideError{
				Property: catalog.PropPhaseEquilibriumForm,
				Method:   overrideID,
				Reason:   "not an equilibrium form method",
			}
		}
		if forced != spec.FormAuto && forced != meth.Form {
			return "", nil, &IncompatibleEquilibriumConfig{
				Form:   forced,
				Method: overrideID,
				Reason: fmt.Sprintf("equilibrium.form %s contradicts method override %s (%s)", forced, overrideID, meth.Form),
			}
		}
		forced, source = meth.Form, "method override "+overrideID
	}

	phases := pairPhases(s)
	if forced != spec.FormAuto {
		for _, pp := range phases {
			eos := s.EosByPhase[pp.phase]
			if !catalog.FormCompatible(eos.Family(), forced) {
				return "", nil, &IncompatibleEquilibriumConfig{
					Pair: pp.pair, Phase: pp.phase, Eos: eos, Form: forced, Method: overrideID,
				}
			}
		}
		return forced, []decision.Decision{{
			Point:     decision.PointEquilibriumForm,
			Selected:  string(forced),
			Rejected:  string(otherForm(forced)),
			Rationale: fmt.Sprintf("force-selected by %s; compatible with the EOS of every equilibrium pair", source),
		}}, nil
	}

	for _, form := range catalog.CompatibleForms(spec.FamilyIdeal) {
		ok := true
		var cubic []string
		for _, pp := range phases {
			eos := s.EosByPhase[pp.phase]
			if !catalog.FormCompatible(eos.Family(), form) {
				ok = false
				break
			}
			if eos.Family() == spec.FamilyCubic {
				cubic = append(cubic, pp.phase+"="+string(eos))
			}
		}
		if !ok {
			continue
		}
		rationale := "every equilibrium phase uses an ideal EOS; fugacity is the preferred form"
		if len(cubic) > 0 {
			rationale = fmt.Sprintf("cubic EOS on %s admits only log_fugacity", strings.Join(dedupe(cubic), ", "))
		}
		return form, []decision.Decision{{
			Point:     decision.PointEquilibriumForm,
			Selected:  string(form),
			Rejected:  string(otherForm(form)),
			Rationale: rationale,
		}}, nil
	}
	// Unreachable with the built-in compatibility table: log_fugacity
	// suits every family.
	return "", nil, &IncompatibleEquilibriumConfig{Reason: "no equilibrium form suits every equilibrium pair"}
}

// Probe reports, without touching the ledger, which method the mapper
// would bind for property and which of its parameters are missing. relaxed
// selects the repair ranking.
func (m *Mapper) Probe(ctx context.Context, s *spec.Specification, approach spec.Approach, property string, form spec.EquilibriumForm, relaxed bool) (Probe, error) {
	var p Probe
	if id := s.MethodOverrides[property]; id != "" {
		meth, err := m.override(s, approach, property, id, form)
		if err != nil {
			return Probe{}, err
		}
		p.Candidates = []string{meth.ID}
		return m.fillProbe(ctx, s, p, meth)
	}

	cands := m.candidates(s, approach, property, form)
	for _, c := range cands {
		p.Candidates = append(p.Candidates, c.ID)
	}
	if len(cands) == 0 {
		return p, nil
	}
	ranked, err := m.rank(ctx, s, cands, form, relaxed)
	if err != nil {
		return Probe{}, err
	}
	return m.fillProbe(ctx, s, p, ranked[0].method)
}

func (m *Mapper) fillProbe(ctx context.Context, s *spec.Specification, p Probe, meth catalog.Method) (Probe, error) {
	p.Method = meth.ID
	p.Custom = meth.ID == catalog.CustomCorrelationMethod
	missing, err := m.missingKeys(ctx, keysFor(meth.Params, s))
	if err != nil {
		return Probe{}, err
	}
	for _, k := range missing {
		p.MissingParameters = append(p.MissingParameters, k.String())
	}
	return p, nil
}

// Map binds every property in props and builds the parameter matrix.
// Properties without any usable method are listed in Result.Unbound.
func (m *Mapper) Map(ctx context.Context, s *spec.Specification, approach spec.Approach, props []string, opts Options) (*Result, error) {
	form, decisions, err := m.SelectForm(s)
	if err != nil {
		return nil, err
	}
	res := &Result{Form: form, Decisions: decisions}
	if ref, ok := m.catalog.ReferenceFor(s, form); ok {
		res.Reference = ref.Name
	}

	var bound []catalog.Method
	for _, prop := range props {
		meth, ok, ds, err := m.bind(ctx, s, approach, prop, form, opts.Relaxed)
		if err != nil {
			return nil, err
		}
		res.Decisions = append(res.Decisions, ds...)
		if !ok {
			res.Unbound = append(res.Unbound, prop)
			continue
		}
		keys := keysFor(meth.Params, s)
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		res.Bindings = append(res.Bindings, Binding{Property: prop, MethodID: meth.ID, RequiredParameterKeys: names})
		bound = append(bound, meth)
	}

	required := requiredKeys(s, bound)
	if opts.Lookup {
		if err := m.lookupMissing(ctx, required); err != nil {
			return nil, err
		}
	}
	if m.policy == PolicyPlaceholder {
		if err := m.placeholdMissing(ctx, required); err != nil {
			return nil, err
		}
	}

	for _, rk := range required {
		row := MatrixRow{Key: rk.key, Status: ParamMissing, RequiredBy: rk.requiredBy}
		rec, ok, err := m.ledger.Resolve(ctx, rk.key)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", rk.key, err)
		}
		if ok {
			row.Unit, row.Source, row.Confidence = rec.Unit, rec.Source, rec.Confidence
			if rec.IsPlaceholder() {
				row.Status = ParamPlaceholder
			} else {
				row.Status, row.Value = ParamPresent, rec.Value
				d, err := m.conflictDecision(ctx, rk.key, rec)
				if err != nil {
					return nil, err
				}
				if d != nil {
					res.Decisions = append(res.Decisions, *d)
				}
			}
		}
		res.Matrix = append(res.Matrix, row)
	}
	return res, nil
}

// bind picks the method for one property. In relaxed mode it also records
// a decision when the relaxed choice differs from the strict one.
func (m *Mapper) bind(ctx context.Context, s *spec.Specification, approach spec.Approach, prop string, form spec.EquilibriumForm, relaxed bool) (catalog.Method, bool, []decision.Decision, error) {
	if id := s.MethodOverrides[prop]; id != "" {
		meth, err := m.override(s, approach, prop, id, form)
		if err != nil {
			return catalog.Method{}, false, nil, err
		}
		return meth, true, nil, nil
	}

	cands := m.candidates(s, approach, prop, form)
	if len(cands) == 0 {
		return catalog.Method{}, false, nil, nil
	}
	ranked, err := m.rank(ctx, s, cands, form, relaxed)
	if err != nil {
		return catalog.Method{}, false, nil, err
	}
	best := ranked[0]
	if !relaxed || len(ranked) == 1 {
		return best.method, true, nil, nil
	}

	strict, err := m.rank(ctx, s, cands, form, false)
	if err != nil {
		return catalog.Method{}, false, nil, err
	}
	if strict[0].method.ID == best.method.ID {
		return best.method, true, nil, nil
	}
	d := decision.Decision{
		Point:    decision.PointMethodSelection,
		Selected: prop + " -> " + best.method.ID,
		Rejected: prop + " -> " + strict[0].method.ID,
		Rationale: fmt.Sprintf("relaxed repair ranking: %s misses %d parameter(s), %s misses %d",
			best.method.ID, best.missing, strict[0].method.ID, strict[0].missing),
	}
	if strict[0].reference && !best.reference {
		d.RiskNotes = append(d.RiskNotes, fmt.Sprintf("%s is not validated by the reference example", best.method.ID))
	}
	return best.method, true, []decision.Decision{d}, nil
}

// override validates a force-selected method.
func (m *Mapper) override(s *spec.Specification, approach spec.Approach, prop, id string, form spec.EquilibriumForm) (catalog.Method, error) {
	meth, ok := m.catalog.Method(id)
	if !ok {
		return catalog.Method{}, &OverrideError{Property: prop, Method: id, Reason: "unknown method"}
	}
	computes := slices.Contains(meth.Computes, prop) || slices.Contains(meth.Computes, catalog.Wildcard) ||
		(meth.ID == catalog.StateDefinitionMethod && slices.Contains(catalog.StateVars(s.StateDefinition), prop))
	if !computes {
		return catalog.Method{}, &OverrideError{Property: prop, Method: id, Reason: "method does not compute this property"}
	}
	if approach == spec.ApproachGeneric && !meth.Generic {
		return catalog.Method{}, &OverrideError{Property: prop, Method: id, Reason: "method is not available to a generic package"}
	}
	if meth.Form != spec.FormAuto && form != spec.FormAuto && meth.Form != form {
		return catalog.Method{}, &IncompatibleEquilibriumConfig{
			Form:   meth.Form,
			Method: id,
			Reason: fmt.Sprintf("method %s uses %s but the selected equilibrium form is %s", id, meth.Form, form),
		}
	}
	if slices.Contains(catalog.EquilibriumTriad, prop) && !supportsPairs(meth, s) {
		return catalog.Method{}, &IncompatibleEquilibriumConfig{
			Method: id,
			Reason: fmt.Sprintf("method %s does not support the EOS of every equilibrium phase", id),
		}
	}
	if !meth.SupportsAny(s.Families()) {
		return catalog.Method{}, &IncompatibleEquilibriumConfig{
			Method: id,
			Reason: fmt.Sprintf("method %s supports none of the EOS families in use (%s)", id, joinFamilies(s.Families())),
		}
	}
	return meth, nil
}

// candidates filters the catalog methods for prop by approach, EOS family
// and equilibrium form. Equilibrium triad methods must also support the EOS
// of both phases of every pair. The custom correlation is a candidate only for a
// class-based package, and only when the user demanded it or no library
// method qualifies.
func (m *Mapper) candidates(s *spec.Specification, approach spec.Approach, prop string, form spec.EquilibriumForm) []catalog.Method {
	var custom *catalog.Method
	var out []catalog.Method
	families := s.Families()
	triad := slices.Contains(catalog.EquilibriumTriad, prop)
	for _, meth := range m.catalog.MethodsFor(prop, s) {
		if meth.ID == catalog.CustomCorrelationMethod {
			if approach == spec.ApproachClassBased {
				custom = &meth
			}
			continue
		}
		if approach == spec.ApproachGeneric && !meth.Generic {
			continue
		}
		if !meth.SupportsAny(families) {
			continue
		}
		if meth.Form != spec.FormAuto && form != spec.FormAuto && meth.Form != form {
			continue
		}
		if triad && !supportsPairs(meth, s) {
			continue
		}
		out = append(out, meth)
	}
	if custom != nil && (len(out) == 0 || s.RequiresCustomCorrelation(prop)) {
		return []catalog.Method{*custom}
	}
	if s.RequiresCustomCorrelation(prop) {
		return nil
	}
	return out
}

type scored struct {
	method    catalog.Method
	reference bool
	explicit  bool
	missing   int
	order     int
}

func (m *Mapper) rank(ctx context.Context, s *spec.Specification, cands []catalog.Method, form spec.EquilibriumForm, relaxed bool) ([]scored, error) {
	ref, hasRef := m.catalog.ReferenceFor(s, form)
	families := s.Families()

	out := make([]scored, len(cands))
	for i, meth := range cands {
		missing, err := m.missingKeys(ctx, keysFor(meth.Params, s))
		if err != nil {
			return nil, err
		}
		sc := scored{method: meth, missing: len(missing), order: i}
		sc.reference = hasRef && ref.Validates(meth.ID)
		sc.explicit = form != spec.FormAuto && meth.Form == form
		for _, f := range families {
			if meth.ExplicitlySupports(f) {
				sc.explicit = true
			}
		}
		out[i] = sc
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if relaxed && a.missing != b.missing {
			return a.missing < b.missing
		}
		if a.reference != b.reference {
			return a.reference
		}
		if a.explicit != b.explicit {
			return a.explicit
		}
		if a.missing != b.missing {
			return a.missing < b.missing
		}
		return a.order < b.order
	})
	return out, nil
}

// missingKeys returns the keys with no live real value. Placeholders count
// as missing.
func (m *Mapper) missingKeys(ctx context.Context, keys []ledger.Key) ([]ledger.Key, error) {
	var out []ledger.Key
	for _, k := range keys {
		rec, ok, err := m.ledger.Resolve(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", k, err)
		}
		if !ok || rec.IsPlaceholder() {
			out = append(out, k)
		}
	}
	return out, nil
}

// lookupMissing fans the missing keys out to the knowledge chain and
// records every accepted hit.
func (m *Mapper) lookupMissing(ctx context.Context, required []requiredKey) error {
	if m.chain.Len() == 0 {
		return nil
	}
	keys := make([]ledger.Key, len(required))
	for i, rk := range required {
		keys[i] = rk.key
	}
	missing, err := m.missingKeys(ctx, keys)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i, k := range missing {
		texts[i] = k.String()
	}
	hits, err := m.chain.LookupAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("looking up parameters: %w", err)
	}

	// Insert in key order so the ledger sequence is deterministic.
	for _, k := range missing {
		res, ok := hits[k.String()]
		if !ok {
			continue
		}
		value, unit, err := res.Hit.ValueFor(k.Name)
		if err != nil {
			m.logger.WarnContext(ctx, "discarding unparseable hit",
				"key", k.String(),
				"collaborator", res.Collaborator,
				"error", err,
			)
			continue
		}
		rec := ledger.Record{
			Key:         k,
			Value:       value,
			Unit:        unit,
			Source:      res.Hit.Locator,
			RetrievedOn: timeNow().UTC(),
			Confidence:  res.Hit.ConfidenceHint,
			Notes:       fmt.Sprintf("found by %s (%s)", res.Collaborator, res.Scope),
		}
		if _, err := m.ledger.Insert(ctx, rec, ledger.InsertOptions{}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.WarnContext(ctx, "ledger rejected lookup result", "key", k.String(), "error", err)
		}
	}
	return nil
}

// placeholdMissing records an explicit TODO placeholder for every key
// that still has no record at all.
func (m *Mapper) placeholdMissing(ctx context.Context, required []requiredKey) error {
	for _, rk := range required {
		_, ok, err := m.ledger.Resolve(ctx, rk.key)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", rk.key, err)
		}
		if ok {
			continue
		}
		notes := "no source found; required by " + strings.Join(rk.requiredBy, ", ")
		if _, err := m.ledger.Insert(ctx, ledger.Placeholder(rk.key, "", notes, timeNow().UTC()), ledger.InsertOptions{}); err != nil {
			return fmt.Errorf("recording placeholder for %s: %w", rk.key, err)
		}
	}
	return nil
}

func (m *Mapper) conflictDecision(ctx context.Context, key ledger.Key, kept ledger.Record) (*decision.Decision, error) {
	c, ok, err := m.ledger.ConflictFor(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var rejected []string
	for _, r := range c.Records {
		if r.Seq != kept.Seq {
			rejected = append(rejected, fmt.Sprintf("%s %s from %s", r.Value, r.Unit, r.Source))
		}
	}
	return &decision.Decision{
		Point:     decision.PointParameterConflict,
		Selected:  fmt.Sprintf("%s = %s %s from %s", key, kept.Value, kept.Unit, kept.Source),
		Rejected:  strings.Join(rejected, "; "),
		Rationale: fmt.Sprintf("%d %s-confidence sources disagree; the most recently retrieved record is used", len(c.Records), kept.Confidence),
		RiskNotes: []string{"conflicting sources are retained in the ledger and need review"},
	}, nil
}

// --- Parameter key expansion ---

type requiredKey struct {
	key        ledger.Key
	requiredBy []string
}

// BaseRequirement names the package-wide parameters in RequiredBy.
const BaseRequirement = "base"

// requiredKeys expands the base parameters and every bound method's
// parameters into ledger keys, in first-seen order.
func requiredKeys(s *spec.Specification, methods []catalog.Method) []requiredKey {
	var out []requiredKey
	index := make(map[ledger.Key]int)
	add := func(k ledger.Key, by string) {
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, requiredKey{key: k, requiredBy: []string{by}})
			return
		}
		if !slices.Contains(out[i].requiredBy, by) {
			out[i].requiredBy = append(out[i].requiredBy, by)
		}
	}
	for _, k := range keysFor(catalog.BaseParameters, s) {
		add(k, BaseRequirement)
	}
	for _, meth := range methods {
		for _, k := range keysFor(meth.Params, s) {
			add(k, meth.ID)
		}
	}
	return out
}

// keysFor expands parameters into ledger keys for the components, phases
// and cubic EOS kinds of s.
func keysFor(params []catalog.Parameter, s *spec.Specification) []ledger.Key {
	var out []ledger.Key
	for _, p := range params {
		switch p.Scope {
		case catalog.PerComponent:
			for _, c := range s.Components {
				out = append(out, ledger.ComponentKey(p.Key, c.ID))
			}
		case catalog.PerPhase:
			for _, ph := range s.Phases {
				out = append(out, ledger.PhaseKey(p.Key, ph.ID))
			}
		case catalog.PerPackage:
			out = append(out, ledger.PackageKey(p.Key))
		case catalog.PerCubicEos:
			for _, k := range s.CubicKinds() {
				out = append(out, ledger.PackageKey(string(k)+"_"+p.Key))
			}
		}
	}
	return out
}

// --- helpers ---

type pairPhase struct {
	pair  spec.PhasePair
	phase string
}

func pairPhases(s *spec.Specification) []pairPhase {
	var out []pairPhase
	for _, pair := range s.Equilibrium.Pairs {
		out = append(out, pairPhase{pair, pair.First}, pairPhase{pair, pair.Second})
	}
	return out
}

// supportsPairs reports whether meth works with the EOS of every phase
// that takes part in an equilibrium pair.
func supportsPairs(meth catalog.Method, s *spec.Specification) bool {
	for _, pp := range pairPhases(s) {
		if !meth.SupportsFamily(s.EosByPhase[pp.phase].Family()) {
			return false
		}
	}
	return true
}

func otherForm(f spec.EquilibriumForm) spec.EquilibriumForm {
	if f == spec.FormFugacity {
		return spec.FormLogFugacity
	}
	return spec.FormFugacity
}

func joinFamilies(fs []spec.EosFamily) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
