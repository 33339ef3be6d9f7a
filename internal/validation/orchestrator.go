// Package validation drives a normalized specification from planning to a
// terminal Ready or Blocked state.
//
// Planning resolves the property set, selects the approach and equilibrium
// form, and runs the coverage gate. Probing maps methods and parameters and
// runs the fixed checklist. Only parameter gaps are repaired: the mapper is
// re-invoked in relaxed mode with the knowledge chain, at most
// MaxRepairIterations times. Every other failure blocks with an explicit
// reason and the list of unresolved items.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HendryAvila/propgate/internal/approach"
	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/coverage"
	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/metrics"
	"github.com/HendryAvila/propgate/internal/spec"
)

// --- State enum ---

// State is an orchestrator state.
type State string

const (
	StatePlanning State = "Planning"
	StateProbing  State = "Probing"
	StateReady    State = "Ready"
	StateBlocked  State = "Blocked"
)

// --- Blocked reason enum ---

// Reason explains a Blocked outcome.
type Reason string

const (
	ReasonRepairBudgetExhausted         Reason = "RepairBudgetExhausted"
	ReasonCancelled                     Reason = "Cancelled"
	ReasonCoverageGateFailed            Reason = "CoverageGateFailed"
	ReasonConstructionInfeasible        Reason = "ConstructionInfeasible"
	ReasonUnitInconsistent              Reason = "UnitInconsistent"
	ReasonDegreesOfFreedomMismatch      Reason = "DegreesOfFreedomMismatch"
	ReasonEquilibriumTriadInconsistent  Reason = "EquilibriumTriadInconsistent"
	ReasonIncompatibleEquilibriumConfig Reason = "IncompatibleEquilibriumConfig"
	ReasonEquilibriumCoverageViolation  Reason = "EquilibriumCoverageViolation"
)

// BlockedError is the error form of a Blocked outcome.
type BlockedError struct {
	Reason     Reason
	Unresolved []string
	Cause      error
}

func (e *BlockedError) Error() string {
	msg := "blocked: " + string(e.Reason)
	if len(e.Unresolved) > 0 {
		msg += " (" + strings.Join(e.Unresolved, "; ") + ")"
	}
	return msg
}

func (e *BlockedError) Unwrap() error { return e.Cause }

// Transition is one state change of a run.
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Reason Reason `json:"reason,omitempty"`
}

// Outcome is everything a run produced, whatever its terminal state.
type Outcome struct {
	State      State    `json:"state"`
	Reason     Reason   `json:"reason,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
	Cause      error    `json:"-"`

	Resolution  catalog.Resolution   `json:"resolution"`
	Selection   approach.Selection   `json:"selection"`
	Form        spec.EquilibriumForm `json:"equilibrium_form,omitempty"`
	Coverage    *coverage.Table      `json:"coverage,omitempty"`
	Mapping     *mapper.Result       `json:"mapping,omitempty"`
	Checks      []Result             `json:"checks,omitempty"`
	Iterations  int                  `json:"repair_iterations"`
	Transitions []Transition         `json:"transitions"`

	// Decisions are not yet linked to a run.
	Decisions []decision.Decision `json:"decisions,omitempty"`
}

// Ready reports whether the run reached Ready.
func (o *Outcome) Ready() bool { return o.State == StateReady }

// Err returns nil for a Ready outcome and a *BlockedError otherwise.
func (o *Outcome) Err() error {
	if o.State == StateReady {
		return nil
	}
	return &BlockedError{Reason: o.Reason, Unresolved: o.Unresolved, Cause: o.Cause}
}

// Config configures an Orchestrator.
type Config struct {
	// MaxRepairIterations bounds the repair loop. Zero disables repair.
	MaxRepairIterations int
	Logger              *slog.Logger
	Metrics             *metrics.Metrics
}

// Orchestrator runs the Planning and Probing stages.
type Orchestrator struct {
	catalog *catalog.Catalog
	mapper  *mapper.Mapper
	gate    *coverage.Gate
	cfg     Config
	logger  *slog.Logger
}

// New creates an Orchestrator.
func New(cat *catalog.Catalog, m *mapper.Mapper, gate *coverage.Gate, cfg Config) (*Orchestrator, error) {
	if cfg.MaxRepairIterations < 0 {
		return nil, fmt.Errorf("max repair iterations must be >= 0, got %d", cfg.MaxRepairIterations)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{catalog: cat, mapper: m, gate: gate, cfg: cfg, logger: logger}, nil
}

// run carries the state of one Run call.
type run struct {
	o   *Orchestrator
	ctx context.Context
	s   *spec.Specification
	out *Outcome
}

func (r *run) transition(to State, reason Reason) {
	from := r.out.State
	r.out.Transitions = append(r.out.Transitions, Transition{From: from, To: to, Reason: reason})
	r.out.State, r.out.Reason = to, reason

	attrs := []any{"spec", r.s.Name, "from", from, "to", to}
	if reason != "" {
		attrs = append(attrs, "reason", reason)
	}
	if to == StateBlocked {
		r.o.logger.WarnContext(r.ctx, "run blocked", append(attrs, "unresolved", len(r.out.Unresolved))...)
		return
	}
	r.o.logger.InfoContext(r.ctx, "state transition", attrs...)
}

func (r *run) block(reason Reason, cause error, unresolved []string) *Outcome {
	r.out.Unresolved = unresolved
	r.out.Cause = cause
	r.transition(StateBlocked, reason)
	return r.out
}

// fail turns a stage error into a Blocked outcome when it is a domain
// failure, and returns it as an error otherwise.
func (r *run) fail(err error) (*Outcome, error) {
	reason, ok := classify(err)
	if !ok {
		return nil, err
	}
	return r.block(reason, err, []string{err.Error()}), nil
}

func classify(err error) (Reason, bool) {
	var ie *mapper.IncompatibleEquilibriumConfig
	var oe *mapper.OverrideError
	var ev *coverage.EquilibriumCoverageViolation
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled, true
	case errors.As(err, &ie):
		return ReasonIncompatibleEquilibriumConfig, true
	case errors.As(err, &oe):
		return ReasonConstructionInfeasible, true
	case errors.As(err, &ev):
		return ReasonEquilibriumCoverageViolation, true
	}
	return "", false
}

// Run drives s to a terminal state. Domain failures and cancellation end
// in a Blocked outcome with a nil error; the error return is reserved for
// infrastructure failures such as a broken ledger backend.
func (o *Orchestrator) Run(ctx context.Context, s *spec.Specification) (*Outcome, error) {
	r := &run{o: o, ctx: ctx, s: s, out: &Outcome{}}
	r.transition(StatePlanning, "")

	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}

	// Planning.
	res := o.catalog.Resolve(s)
	r.out.Resolution = res
	r.out.Decisions = append(r.out.Decisions, res.Decisions...)

	sel := approach.Select(s, res, o.catalog)
	r.out.Selection = sel
	r.out.Decisions = append(r.out.Decisions, sel.Decisions...)

	form, ds, err := o.mapper.SelectForm(s)
	if err != nil {
		return r.fail(err)
	}
	r.out.Form = form
	r.out.Decisions = append(r.out.Decisions, ds...)

	in := coverage.Input{Spec: s, Approach: sel.Approach, Resolution: res, Form: form}
	table, err := o.gate.Evaluate(ctx, in)
	if err != nil {
		return r.fail(err)
	}
	r.out.Coverage = table
	if table.Verdict == coverage.VerdictFail && !table.ParameterOnly() {
		return r.block(ReasonCoverageGateFailed, nil, coverageItems(table)), nil
	}
	r.transition(StateProbing, "")

	// Probing.
	props := mappedProperties(s, res)
	mapping, err := o.mapper.Map(ctx, s, sel.Approach, props, mapper.Options{})
	if err != nil {
		return r.fail(err)
	}
	r.addMapping(mapping)

	for {
		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}
		checks := o.runChecklist(checkInput{spec: s, approach: sel.Approach, form: form, mapping: mapping})
		r.out.Checks = checks

		if reason, items := terminalFailure(checks); reason != "" {
			return r.block(reason, nil, items), nil
		}
		if table.Verdict == coverage.VerdictFail && !table.ParameterOnly() {
			return r.block(ReasonCoverageGateFailed, nil, coverageItems(table)), nil
		}
		if allPass(checks) && table.Verdict == coverage.VerdictPass {
			o.cfg.Metrics.ObserveRepairIterations(r.out.Iterations)
			r.transition(StateReady, "")
			return r.out, nil
		}
		if r.out.Iterations >= o.cfg.MaxRepairIterations {
			o.cfg.Metrics.ObserveRepairIterations(r.out.Iterations)
			return r.block(ReasonRepairBudgetExhausted, nil, unresolvedItems(checks, table)), nil
		}

		r.out.Iterations++
		o.logger.DebugContext(ctx, "repairing parameter gaps",
			"spec", s.Name,
			"iteration", r.out.Iterations,
			"gaps", len(mapping.Gaps()),
		)
		r.out.Decisions = append(r.out.Decisions, decision.Decision{
			Point:     decision.PointRepair,
			Selected:  fmt.Sprintf("repair iteration %d of %d", r.out.Iterations, o.cfg.MaxRepairIterations),
			Rationale: fmt.Sprintf("%d parameter key(s) not present; re-mapping with relaxed ranking and collaborator lookup", len(mapping.Gaps())),
		})

		mapping, err = o.mapper.Map(ctx, s, sel.Approach, props, mapper.Options{Relaxed: true, Lookup: true})
		if err != nil {
			return r.fail(err)
		}
		r.addMapping(mapping)

		in.Relaxed = true
		table, err = o.gate.Evaluate(ctx, in)
		if err != nil {
			return r.fail(err)
		}
		r.out.Coverage = table
	}
}

// addMapping keeps the latest mapping and its decisions. Form decisions
// were already recorded during planning.
func (r *run) addMapping(m *mapper.Result) {
	r.out.Mapping = m
	for _, d := range m.Decisions {
		if d.Point != decision.PointEquilibriumForm {
			r.out.Decisions = append(r.out.Decisions, d)
		}
	}
}

// mappedProperties leaves out properties the user accepted as deferred;
// they need neither a method nor parameters.
func mappedProperties(s *spec.Specification, res catalog.Resolution) []string {
	var out []string
	for _, p := range res.Properties {
		if !s.IsDeferred(p.Name) {
			out = append(out, p.Name)
		}
	}
	return out
}

// terminalFailure returns the reason of the first failing check that repair
// cannot fix, with the items of every such check. Those checks are marked
// blocked.
func terminalFailure(checks []Result) (Reason, []string) {
	var reason Reason
	var items []string
	for i, c := range checks {
		if c.Status == CheckPass || repairable(c.Check) {
			continue
		}
		checks[i].Status = CheckBlocked
		if reason == "" {
			reason = checkReasons[c.Check]
		}
		items = append(items, prefixed(c)...)
	}
	return reason, items
}

func allPass(checks []Result) bool {
	for _, c := range checks {
		if c.Status != CheckPass {
			return false
		}
	}
	return true
}

// unresolvedItems lists every failing check item and coverage failure,
// marking the failing checks blocked.
func unresolvedItems(checks []Result, table *coverage.Table) []string {
	var out []string
	for i, c := range checks {
		if c.Status != CheckPass {
			checks[i].Status = CheckBlocked
			out = append(out, prefixed(c)...)
		}
	}
	return append(out, coverageItems(table)...)
}

func prefixed(c Result) []string {
	if len(c.Items) == 0 {
		return []string{c.Check + ": " + c.Detail}
	}
	out := make([]string, len(c.Items))
	for i, item := range c.Items {
		out[i] = c.Check + ": " + item
	}
	return out
}

func coverageItems(t *coverage.Table) []string {
	var out []string
	for _, name := range t.Failures {
		e, _ := t.Entry(name)
		item := fmt.Sprintf("coverage: %s (%s)", name, e.Status)
		if e.Detail != "" {
			item += ": " + e.Detail
		}
		out = append(out, item)
	}
	return out
}
