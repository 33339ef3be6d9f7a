// Package pipeline composes the planning stages into one run.
//
// An Engine normalizes a raw request, drives the validation orchestrator,
// links every decision to a fresh run id and, when the run reached Ready,
// assembles the BuildPlan. Normalization errors abort the run before it
// gets an id; nothing is recorded for them.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/metrics"
	"github.com/HendryAvila/propgate/internal/spec"
	"github.com/HendryAvila/propgate/internal/store"
	"github.com/HendryAvila/propgate/internal/validation"
)

// newRunID is a package-level variable for testability.
var newRunID = uuid.NewString

// RunRecorder persists run summaries. *store.Store implements it.
type RunRecorder interface {
	SaveRun(ctx context.Context, r store.Run) error
}

// Runner drives a normalized specification to a terminal state.
// *validation.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, s *spec.Specification) (*validation.Outcome, error)
}

// Config configures an Engine. Every field is optional.
type Config struct {
	Runs    RunRecorder
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Engine runs planning requests.
type Engine struct {
	runner    Runner
	decisions *decision.Log
	runs      RunRecorder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine creates an Engine. decisions receives every decision of every
// run.
func NewEngine(runner Runner, decisions *decision.Log, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		runner:    runner,
		decisions: decisions,
		runs:      cfg.Runs,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Run is the result of one planning run.
type Run struct {
	ID        string              `json:"run_id"`
	Spec      *spec.Specification `json:"specification"`
	Outcome   *validation.Outcome `json:"outcome"`
	Decisions []decision.Decision `json:"decisions"`
	Plan      *BuildPlan          `json:"build_plan,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration_ns"`
}

// Ready reports whether the run produced a BuildPlan.
func (r *Run) Ready() bool { return r.Plan != nil }

// Plan normalizes raw and runs it.
func (e *Engine) Plan(ctx context.Context, raw map[string]any) (*Run, error) {
	s, err := spec.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing request: %w", err)
	}
	return e.RunSpec(ctx, s)
}

// PlanDocument parses a YAML or JSON request document and runs it.
func (e *Engine) PlanDocument(ctx context.Context, data []byte) (*Run, error) {
	raw, err := spec.ParseRequest(data)
	if err != nil {
		return nil, err
	}
	return e.Plan(ctx, raw)
}

// RunSpec runs an already-normalized specification. A Blocked outcome is
// not an error; the error return covers infrastructure failures only.
func (e *Engine) RunSpec(ctx context.Context, s *spec.Specification) (*Run, error) {
	run := &Run{ID: newRunID(), Spec: s, StartedAt: timeNow().UTC()}
	logger := e.logger.With("run_id", run.ID, "spec", s.Name)
	logger.DebugContext(ctx, "run started",
		"components", len(s.Components),
		"phases", len(s.Phases),
		"state_definition", s.StateDefinition,
	)

	out, err := e.runner.Run(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Outcome = out

	// Recording uses a fresh context so a cancelled run still leaves its
	// decisions behind.
	recordCtx := context.WithoutCancel(ctx)
	if run.Decisions, err = e.decisions.Append(recordCtx, run.ID, out.Decisions...); err != nil {
		return nil, fmt.Errorf("run %s: recording decisions: %w", run.ID, err)
	}

	if out.Ready() {
		if run.Plan, err = BuildPlanFor(run.ID, s, out); err != nil {
			return nil, err
		}
	}
	run.Duration = timeNow().Sub(run.StartedAt)

	if err := e.saveRun(recordCtx, run); err != nil {
		return nil, err
	}

	e.metrics.IncrementRunOutcome(string(out.State), string(out.Reason))
	e.metrics.ObserveRunLatency(run.Duration)
	if out.Ready() {
		logger.InfoContext(ctx, "build plan ready",
			"approach", out.Selection.Approach,
			"bindings", len(out.Mapping.Bindings),
			"repair_iterations", out.Iterations,
		)
	} else {
		logger.WarnContext(ctx, "no build plan",
			"reason", out.Reason,
			"unresolved", len(out.Unresolved),
		)
	}
	return run, nil
}

func (e *Engine) saveRun(ctx context.Context, run *Run) error {
	if e.runs == nil {
		return nil
	}
	rec := store.Run{
		ID:         run.ID,
		SpecName:   run.Spec.Name,
		State:      string(run.Outcome.State),
		Reason:     string(run.Outcome.Reason),
		Approach:   string(run.Outcome.Selection.Approach),
		Iterations: run.Outcome.Iterations,
		CreatedAt:  run.StartedAt,
	}
	if run.Plan != nil {
		data, err := json.Marshal(run.Plan)
		if err != nil {
			return fmt.Errorf("run %s: encoding build plan: %w", run.ID, err)
		}
		rec.Plan = data
	}
	if err := e.runs.SaveRun(ctx, rec); err != nil {
		return fmt.Errorf("run %s: %w", run.ID, err)
	}
	return nil
}
