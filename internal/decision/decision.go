// Package decision holds the append-only audit trail of choices the engine
// makes: approach selection, tie-breaks, property removals, equilibrium
// form selection, and parameter conflict resolution.
//
// Decisions are never overwritten. Every run appends its own records
// linked by run id, so the history of earlier runs stays queryable.
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timeNow and newID are package-level variables for testability.
var (
	timeNow = time.Now
	newID   = uuid.NewString
)

// Point identifies the decision point a record belongs to.
type Point string

const (
	PointApproach          Point = "approach"
	PointTieBreak          Point = "approach_tie_break"
	PointPropertyRemoval   Point = "property_removal"
	PointEquilibriumForm   Point = "equilibrium_form"
	PointMethodSelection   Point = "method_selection"
	PointParameterConflict Point = "parameter_conflict"
	PointRepair            Point = "repair"
)

// Decision is one recorded choice.
type Decision struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Point     Point     `json:"decision_point"`
	Selected  string    `json:"selected_option"`
	Rationale string    `json:"rationale"`
	Rejected  string    `json:"rejected_alternative,omitempty"`
	RiskNotes []string  `json:"risk_notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (d Decision) String() string {
	if d.Rejected == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Point, d.Selected, d.Rationale)
	}
	return fmt.Sprintf("[%s] %s over %s: %s", d.Point, d.Selected, d.Rejected, d.Rationale)
}

// Sink persists decisions outside the process. The SQLite store
// implements it.
type Sink interface {
	SaveDecision(ctx context.Context, d Decision) error
}

// Log is the in-process decision history. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Decision
	sink    Sink
	logger  *slog.Logger
}

// NewLog creates a Log. sink may be nil.
func NewLog(sink Sink, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{sink: sink, logger: logger}
}

// Append stamps each decision with an id, the run id and a timestamp, then
// records it. Records are kept in memory even when the sink fails; the
// first sink error is returned.
func (l *Log) Append(ctx context.Context, runID string, ds ...Decision) ([]Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	out := make([]Decision, 0, len(ds))
	for _, d := range ds {
		d.ID = newID()
		d.RunID = runID
		d.CreatedAt = timeNow().UTC()
		l.entries = append(l.entries, d)
		out = append(out, d)

		l.logger.Debug("decision recorded", "run_id", runID, "point", d.Point, "selected", d.Selected)

		if l.sink == nil {
			continue
		}
		if err := l.sink.SaveDecision(ctx, d); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("persisting decision %s: %w", d.ID, err)
		}
	}
	return out, firstErr
}

// ForRun returns the decisions of one run in recording order.
func (l *Log) ForRun(runID string) []Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Decision
	for _, d := range l.entries {
		if d.RunID == runID {
			out = append(out, d)
		}
	}
	return out
}

// All returns a copy of the full history.
func (l *Log) All() []Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Decision, len(l.entries))
	copy(out, l.entries)
	return out
}
