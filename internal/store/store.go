// Package store persists the provenance ledger, the decision history and
// run summaries in SQLite.
//
// Every write is a single statement or a single transaction, so a record
// is either fully stored or not stored at all. Nothing is ever updated in
// place: the ledger and the decision log are append-only.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/ledger"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("not found")

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration: ~/.propgate.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".propgate")}
}

// DBFile is the database file name inside the data directory.
const DBFile = "propgate.db"

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer. It implements
// ledger.Backend and decision.Sink.
type Store struct {
	db *sql.DB
}

var (
	_ ledger.Backend = (*Store)(nil)
	_ decision.Sink  = (*Store)(nil)
)

// New opens (creating if needed) the database under cfg.DataDir and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, DBFile)
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS parameter_records (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			parameter_name TEXT    NOT NULL,
			applies_to     TEXT    NOT NULL,
			target         TEXT    NOT NULL DEFAULT '',
			value          TEXT    NOT NULL DEFAULT '',
			units          TEXT    NOT NULL DEFAULT '',
			source         TEXT    NOT NULL,
			retrieved_on   TEXT    NOT NULL,
			confidence     TEXT    NOT NULL,
			notes          TEXT    NOT NULL DEFAULT '',
			supersedes     TEXT    NOT NULL DEFAULT '[]',
			rationale      TEXT    NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_params_key
			ON parameter_records(parameter_name, applies_to, target);

		CREATE TABLE IF NOT EXISTS decisions (
			id                   TEXT PRIMARY KEY,
			run_id               TEXT NOT NULL,
			decision_point       TEXT NOT NULL,
			selected_option      TEXT NOT NULL,
			rationale            TEXT NOT NULL,
			rejected_alternative TEXT NOT NULL DEFAULT '',
			risk_notes           TEXT NOT NULL DEFAULT '[]',
			created_at           TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);

		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			spec_name  TEXT NOT NULL,
			state      TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			approach   TEXT NOT NULL DEFAULT '',
			iterations INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			plan       TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Ledger backend ──────────────────────────────────────────────────────────

const recordColumns = `seq, parameter_name, applies_to, target, value, units, source,
	retrieved_on, confidence, notes, supersedes, rationale`

// Append stores rec and returns it with its assigned sequence number.
func (s *Store) Append(ctx context.Context, rec ledger.Record) (ledger.Record, error) {
	supersedes, err := json.Marshal(nonNil(rec.Supersedes))
	if err != nil {
		return ledger.Record{}, fmt.Errorf("store: encode supersedes: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO parameter_records
			(parameter_name, applies_to, target, value, units, source,
			 retrieved_on, confidence, notes, supersedes, rationale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, string(rec.AppliesTo), rec.Target, rec.Value, rec.Unit, rec.Source,
		rec.RetrievedOn.UTC().Format(timeLayout), string(rec.Confidence), rec.Notes,
		string(supersedes), rec.Rationale,
	)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("store: append %s: %w", rec.Key, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return ledger.Record{}, fmt.Errorf("store: append %s: %w", rec.Key, err)
	}
	rec.Seq = seq
	if len(rec.Supersedes) > 0 {
		rec.Supersedes = append([]int64(nil), rec.Supersedes...)
	}
	return rec, nil
}

// Records returns every record for key in append order.
func (s *Store) Records(ctx context.Context, key ledger.Key) ([]ledger.Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM parameter_records
		WHERE parameter_name = ? AND applies_to = ? AND target = ?
		ORDER BY seq`,
		key.Name, string(key.AppliesTo), key.Target,
	)
}

// All returns the full ledger in append order.
func (s *Store) All(ctx context.Context) ([]ledger.Record, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM parameter_records ORDER BY seq`)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]ledger.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query records: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var (
			r                      ledger.Record
			appliesTo, confidence  string
			retrievedOn, superJSON string
		)
		if err := rows.Scan(&r.Seq, &r.Name, &appliesTo, &r.Target, &r.Value, &r.Unit, &r.Source,
			&retrievedOn, &confidence, &r.Notes, &superJSON, &r.Rationale); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		r.AppliesTo = ledger.Scope(appliesTo)
		r.Confidence = ledger.Confidence(confidence)
		if r.RetrievedOn, err = time.Parse(timeLayout, retrievedOn); err != nil {
			return nil, fmt.Errorf("store: record %d retrieved_on: %w", r.Seq, err)
		}
		if err := json.Unmarshal([]byte(superJSON), &r.Supersedes); err != nil {
			return nil, fmt.Errorf("store: record %d supersedes: %w", r.Seq, err)
		}
		if len(r.Supersedes) == 0 {
			r.Supersedes = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Decisions ───────────────────────────────────────────────────────────────

// SaveDecision appends one decision.
func (s *Store) SaveDecision(ctx context.Context, d decision.Decision) error {
	notes, err := json.Marshal(nonNil(d.RiskNotes))
	if err != nil {
		return fmt.Errorf("store: encode risk notes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions
			(id, run_id, decision_point, selected_option, rationale,
			 rejected_alternative, risk_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RunID, string(d.Point), d.Selected, d.Rationale,
		d.Rejected, string(notes), d.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store: save decision %s: %w", d.ID, err)
	}
	return nil
}

// Decisions returns the decisions of runID in recording order. An empty
// runID returns every decision.
func (s *Store) Decisions(ctx context.Context, runID string) ([]decision.Decision, error) {
	query := `SELECT id, run_id, decision_point, selected_option, rationale,
		rejected_alternative, risk_notes, created_at FROM decisions`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query decisions: %w", err)
	}
	defer rows.Close()

	var out []decision.Decision
	for rows.Next() {
		var (
			d                  decision.Decision
			point, notes, when string
		)
		if err := rows.Scan(&d.ID, &d.RunID, &point, &d.Selected, &d.Rationale, &d.Rejected, &notes, &when); err != nil {
			return nil, fmt.Errorf("store: scan decision: %w", err)
		}
		d.Point = decision.Point(point)
		if err := json.Unmarshal([]byte(notes), &d.RiskNotes); err != nil {
			return nil, fmt.Errorf("store: decision %s risk notes: %w", d.ID, err)
		}
		if len(d.RiskNotes) == 0 {
			d.RiskNotes = nil
		}
		if d.CreatedAt, err = time.Parse(timeLayout, when); err != nil {
			return nil, fmt.Errorf("store: decision %s created_at: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ─── Runs ────────────────────────────────────────────────────────────────────

// Run is the persisted summary of one engine run.
type Run struct {
	ID         string          `json:"run_id"`
	SpecName   string          `json:"spec_name"`
	State      string          `json:"state"`
	Reason     string          `json:"reason,omitempty"`
	Approach   string          `json:"approach,omitempty"`
	Iterations int             `json:"repair_iterations"`
	CreatedAt  time.Time       `json:"created_at"`
	Plan       json.RawMessage `json:"plan,omitempty"`
}

// SaveRun stores a run summary. Run ids are unique.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	var plan any
	if len(r.Plan) > 0 {
		plan = string(r.Plan)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, spec_name, state, reason, approach, iterations, created_at, plan)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SpecName, r.State, r.Reason, r.Approach, r.Iterations,
		r.CreatedAt.UTC().Format(timeLayout), plan,
	)
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	runs, err := s.queryRuns(ctx, `SELECT id, spec_name, state, reason, approach, iterations, created_at, plan
		FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("store: run %s: %w", id, ErrNotFound)
	}
	return &runs[0], nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRuns(ctx, `SELECT id, spec_name, state, reason, approach, iterations, created_at, plan
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r    Run
			when string
			plan sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SpecName, &r.State, &r.Reason, &r.Approach, &r.Iterations, &when, &plan); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, when); err != nil {
			return nil, fmt.Errorf("store: run %s created_at: %w", r.ID, err)
		}
		if plan.Valid {
			r.Plan = json.RawMessage(plan.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
