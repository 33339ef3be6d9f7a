// Package ledger is the append-only provenance store for parameter values.
//
// Every value the engine uses carries its source, retrieval date and
// confidence. Records are never edited in place: a correction is a new
// record that explicitly supersedes the old ones, with a rationale.
// Low-confidence records are placeholders and must carry the literal
// source marker PlaceholderSource; nothing else may be low confidence.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// PlaceholderSource marks a record that holds no real value yet.
const PlaceholderSource = "TODO"

var (
	ErrFabricatedProvenance = errors.New("low confidence requires the TODO source marker, and the TODO marker requires low confidence")
	ErrWouldDowngrade       = errors.New("insert would shadow a higher-confidence record")
	ErrSupersedeRationale   = errors.New("supersede requires a rationale")
	ErrInvalidRecord        = errors.New("invalid parameter record")
)

// --- Scope enum ---

// Scope is what a parameter applies to.
type Scope string

const (
	ScopeComponent Scope = "component"
	ScopePhase     Scope = "phase"
	ScopePackage   Scope = "package"
)

var validScopes = map[Scope]bool{
	ScopeComponent: true,
	ScopePhase:     true,
	ScopePackage:   true,
}

// --- Confidence enum ---

// Confidence is the trust level of a recorded value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var confidenceRank = map[Confidence]int{
	ConfidenceLow:    1,
	ConfidenceMedium: 2,
	ConfidenceHigh:   3,
}

// Rank orders confidence levels; unknown levels rank 0.
func (c Confidence) Rank() int {
	return confidenceRank[c]
}

// ValidateConfidence checks that c is a known confidence level.
func ValidateConfidence(c Confidence) error {
	if _, ok := confidenceRank[c]; !ok {
		return fmt.Errorf("%w: unknown confidence %q (allowed: high, medium, low)", ErrInvalidRecord, c)
	}
	return nil
}

// --- Records ---

// Key identifies one parameter slot: the parameter name scoped to the
// component, phase or package it applies to.
type Key struct {
	Name      string `json:"parameter_name"`
	AppliesTo Scope  `json:"applies_to"`
	Target    string `json:"target,omitempty"`
}

// ComponentKey, PhaseKey and PackageKey build keys for each scope.
func ComponentKey(name, component string) Key {
	return Key{Name: name, AppliesTo: ScopeComponent, Target: component}
}

func PhaseKey(name, phase string) Key {
	return Key{Name: name, AppliesTo: ScopePhase, Target: phase}
}

func PackageKey(name string) Key {
	return Key{Name: name, AppliesTo: ScopePackage}
}

// String renders the key as name@scope:target, or name@package.
func (k Key) String() string {
	if k.AppliesTo == ScopePackage || k.Target == "" {
		return k.Name + "@" + string(k.AppliesTo)
	}
	return fmt.Sprintf("%s@%s:%s", k.Name, k.AppliesTo, k.Target)
}

// Record is one ledger entry.
type Record struct {
	Key
	Value       string     `json:"value"`
	Unit        string     `json:"units"`
	Source      string     `json:"source"`
	RetrievedOn time.Time  `json:"retrieved_on"`
	Confidence  Confidence `json:"confidence"`
	Notes       string     `json:"notes,omitempty"`

	// Seq is assigned by the backend on append and is strictly increasing.
	Seq        int64   `json:"seq"`
	Supersedes []int64 `json:"supersedes,omitempty"`
	Rationale  string  `json:"rationale,omitempty"`
}

// IsPlaceholder reports whether the record is an explicit TODO marker
// rather than a real value.
func (r Record) IsPlaceholder() bool {
	return r.Source == PlaceholderSource
}

// Placeholder builds the explicit low-confidence marker for a missing key.
func Placeholder(key Key, unit, notes string, retrievedOn time.Time) Record {
	return Record{
		Key:         key,
		Unit:        unit,
		Source:      PlaceholderSource,
		RetrievedOn: retrievedOn,
		Confidence:  ConfidenceLow,
		Notes:       notes,
	}
}

func (r Record) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: parameter name is required", ErrInvalidRecord)
	}
	if !validScopes[r.AppliesTo] {
		return fmt.Errorf("%w: unknown applies_to %q (allowed: component, phase, package)", ErrInvalidRecord, r.AppliesTo)
	}
	if r.AppliesTo != ScopePackage && r.Target == "" {
		return fmt.Errorf("%w: %s-scoped parameter %s needs a target", ErrInvalidRecord, r.AppliesTo, r.Name)
	}
	if err := ValidateConfidence(r.Confidence); err != nil {
		return err
	}
	if (r.Confidence == ConfidenceLow) != r.IsPlaceholder() {
		return fmt.Errorf("%w: %s has confidence %s and source %q", ErrFabricatedProvenance, r.Key, r.Confidence, r.Source)
	}
	if !r.IsPlaceholder() && strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("%w: %s has no value", ErrInvalidRecord, r.Key)
	}
	if r.IsPlaceholder() && strings.TrimSpace(r.Value) != "" {
		return fmt.Errorf("%w: placeholder %s must not carry a value", ErrFabricatedProvenance, r.Key)
	}
	return nil
}

// --- Backend ---

// Backend is the storage behind a Ledger. Append must be atomic per
// record and assign Seq.
type Backend interface {
	Append(ctx context.Context, rec Record) (Record, error)
	Records(ctx context.Context, key Key) ([]Record, error)
	All(ctx context.Context) ([]Record, error)
}

// --- Ledger ---

// InsertOptions controls shadowing of existing records.
type InsertOptions struct {
	Supersede bool
	Rationale string
}

// Conflict lists live records for one key that sit on the same top
// confidence tier but disagree on value.
type Conflict struct {
	Key     Key      `json:"key"`
	Records []Record `json:"records"`
}

// Ledger enforces the provenance rules on top of a Backend. It is
// session-scoped and outlives individual runs.
type Ledger struct {
	mu      sync.Mutex
	backend Backend
}

// New wraps backend. A nil backend means in-memory.
func New(backend Backend) *Ledger {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Ledger{backend: backend}
}

// Insert appends rec. It refuses fabricated provenance, and refuses to
// shadow a higher-confidence live record unless opts.Supersede is set
// with a rationale. Re-inserting a record identical to a live one is a
// no-op that returns the existing record.
func (l *Ledger) Insert(ctx context.Context, rec Record, opts InsertOptions) (Record, error) {
	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	if opts.Supersede && strings.TrimSpace(opts.Rationale) == "" {
		return Record{}, ErrSupersedeRationale
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.backend.Records(ctx, rec.Key)
	if err != nil {
		return Record{}, fmt.Errorf("reading %s: %w", rec.Key, err)
	}
	live := liveRecords(existing)

	if !opts.Supersede {
		for _, old := range live {
			if sameContent(old, rec) {
				return old, nil
			}
		}
		for _, old := range live {
			if old.Confidence.Rank() > rec.Confidence.Rank() {
				return Record{}, fmt.Errorf("%w: %s already has a %s-confidence value from %s", ErrWouldDowngrade, rec.Key, old.Confidence, old.Source)
			}
		}
		rec.Supersedes = nil
		rec.Rationale = ""
	} else {
		rec.Supersedes = nil
		for _, old := range live {
			rec.Supersedes = append(rec.Supersedes, old.Seq)
		}
		rec.Rationale = opts.Rationale
	}

	saved, err := l.backend.Append(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("appending %s: %w", rec.Key, err)
	}
	return saved, nil
}

// Resolve returns the live record with the highest confidence, breaking
// ties by the most recent retrieval date and then by append order.
func (l *Ledger) Resolve(ctx context.Context, key Key) (Record, bool, error) {
	records, err := l.backend.Records(ctx, key)
	if err != nil {
		return Record{}, false, fmt.Errorf("reading %s: %w", key, err)
	}
	live := liveRecords(records)
	if len(live) == 0 {
		return Record{}, false, nil
	}
	best := live[0]
	for _, r := range live[1:] {
		if better(r, best) {
			best = r
		}
	}
	return best, true, nil
}

// History returns every record ever appended for key, superseded ones
// included, in append order.
func (l *Ledger) History(ctx context.Context, key Key) ([]Record, error) {
	return l.backend.Records(ctx, key)
}

// All returns the full ledger in append order.
func (l *Ledger) All(ctx context.Context) ([]Record, error) {
	return l.backend.All(ctx)
}

// Live returns every record not superseded by a later one, in append
// order.
func (l *Ledger) Live(ctx context.Context) ([]Record, error) {
	all, err := l.backend.All(ctx)
	if err != nil {
		return nil, err
	}
	return liveRecords(all), nil
}

// Conflicts returns keys whose top-tier live records carry different
// values. Placeholders never conflict. Sorted by key.
func (l *Ledger) Conflicts(ctx context.Context) ([]Conflict, error) {
	all, err := l.backend.All(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[Key][]Record)
	var order []Key
	for _, r := range all {
		if _, ok := byKey[r.Key]; !ok {
			order = append(order, r.Key)
		}
		byKey[r.Key] = append(byKey[r.Key], r)
	}

	var out []Conflict
	for _, k := range order {
		if c, ok := conflictFor(k, liveRecords(byKey[k])); ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

// ConflictFor returns the conflict for a single key, if any.
func (l *Ledger) ConflictFor(ctx context.Context, key Key) (Conflict, bool, error) {
	records, err := l.backend.Records(ctx, key)
	if err != nil {
		return Conflict{}, false, err
	}
	c, ok := conflictFor(key, liveRecords(records))
	return c, ok, nil
}

func conflictFor(key Key, live []Record) (Conflict, bool) {
	top := 0
	for _, r := range live {
		if !r.IsPlaceholder() && r.Confidence.Rank() > top {
			top = r.Confidence.Rank()
		}
	}
	var tier []Record
	values := make(map[string]bool)
	for _, r := range live {
		if !r.IsPlaceholder() && r.Confidence.Rank() == top {
			tier = append(tier, r)
			values[r.Value+" "+r.Unit] = true
		}
	}
	if len(values) < 2 {
		return Conflict{}, false
	}
	return Conflict{Key: key, Records: tier}, true
}

// liveRecords drops every record named in a later record's Supersedes.
func liveRecords(records []Record) []Record {
	superseded := make(map[int64]bool)
	for _, r := range records {
		for _, s := range r.Supersedes {
			superseded[s] = true
		}
	}
	live := make([]Record, 0, len(records))
	for _, r := range records {
		if !superseded[r.Seq] {
			live = append(live, r)
		}
	}
	return live
}

func better(a, b Record) bool {
	if a.Confidence.Rank() != b.Confidence.Rank() {
		return a.Confidence.Rank() > b.Confidence.Rank()
	}
	if !a.RetrievedOn.Equal(b.RetrievedOn) {
		return a.RetrievedOn.After(b.RetrievedOn)
	}
	return a.Seq > b.Seq
}

func sameContent(a, b Record) bool {
	return a.Value == b.Value && a.Unit == b.Unit && a.Source == b.Source && a.Confidence == b.Confidence
}
