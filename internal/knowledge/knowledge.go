// Package knowledge queries external knowledge collaborators (codebase
// search, documentation, web) for parameter values.
//
// All tiers sit behind one Collaborator interface. A Chain asks them in
// configured order and stops at the first acceptable hit. The engine never
// trusts a hit blindly: low-confidence hints are discarded, and a timed-out
// lookup counts as "not found".
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/metrics"
)

// --- Scope enum ---

// Scope is the knowledge tier a collaborator searches.
type Scope string

const (
	ScopeCodebase      Scope = "codebase"
	ScopeDocumentation Scope = "documentation"
	ScopeWeb           Scope = "web"
)

var validScopes = map[Scope]bool{
	ScopeCodebase:      true,
	ScopeDocumentation: true,
	ScopeWeb:           true,
}

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToLower(strings.TrimSpace(s)))
	if !validScopes[sc] {
		return "", fmt.Errorf("unknown knowledge scope %q (allowed: codebase, documentation, web)", s)
	}
	return sc, nil
}

// --- Contract ---

// Query is a request to a collaborator. Text is a ledger key rendering,
// e.g. "temperature_crit@component:benzene".
type Query struct {
	Text  string `json:"query"`
	Scope Scope  `json:"scope"`
}

// Hit is one candidate answer. Text carries "<value> <unit>".
type Hit struct {
	Text           string            `json:"text"`
	Locator        string            `json:"locator"`
	ConfidenceHint ledger.Confidence `json:"confidence_hint"`
}

// Response is an ordered list of hits, best first.
type Response struct {
	Hits []Hit `json:"hits"`
}

// Collaborator is an external knowledge source.
type Collaborator interface {
	Name() string
	Scope() Scope
	Search(ctx context.Context, q Query) (Response, error)
}

// Result is an accepted hit and where it came from.
type Result struct {
	Hit          Hit
	Collaborator string
	Scope        Scope
}

// Value splits the hit text into a numeric value and a unit. Every leading
// numeric token belongs to the value, so a coefficient set such as
// "29.9 -0.0215 1.2e-4 J/mol/K" keeps all three numbers. The unit is the
// trailing non-numeric text and may be empty; a number after the unit is
// an error.
func (h Hit) Value() (value, unit string, err error) {
	fields := strings.Fields(h.Text)
	if len(fields) == 0 {
		return "", "", errors.New("empty hit")
	}
	n := 0
	for n < len(fields) && isNumber(fields[n]) {
		n++
	}
	if n == 0 {
		return "", "", fmt.Errorf("hit %q does not start with a number", h.Text)
	}
	for _, f := range fields[n:] {
		if isNumber(f) {
			return "", "", fmt.Errorf("hit %q has a number after its unit", h.Text)
		}
	}
	return strings.Join(fields[:n], " "), strings.Join(fields[n:], " "), nil
}

// ValueFor is Value for a named parameter. Only correlation coefficient
// keys (*_coeff) may carry more than one number.
func (h Hit) ValueFor(param string) (value, unit string, err error) {
	value, unit, err = h.Value()
	if err != nil {
		return "", "", err
	}
	if strings.Contains(value, " ") && !strings.HasSuffix(param, "_coeff") {
		return "", "", fmt.Errorf("hit %q has several numbers for scalar parameter %s", h.Text, param)
	}
	return value, unit, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func acceptable(h Hit) bool {
	return h.ConfidenceHint.Rank() > ledger.ConfidenceLow.Rank()
}

// --- Chain ---

const (
	defaultTimeout = 5 * time.Second
	defaultWorkers = 4
)

// ChainConfig configures a Chain. Zero values take the defaults.
type ChainConfig struct {
	Timeout time.Duration
	Workers int
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Chain queries collaborators in priority order.
type Chain struct {
	collaborators []Collaborator
	timeout       time.Duration
	workers       int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewChain builds a chain over collaborators in the given order.
func NewChain(cfg ChainConfig, collaborators ...Collaborator) *Chain {
	c := &Chain{
		collaborators: collaborators,
		timeout:       cfg.Timeout,
		workers:       cfg.Workers,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Len returns the number of collaborators in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.collaborators)
}

// Names returns collaborator names in query order.
func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.collaborators))
	for i, col := range c.collaborators {
		names[i] = col.Name()
	}
	return names
}

// Lookup asks each collaborator in turn and returns the first acceptable
// hit. Collaborator failures and timeouts are misses; only cancellation of
// ctx is returned as an error.
func (c *Chain) Lookup(ctx context.Context, text string) (Result, bool, error) {
	if c == nil {
		return Result{}, false, nil
	}
	for _, col := range c.collaborators {
		if err := ctx.Err(); err != nil {
			return Result{}, false, err
		}
		resp, err := c.search(ctx, col, Query{Text: text, Scope: col.Scope()})
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, false, ctx.Err()
			}
			c.logger.WarnContext(ctx, "knowledge lookup failed",
				"collaborator", col.Name(),
				"query", text,
				"error", err,
			)
			continue
		}
		for _, h := range resp.Hits {
			if acceptable(h) {
				return Result{Hit: h, Collaborator: col.Name(), Scope: col.Scope()}, true, nil
			}
		}
	}
	return Result{}, false, nil
}

// search runs one query with the per-lookup timeout. A timeout is retried
// once; a second timeout is reported as an empty response.
func (c *Chain) search(ctx context.Context, col Collaborator, q Query) (Response, error) {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		resp, err := col.Search(callCtx, q)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()

		switch {
		case timedOut:
			c.metrics.ObserveLookup(col.Name(), "timeout", time.Since(start))
			if attempt < 2 {
				c.logger.DebugContext(ctx, "knowledge lookup timed out, retrying",
					"collaborator", col.Name(),
					"query", q.Text,
				)
				continue
			}
			return Response{}, nil
		case err != nil:
			c.metrics.ObserveLookup(col.Name(), "error", time.Since(start))
			return Response{}, err
		case len(resp.Hits) == 0:
			c.metrics.ObserveLookup(col.Name(), "miss", time.Since(start))
		default:
			c.metrics.ObserveLookup(col.Name(), "hit", time.Since(start))
		}
		return resp, nil
	}
}

// LookupAll looks up every text concurrently on a bounded worker pool.
// The result map holds only the texts that resolved. Lookup order is not
// observable.
func (c *Chain) LookupAll(ctx context.Context, texts []string) (map[string]Result, error) {
	results := make(map[string]Result, len(texts))
	if c.Len() == 0 || len(texts) == 0 {
		return results, ctx.Err()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, text := range texts {
		g.Go(func() error {
			res, ok, err := c.Lookup(gctx, text)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				results[text] = res
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
