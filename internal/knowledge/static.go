package knowledge

import (
	"context"
	"sync"
)

// StaticSource answers from an in-memory table. It backs tests and
// preloaded reference data.
type StaticSource struct {
	name  string
	scope Scope

	mu      sync.RWMutex
	entries map[string][]Hit
}

// NewStaticSource creates an empty static source.
func NewStaticSource(name string, scope Scope) *StaticSource {
	return &StaticSource{name: name, scope: scope, entries: make(map[string][]Hit)}
}

// Add registers a hit for the query text.
func (s *StaticSource) Add(text string, h Hit) *StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[text] = append(s.entries[text], h)
	return s
}

func (s *StaticSource) Name() string { return s.name }
func (s *StaticSource) Scope() Scope { return s.scope }

// Search returns the hits registered for q.Text.
func (s *StaticSource) Search(ctx context.Context, q Query) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := s.entries[q.Text]
	return Response{Hits: append([]Hit(nil), hits...)}, nil
}
