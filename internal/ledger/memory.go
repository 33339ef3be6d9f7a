package ledger

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records []Record
	nextSeq int64
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{nextSeq: 1}
}

func (m *MemoryBackend) Append(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Seq = m.nextSeq
	m.nextSeq++
	if len(rec.Supersedes) > 0 {
		rec.Supersedes = append([]int64(nil), rec.Supersedes...)
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *MemoryBackend) Records(_ context.Context, key Key) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, r := range m.records {
		if r.Key == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryBackend) All(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}
