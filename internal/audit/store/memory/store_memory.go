package memory

import (
	"context"
	"sync"

	"pressroom/internal/audit"
)

// InMemoryStore keeps audit records in a process-local slice per target.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]audit.Record
	order   []audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]audit.Record)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string][]audit.Record)
	s.order = nil
}

func (s *InMemoryStore) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.TargetID] = append(s.records[record.TargetID], record)
	s.order = append(s.order, record)
	return nil
}

func (s *InMemoryStore) ListByTarget(_ context.Context, targetID string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Record{}, s.records[targetID]...), nil
}

// ListRecent returns the newest records first. A limit below 1 returns the
// whole log; the moderation service clamps caller-supplied limits before
// they reach a store.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.order) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}
	out := append([]audit.Record{}, s.order[start:]...)
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
