package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	"pressroom/pkg/sentinel"
)

// InMemoryStore keeps moderation events in a process-local map. Used by unit
// tests and dev deployments without Postgres.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string]*models.ModerationEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string]*models.ModerationEvent)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*models.ModerationEvent)
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.ModerationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return ev.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, ev *models.ModerationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := ev.Clone()
	stored.UpdatedAt = time.Now()
	s.events[ev.ID] = stored
	ev.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ModerationEvent
	for _, ev := range s.events {
		if filter.Status != nil && ev.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil {
			if ev.AssignedTo == nil || *ev.AssignedTo != *filter.AssignedTo {
				continue
			}
		}
		out = append(out, ev.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListUpdatedSince(_ context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ModerationEvent
	for _, ev := range s.events {
		if ev.AssignedTo == nil || *ev.AssignedTo != assignee {
			continue
		}
		if !ev.UpdatedAt.After(since) {
			continue
		}
		out = append(out, ev.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountAssignedActive(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ev := range s.events {
		if ev.AssignedTo != nil && *ev.AssignedTo == userID && ev.Status.Active() {
			count++
		}
	}
	return count, nil
}
