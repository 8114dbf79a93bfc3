// Package store defines the persistence contract for moderation events.
// Implementations live in the memory and postgres subpackages.
package store

import (
	"context"
	"time"

	"pressroom/internal/moderation/models"
)

// ListFilter narrows List results. Nil fields match everything.
type ListFilter struct {
	Status     *models.Status
	AssignedTo *string
	Limit      int
}

// Store persists moderation events. Implementations must treat malformed or
// unknown ids as sentinel.ErrNotFound, never as a panic or driver error.
type Store interface {
	// Get returns a mutation-safe copy of one event.
	Get(ctx context.Context, id string) (*models.ModerationEvent, error)
	// Save upserts the event, stamping UpdatedAt.
	Save(ctx context.Context, ev *models.ModerationEvent) error
	// List returns events matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*models.ModerationEvent, error)
	// ListUpdatedSince returns events assigned to the user that changed after
	// the given instant. Seeds the client badge on mount.
	ListUpdatedSince(ctx context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error)
	// CountAssignedActive is the unread counter source: events assigned to
	// the user with status in {open, in_review, flagged}.
	CountAssignedActive(ctx context.Context, userID string) (int, error)
}
