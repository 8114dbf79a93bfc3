package audit

import (
	"context"
	"time"

	"pressroom/internal/moderation/models"
)

// TargetKindEvent is the only target kind this core audits today. The field
// is recorded anyway so the trail stays unambiguous if other kinds appear.
const TargetKindEvent = "event"

// Record is one immutable audit trail entry: who applied which action to
// which target, with the full before/after snapshot pair. Records are
// append-only; nothing in this codebase mutates or deletes one.
type Record struct {
	ID         string            `json:"id"`
	Action     models.Action     `json:"action"`
	ActorID    *string           `json:"actorId"`
	TargetKind string            `json:"targetKind"`
	TargetID   string            `json:"targetId"`
	Prev       models.Snapshot   `json:"prev"`
	Next       models.Snapshot   `json:"next"`
	Meta       map[string]string `json:"meta,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Store persists audit records. Append-only by contract: implementations
// expose no update or delete.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListByTarget(ctx context.Context, targetID string) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
