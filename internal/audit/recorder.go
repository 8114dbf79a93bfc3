// Package audit appends one immutable record per accepted moderation
// transition. It is best-effort logging of authoritative state: a failed
// append never rolls back the committed mutation.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pressroom/internal/moderation/models"
	"pressroom/pkg/requestcontext"
)

// Recorder captures accepted transitions. It uses the store layer for
// persistence so tests can swap sinks easily.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends one audit record for an accepted transition. actorID may be
// empty when the mutation came from an unauthenticated internal caller.
func (r *Recorder) Record(ctx context.Context, action models.Action, actorID, targetID string, prev, next models.Snapshot, meta map[string]string) error {
	rec := Record{
		ID:         uuid.NewString(),
		Action:     action,
		TargetKind: TargetKindEvent,
		TargetID:   targetID,
		Prev:       prev,
		Next:       next,
		Meta:       meta,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if actorID != "" {
		rec.ActorID = &actorID
	}
	if err := r.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// ListByTarget returns the trail for one event, oldest first.
func (r *Recorder) ListByTarget(ctx context.Context, targetID string) ([]Record, error) {
	return r.store.ListByTarget(ctx, targetID)
}

// ListRecent returns the most recent records across all targets.
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return r.store.ListRecent(ctx, limit)
}
