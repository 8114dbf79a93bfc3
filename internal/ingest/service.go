// Package ingest is the boundary adapter through which external reporting
// frontends create moderation events. Everything entering here starts open
// and internal; the admin surface takes over from there.
package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	dErrors "pressroom/pkg/domain-errors"
	"pressroom/pkg/requestcontext"
)

// CreateEventRequest is the ingestion payload.
type CreateEventRequest struct {
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	AuthorID *string `json:"authorId,omitempty"`
}

// Validate enforces request-shape invariants.
func (r CreateEventRequest) Validate() error {
	if r.Type == "" {
		return dErrors.New(dErrors.CodeBadRequest, "type is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	return nil
}

// Service creates moderation events from external reports.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(store store.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create persists a new open, internal moderation event.
func (s *Service) Create(ctx context.Context, req CreateEventRequest) (*models.ModerationEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	ev := &models.ModerationEvent{
		ID:         uuid.NewString(),
		Type:       req.Type,
		Status:     models.StatusOpen,
		AuthorID:   req.AuthorID,
		Visibility: models.VisibilityInternal,
		Title:      req.Title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Save(ctx, ev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}

	s.logger.InfoContext(ctx, "event ingested",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", ev.ID,
		"type", ev.Type,
	)
	return ev, nil
}
