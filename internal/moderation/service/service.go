// Package service orchestrates moderation transitions: fetch, gate, apply,
// persist, audit, notify. Handlers stay thin and the engine stays pure.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pressroom/internal/audit"
	"pressroom/internal/moderation/engine"
	"pressroom/internal/moderation/metrics"
	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	dErrors "pressroom/pkg/domain-errors"
	"pressroom/pkg/requestcontext"
	"pressroom/pkg/sentinel"
)

// Recorder appends one immutable audit record per accepted transition and
// reads the trail back for the admin surface.
type Recorder interface {
	Record(ctx context.Context, action models.Action, actorID, targetID string, prev, next models.Snapshot, meta map[string]string) error
	ListByTarget(ctx context.Context, targetID string) ([]audit.Record, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Record, error)
}

// Notifier pushes state-change alerts after a successful mutation. The
// service logs push failures and moves on; delivery is a UX layer, never a
// source of truth.
type Notifier interface {
	EventMutated(ctx context.Context, ev *models.ModerationEvent, action models.Action) error
}

// Service applies moderation actions to events.
type Service struct {
	store    store.Store
	recorder Recorder
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(store store.Store, recorder Recorder, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Transition applies one action to one event.
//
// Not-found and non-internal visibility both surface as CodeNotFound: the
// caller must not learn whether a hidden event exists.
func (s *Service) Transition(ctx context.Context, id string, req models.TransitionRequest) (*models.ModerationEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	action := models.Action(req.Action)

	start := time.Now()
	ev, err := s.applyOne(ctx, id, action, engine.Params{Assignee: req.Assignee}, s.resolveActor(ctx, req.ActorID))
	s.metrics.ObserveTransitionLatency(time.Since(start))
	if err != nil {
		s.metrics.IncrementTransition(req.Action, outcomeOf(err))
		return nil, err
	}
	s.metrics.IncrementTransition(req.Action, "accepted")
	return ev, nil
}

// BulkTransition applies one action across many ids. Each id is processed
// independently and sequentially: per-item audit ordering stays deterministic
// and one item's failure - including a panic - never unwinds the batch.
func (s *Service) BulkTransition(ctx context.Context, req models.BulkTransitionRequest) ([]models.ItemResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	action := models.Action(req.Action)
	params := engine.Params{Assignee: req.Assignee, SecondReview: req.SecondReview}
	actor := s.resolveActor(ctx, req.ActorID)

	s.metrics.ObserveBatchSize(len(req.IDs))

	results := make([]models.ItemResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		err := s.applyOneIsolated(ctx, id, action, params, actor)
		if err != nil {
			results = append(results, models.ItemResult{ID: id, OK: false, Error: itemError(err)})
			s.metrics.IncrementTransition(req.Action, outcomeOf(err))
			continue
		}
		results = append(results, models.ItemResult{ID: id, OK: true})
		s.metrics.IncrementTransition(req.Action, "accepted")
	}
	return results, nil
}

// Get returns one event. Non-internal events read as not found, same as the
// mutation path.
func (s *Service) Get(ctx context.Context, id string) (*models.ModerationEvent, error) {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}
	if !ev.Operable() {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return ev, nil
}

// List returns events matching the filter.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error) {
	events, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}
	return events, nil
}

// UpdatesSince returns the authoritative "items since last visit" list that
// seeds the client badge.
func (s *Service) UpdatesSince(ctx context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error) {
	events, err := s.store.ListUpdatedSince(ctx, assignee, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}
	return events, nil
}

// Audit listing limits. RecentAudit clamps caller-supplied limits into
// [1, maxAuditLimit]; zero and negative fall back to the default.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditTrail returns the audit records for one event, oldest first. Unknown
// and non-internal events read as not found, matching the event reads.
func (s *Service) AuditTrail(ctx context.Context, id string) ([]audit.Record, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.recorder.ListByTarget(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return records, nil
}

// RecentAudit returns the newest audit records across all events.
func (s *Service) RecentAudit(ctx context.Context, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	records, err := s.recorder.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return records, nil
}

// UnreadCount recomputes the authoritative unread counter for a user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountAssignedActive(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}
	return count, nil
}

// resolveActor prefers the verified identity from the request context over
// the caller-supplied actor id. The body field remains honored for trusted
// internal callers that bypass the auth middleware.
func (s *Service) resolveActor(ctx context.Context, bodyActorID string) string {
	if actor := requestcontext.UserID(ctx); actor != "" {
		return actor
	}
	return bodyActorID
}

// applyOneIsolated shields the bulk loop from panics in a single item.
func (s *Service) applyOneIsolated(ctx context.Context, id string, action models.Action, params engine.Params, actor string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "panic applying bulk item",
				"request_id", requestcontext.RequestID(ctx),
				"event_id", id,
				"panic", rec,
			)
			err = dErrors.New(dErrors.CodeInternal, "panic applying transition")
		}
	}()
	_, err = s.applyOne(ctx, id, action, params, actor)
	return err
}

func (s *Service) applyOne(ctx context.Context, id string, action models.Action, params engine.Params, actor string) (*models.ModerationEvent, error) {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}
	if !ev.Operable() {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}

	prev, next, err := engine.Apply(ev, action, params)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, ev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}

	// State is committed. Audit failure surfaces to the caller but does not
	// roll the mutation back; the trail is best-effort logging of state.
	if err := s.recorder.Record(ctx, action, actor, ev.ID, prev, next, nil); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed after commit",
			"request_id", requestcontext.RequestID(ctx),
			"event_id", ev.ID,
			"action", action.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "transition committed but audit append failed")
	}

	// Push is fire-and-forget: absence of subscribers or delivery errors
	// must never fail the mutation.
	if err := s.notifier.EventMutated(ctx, ev, action); err != nil {
		s.logger.WarnContext(ctx, "notification push failed",
			"request_id", requestcontext.RequestID(ctx),
			"event_id", ev.ID,
			"action", action.String(),
			"error", err,
		)
	}

	return ev, nil
}

// outcomeOf classifies an error for the transitions metric.
func outcomeOf(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidAction, dErrors.CodeMissingParameter, dErrors.CodeNotFound:
		return "rejected"
	default:
		return "failed"
	}
}

// itemError maps a transition failure to its per-item bulk error code.
func itemError(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return models.ItemErrNotFoundOrNotInternal
	case dErrors.CodeInvalidAction:
		return models.ItemErrInvalidAction
	case dErrors.CodeMissingParameter:
		return models.ItemErrMissingParameter
	default:
		return models.ItemErrPersistenceFailure
	}
}
