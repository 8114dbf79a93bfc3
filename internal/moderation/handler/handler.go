// Package handler exposes the moderation admin endpoints over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pressroom/internal/audit"
	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	platformmetrics "pressroom/internal/platform/metrics"
	"pressroom/internal/platform/middleware"
	"pressroom/internal/transport/http/shared"
	dErrors "pressroom/pkg/domain-errors"
	"pressroom/pkg/requestcontext"
)

// Service defines the moderation operations the handlers call.
type Service interface {
	Transition(ctx context.Context, id string, req models.TransitionRequest) (*models.ModerationEvent, error)
	BulkTransition(ctx context.Context, req models.BulkTransitionRequest) ([]models.ItemResult, error)
	Get(ctx context.Context, id string) (*models.ModerationEvent, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error)
	UpdatesSince(ctx context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	AuditTrail(ctx context.Context, id string) ([]audit.Record, error)
	RecentAudit(ctx context.Context, limit int) ([]audit.Record, error)
}

// auditResponse wraps an audit trail listing.
type auditResponse struct {
	OK      bool           `json:"ok"`
	Records []audit.Record `json:"records"`
}

// Handler handles the admin moderation endpoints.
type Handler struct {
	logger       *slog.Logger
	moderation   Service
	metrics      *platformmetrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new moderation Handler.
func New(
	moderation Service,
	logger *slog.Logger,
	metrics *platformmetrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		moderation:   moderation,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.Timeout(30 * time.Second))
	adminRouter.Use(middleware.ContentTypeJSON)
	adminRouter.Use(middleware.Latency(h.metrics))
	adminRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	adminRouter.Post("/events/bulk", h.handleBulkTransition)
	adminRouter.Post("/events/{id}/transition", h.handleTransition)
	adminRouter.Get("/events/updates", h.handleUpdatesSince)
	adminRouter.Get("/events/{id}/audit", h.handleAuditTrail)
	adminRouter.Get("/events/{id}", h.handleGet)
	adminRouter.Get("/events", h.handleList)
	adminRouter.Get("/notifications/count", h.handleUnreadCount)
	adminRouter.Get("/audit", h.handleRecentAudit)

	r.Mount("/admin", adminRouter)
}

// handleTransition applies one action to one event.
func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid transition request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.moderation.Transition(ctx, id, req)
	if err != nil {
		if !clientFault(err) {
			h.logger.ErrorContext(ctx, "transition failed",
				"request_id", requestID,
				"event_id", id,
				"action", req.Action,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, models.TransitionResponse{OK: true, Item: item})
}

// handleBulkTransition applies one action across many events. Mixed per-item
// outcomes still answer 200; only a malformed batch is a request error.
func (h *Handler) handleBulkTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.BulkTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid bulk transition request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	results, err := h.moderation.BulkTransition(ctx, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, models.BulkTransitionResponse{OK: true, Results: results})
}

// handleGet returns one event.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	item, err := h.moderation.Get(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, models.TransitionResponse{OK: true, Item: item})
}

// handleList returns events matching the optional status and assignee
// filters.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter store.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.IsValid() {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown status filter"))
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("assignee"); raw != "" {
		assignee := raw
		filter.AssignedTo = &assignee
	}

	items, err := h.moderation.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list events failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, models.ListResponse{OK: true, Items: items})
}

// handleUpdatesSince returns the caller's events updated after the cutoff.
// This list seeds the client badge after a reconnect or page load.
func (h *Handler) handleUpdatesSince(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("since")
	if raw == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "since is required"))
		return
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "since must be RFC3339"))
		return
	}

	items, err := h.moderation.UpdatesSince(ctx, requestcontext.UserID(ctx), since)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, models.ListResponse{OK: true, Items: items})
}

// handleAuditTrail returns the audit trail for one event, oldest first.
// Hidden events answer 404 here exactly as they do on the event reads.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	records, err := h.moderation.AuditTrail(ctx, id)
	if err != nil {
		if !clientFault(err) {
			h.logger.ErrorContext(ctx, "audit trail read failed",
				"request_id", requestcontext.RequestID(ctx),
				"event_id", id,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, auditResponse{OK: true, Records: records})
}

// handleRecentAudit returns the newest audit records across all events. The
// optional limit parameter is clamped by the service.
func (h *Handler) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	records, err := h.moderation.RecentAudit(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "recent audit read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, auditResponse{OK: true, Records: records})
}

// handleUnreadCount recomputes the authoritative unread counter for the
// authenticated user.
func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.moderation.UnreadCount(ctx, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, models.CountResponse{OK: true, Count: count})
}

// clientFault reports whether the error is the caller's to fix, which keeps
// expected rejections out of the error log.
func clientFault(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidAction, dErrors.CodeMissingParameter, dErrors.CodeNotFound:
		return true
	default:
		return false
	}
}
