// Package handler exposes the ingestion endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pressroom/internal/ingest"
	"pressroom/internal/ingest/secrets"
	"pressroom/internal/moderation/models"
	platformmetrics "pressroom/internal/platform/metrics"
	"pressroom/internal/platform/middleware"
	"pressroom/internal/transport/http/shared"
	dErrors "pressroom/pkg/domain-errors"
	"pressroom/pkg/requestcontext"
)

// secretHeader carries the plaintext shared secret. The server stores only
// its bcrypt hash.
const secretHeader = "X-Ingest-Secret"

// Service defines the ingestion operations the handler calls.
type Service interface {
	Create(ctx context.Context, req ingest.CreateEventRequest) (*models.ModerationEvent, error)
}

// Handler handles the ingestion endpoint.
type Handler struct {
	logger     *slog.Logger
	ingest     Service
	metrics    *platformmetrics.Metrics
	secretHash string
}

// New creates a new ingest Handler. secretHash is the bcrypt hash of the
// shared secret external frontends present.
func New(ingestSvc Service, logger *slog.Logger, metrics *platformmetrics.Metrics, secretHash string) *Handler {
	return &Handler{
		logger:     logger,
		ingest:     ingestSvc,
		metrics:    metrics,
		secretHash: secretHash,
	}
}

// Register registers the ingestion route with the chi router.
func (h *Handler) Register(r chi.Router) {
	ingestRouter := chi.NewRouter()
	ingestRouter.Use(middleware.Recovery(h.logger))
	ingestRouter.Use(middleware.RequestID)
	ingestRouter.Use(middleware.Logger(h.logger))
	ingestRouter.Use(middleware.Timeout(30 * time.Second))
	ingestRouter.Use(middleware.ContentTypeJSON)
	ingestRouter.Use(middleware.Latency(h.metrics))
	ingestRouter.Post("/events", h.handleCreateEvent)

	r.Mount("/ingest", ingestRouter)
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if h.secretHash == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "ingestion is not configured"))
		return
	}
	if err := secrets.Verify(r.Header.Get(secretHeader), h.secretHash); err != nil {
		h.logger.WarnContext(ctx, "rejected ingest credential",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid ingest credential"))
		return
	}

	var req ingest.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ev, err := h.ingest.Create(ctx, req)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "ingest create failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, models.TransitionResponse{OK: true, Item: ev})
}
