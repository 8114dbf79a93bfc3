// Package handler is the SSE transport for the live channel. A connection
// joins its channels during the handshake; everything after that is the
// registry pushing frames through the connection's buffer.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"pressroom/internal/notify"
	"pressroom/internal/notify/metrics"
	"pressroom/internal/notify/registry"
	"pressroom/internal/platform/middleware"
	"pressroom/internal/transport/http/shared"
	dErrors "pressroom/pkg/domain-errors"
	"pressroom/pkg/requestcontext"
)

const heartbeatInterval = 25 * time.Second

// Handler serves the live SSE endpoint and the post-connect join.
type Handler struct {
	registry     registry.Registry
	metrics      *metrics.Metrics
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(reg registry.Registry, m *metrics.Metrics, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		registry:     reg,
		metrics:      m,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the live channel routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	liveRouter := chi.NewRouter()
	liveRouter.Use(middleware.Recovery(h.logger))
	liveRouter.Use(middleware.RequestID)
	liveRouter.Use(middleware.Logger(h.logger))
	liveRouter.Use(middleware.ClientMetadata)
	liveRouter.Use(middleware.OptionalAuth(h.jwtValidator))
	liveRouter.Get("/", h.handleConnect)
	liveRouter.Post("/{connID}/join", h.handleJoin)

	r.Mount("/live", liveRouter)
}

// helloPayload tells the client its connection id and initial memberships.
// The connection id is what a later join call addresses.
type helloPayload struct {
	ConnID   string   `json:"connId"`
	Channels []string `json:"channels"`
}

// handleConnect upgrades the request to an SSE stream. The device id comes
// from the client metadata middleware, the user id from the optional bearer
// token; either, both, or neither may be present.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	conn := registry.NewConn(h.connMeta(r))
	h.registry.Register(conn)
	defer h.registry.Unregister(conn)

	var channels []string
	if deviceID := requestcontext.DeviceID(ctx); deviceID != "" {
		ch := registry.DeviceChannel(deviceID)
		h.registry.Join(ch, conn)
		channels = append(channels, ch)
	}
	if userID := requestcontext.UserID(ctx); userID != "" {
		ch := registry.UserChannel(userID)
		h.registry.Join(ch, conn)
		channels = append(channels, ch)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// hello goes out before any pushed frame so the client learns its
	// connection id ahead of traffic.
	if err := writeSSEEvent(w, notify.EventHello, helloPayload{ConnID: conn.ID, Channels: channels}); err != nil {
		return
	}
	flusher.Flush()

	h.logger.InfoContext(ctx, "live connection opened",
		"request_id", requestcontext.RequestID(ctx),
		"conn_id", conn.ID,
		"channels", channels,
	)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, open := <-conn.Frames():
			if !open {
				return
			}
			if err := writeSSEFrame(w, frame); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// joinRequest asks to subscribe an existing connection to another channel.
type joinRequest struct {
	Channel string `json:"channel"`
}

// handleJoin subscribes a live connection to a device-scope channel. User
// channels are only ever joined through the verified handshake, so a
// self-declared user channel here is rejected outright.
func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	connID := chi.URLParam(r, "connID")

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !registry.IsDeviceChannel(req.Channel) {
		h.logger.WarnContext(ctx, "rejected non-device channel join",
			"request_id", requestcontext.RequestID(ctx),
			"conn_id", connID,
			"channel", req.Channel,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only device channels may be joined"))
		return
	}

	conn, ok := h.registry.Lookup(connID)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "connection not found"))
		return
	}

	h.registry.Join(req.Channel, conn)
	w.WriteHeader(http.StatusNoContent)
}

// connMeta captures diagnostic metadata for the connection from the request
// context and the User-Agent header.
func (h *Handler) connMeta(r *http.Request) registry.ConnMeta {
	ctx := r.Context()
	meta := registry.ConnMeta{
		UserID:   requestcontext.UserID(ctx),
		DeviceID: requestcontext.DeviceID(ctx),
		ClientIP: requestcontext.ClientIP(ctx),
	}
	if uaString := requestcontext.UserAgent(ctx); uaString != "" {
		ua := useragent.New(uaString)
		meta.Browser, _ = ua.Browser()
		meta.OS = ua.OS()
	}
	return meta
}

func writeSSEEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writeSSEFrame(w, registry.Frame{Event: event, Data: data})
}

func writeSSEFrame(w http.ResponseWriter, f registry.Frame) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Event, f.Data)
	return err
}
