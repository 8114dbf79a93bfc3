package testutil

import (
	"net/http"
	"time"

	"pressroom/pkg/requestcontext"
)

// WithUserID adds a verified user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithDeviceID adds a device ID to the request context, as the client
// metadata middleware would for a reader connection.
func WithDeviceID(req *http.Request, deviceID string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceID(req.Context(), deviceID))
}

// WithRequestTime pins the request-scoped clock, making timestamps in
// handlers deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
