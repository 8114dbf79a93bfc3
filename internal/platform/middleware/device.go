package middleware

import (
	"net/http"

	"pressroom/pkg/requestcontext"
)

// deviceCookieName carries the anonymous reader identifier issued by the
// rendering frontend. The core never issues it; it only reads it.
const deviceCookieName = "pr_device"

// ClientMetadata injects the device identifier, client IP, and User-Agent
// into the request context. A device_id query parameter wins over the cookie
// so handshakes from clients without cookie access still work.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		deviceID := r.URL.Query().Get("device_id")
		if deviceID == "" {
			if c, err := r.Cookie(deviceCookieName); err == nil {
				deviceID = c.Value
			}
		}
		if deviceID != "" {
			ctx = requestcontext.WithDeviceID(ctx, deviceID)
		}

		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip = r.RemoteAddr
		}
		ctx = requestcontext.WithClientMetadata(ctx, ip, r.UserAgent())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
