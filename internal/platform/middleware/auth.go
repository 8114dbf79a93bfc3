package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"pressroom/pkg/requestcontext"
)

// JWTValidator defines the interface for validating session credentials.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID    string
	SessionID string
}

// RequireAuth rejects requests that do not carry a valid bearer token and
// injects the verified user identity into the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, ok := bearerClaims(r, validator)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the verified user identity when a valid bearer token
// is present and passes the request through untouched otherwise. Used on the
// live channel connect where both anonymous and authenticated clients attach.
func OptionalAuth(validator JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := bearerClaims(r, validator); ok {
				ctx := requestcontext.WithUserID(r.Context(), claims.UserID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerClaims extracts and validates the session credential. The token may
// arrive in the Authorization header or, for EventSource clients that cannot
// set headers, in the access_token query parameter.
func bearerClaims(r *http.Request, validator JWTValidator) (*JWTClaims, bool) {
	token := ""
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		token = after
	} else if qt := r.URL.Query().Get("access_token"); qt != "" {
		token = qt
	}
	if token == "" {
		return nil, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil || claims.UserID == "" {
		return nil, false
	}
	return claims, true
}
