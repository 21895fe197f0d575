package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/core"
)

type contextKey string

const callerKey contextKey = "caller"

// Authenticator resolves a raw API key to the calling identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (core.Caller, error)
}

// Auth returns a middleware that requires a valid API key in X-API-Key or
// an Authorization bearer token, and stores the resulting caller in the
// request context.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = extractAPIKey(r)
			}
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			caller, err := auth.Authenticate(r.Context(), key)
			if err != nil {
				if !errors.Is(err, core.ErrNotFound) {
					zerolog.Ctx(r.Context()).Error().Err(err).Msg("api key lookup failed")
				}
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := WithCaller(r.Context(), caller)
			l := zerolog.Ctx(ctx).With().Str("tenant_id", caller.TenantID).Str("api_key_id", caller.APIKeyID).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(ctx)))
		})
	}
}

func extractAPIKey(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func WithCaller(ctx context.Context, c core.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom returns the authenticated caller. The zero Caller is returned
// outside the Auth middleware.
func CallerFrom(ctx context.Context) core.Caller {
	c, _ := ctx.Value(callerKey).(core.Caller)
	return c
}
