package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger puts a logger tagged with the chi request id into the
// request context, where services pick it up with zerolog.Ctx. One line is
// written per request once it completes; server errors log at warn.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			begin := time.Now()

			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			status := responseStatus(ww)
			level := zerolog.InfoLevel
			if status >= http.StatusInternalServerError {
				level = zerolog.WarnLevel
			}
			l.WithLevel(level).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(begin)).
				Msg("request")
		})
	}
}
