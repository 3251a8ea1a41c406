// Package middleware contains HTTP middleware for the local web front.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter records the status code and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger logs one line per request. Server errors log at Warn so a failing
// upstream API stands out in the default info output; everything else is
// Info, or Debug for the page's own polling of view snapshots.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case r.Method == http.MethodGet && wrapped.statusCode == http.StatusOK && isSnapshotPoll(r):
				level = slog.LevelDebug
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			)
		})
	}
}

// isSnapshotPoll matches GET /api/resources/{id}.
func isSnapshotPoll(r *http.Request) bool {
	const prefix = "/api/resources/"
	p := r.URL.Path
	if len(p) <= len(prefix) || p[:len(prefix)] != prefix {
		return false
	}
	for _, c := range p[len(prefix):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
