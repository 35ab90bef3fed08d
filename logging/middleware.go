package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// quietPaths are polled by health checks and scrapers
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// LoggingMiddleware writes one structured record per API request. Responses
// with a 5xx status are logged at warn level.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := append(requestAttrs(r),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status_code", status,
				"bytes_written", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "HTTP request", attrs...)
		})
	}
}

// requestAttrs identifies the request: id, method, path, chi route and the
// medicine it targets, if any
func requestAttrs(r *http.Request) []any {
	requestID, ok := r.Context().Value(middleware.RequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = "unknown"
	}

	attrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			attrs = append(attrs, "route", pattern)
		}
		if id := rctx.URLParam("id"); id != "" {
			attrs = append(attrs, "medicine_id", id)
		}
	}

	if r.URL.RawQuery != "" {
		attrs = append(attrs, "query", r.URL.RawQuery)
	}
	return attrs
}
