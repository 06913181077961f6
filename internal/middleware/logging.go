package middleware

import (
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/ditto/pkg/http"
	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureLogger returns a middleware for logging HTTP requests with sensitive data redaction.
// Request bodies are never logged; they carry phone numbers, codes and tokens.
func SecureLogger(logger *slog.Logger, ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if pkglogger.SanitizeQueryString(r.URL.RawQuery) {
				path = path + "?[REDACTED]"
			} else if r.URL.RawQuery != "" {
				path = r.URL.Path + "?" + r.URL.RawQuery
			}

			level := slog.LevelInfo
			if wrapped.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(r.Context(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", wrapped.Status()),
				slog.Int64("bytes", int64(wrapped.BytesWritten())),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("client_ip", pkghttp.ExtractClientIP(r, ipConfig)),
			)
		})
	}
}
