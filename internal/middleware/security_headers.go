package middleware

import (
	"net/http"

	"github.com/BradenHooton/ditto/internal/config"
)

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders returns a middleware that adds security headers to all responses.
// The API only serves JSON, so the content policy denies every resource type.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-site")
			h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")

			// Token responses must never be cached by intermediaries
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")

			// HSTS only once TLS has been terminated in front of a production deployment
			if cfg.Env == config.EnvProduction && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
