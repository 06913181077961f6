package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/ditto/internal/models"
	pkghttp "github.com/BradenHooton/ditto/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the session identity in context
	UserContextKey contextKey = "user"
)

// AccessTokenVerifier resolves a bearer token to a session identity
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*models.SessionIdentity, error)
}

// AuthMiddleware validates bearer access tokens and injects the session identity into context
func AuthMiddleware(verifier AccessTokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				pkghttp.WriteUnauthorized(w, "Invalid authorization header format")
				return
			}

			identity, err := verifier.VerifyAccessToken(strings.TrimSpace(token))
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext extracts the session identity from request context
func GetUserFromContext(r *http.Request) *models.SessionIdentity {
	identity, ok := r.Context().Value(UserContextKey).(*models.SessionIdentity)
	if !ok {
		return nil
	}
	return identity
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *models.SessionIdentity) context.Context {
	return context.WithValue(ctx, UserContextKey, identity)
}
