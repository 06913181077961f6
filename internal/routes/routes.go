package routes

import (
	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/BradenHooton/ditto/internal/handlers"
	"github.com/BradenHooton/ditto/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	verifier auth.AccessTokenVerifier,
	rateLimitConfig middleware.RateLimitConfig,
) {
	router.Get("/health", healthHandler.Health)

	router.Route("/auth", func(r chi.Router) {
		// Public routes share one per-IP budget
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(rateLimitConfig))
			r.Post("/send-otp", authHandler.SendCode)
			r.Post("/verify-otp", authHandler.VerifyCode)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/social", authHandler.Social)
		})

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(verifier))
			r.Get("/me", authHandler.Me)
		})
	})
}
