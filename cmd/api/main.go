package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/BradenHooton/ditto/internal/background"
	"github.com/BradenHooton/ditto/internal/config"
	"github.com/BradenHooton/ditto/internal/database"
	"github.com/BradenHooton/ditto/internal/handlers"
	middlewareCustom "github.com/BradenHooton/ditto/internal/middleware"
	"github.com/BradenHooton/ditto/internal/models"
	"github.com/BradenHooton/ditto/internal/repositories"
	"github.com/BradenHooton/ditto/internal/routes"
	"github.com/BradenHooton/ditto/internal/services"
	pkghttp "github.com/BradenHooton/ditto/pkg/http"
	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/idtoken"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("otp_mode", cfg.OTP.Mode),
		slog.String("sms_provider", cfg.SMS.Provider),
	)

	ctx := context.Background()

	// Initialize database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool, logger); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	healthChecks := map[string]handlers.HealthCheck{"database": db.HealthCheck}

	// Verification and lockout registries
	var (
		codeStore    services.CodeStore
		lockoutStore services.LockoutStore
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}

		codeStore = repositories.NewRedisCodeStore(rdb)
		lockoutStore = repositories.NewRedisLockoutStore(rdb)
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("verification registries backed by redis", slog.String("addr", cfg.Redis.Addr))
	} else {
		codeStore = repositories.NewMemoryCodeStore()
		lockoutStore = repositories.NewMemoryLockoutStore()
		logger.Info("verification registries held in memory")
	}

	// Code delivery
	var notifier services.CodeNotifier
	switch cfg.SMS.Provider {
	case config.SMSProviderSNS:
		snsNotifier, err := services.NewSNSNotifier(ctx, cfg.SMS.AWSRegion, cfg.SMS.SenderID, logger)
		if err != nil {
			logger.Error("failed to initialize sms notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = snsNotifier
	default:
		notifier = services.NewLogNotifier(logger)
	}

	// Token manager
	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:       cfg.Auth.JWTSecret,
		RefreshSecret:      cfg.Auth.JWTRefreshSecret,
		AccessTokenExpiry:  cfg.Auth.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
	})
	if err != nil {
		logger.Error("failed to initialize token manager", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := auth.NewCodeGenerator(cfg.OTP.Mode)
	if err != nil {
		logger.Error("failed to initialize code generator", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.OTP.Mode == config.OTPModeBypass {
		logger.Warn("verification codes are derived from the phone number; never use this mode in production")
	}

	codeIssuer := services.NewCodeIssuer(codeStore, generator, notifier, services.CodeIssuerConfig{
		TTL:              cfg.OTP.TTL,
		DebugCodeLogging: cfg.OTP.DebugCodeLogging,
	}, logger)

	lockoutTracker := services.NewLockoutTracker(lockoutStore, models.LockoutPolicy{
		MaxAttempts: cfg.OTP.LockoutMaxAttempts,
		Duration:    cfg.OTP.LockoutDuration,
	}, logger)

	// Identity providers
	verifiers := map[services.Provider]services.IdentityVerifier{}
	if cfg.Social.GoogleClientID != "" {
		validator, err := idtoken.NewValidator(ctx)
		if err != nil {
			logger.Error("failed to initialize google id token validator", slog.Any("error", err))
			os.Exit(1)
		}
		verifiers[services.ProviderGoogle] = services.NewGoogleVerifier(validator, cfg.Social.GoogleClientID)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set; google sign-in is disabled")
	}
	federation := services.NewFederationService(verifiers, cfg.Social.VerificationTimeout, logger)

	// Session orchestration
	auditLogger := pkglogger.NewAuditLogger(logger)
	userRepo := repositories.NewUserRepository(db)
	sessionService := services.NewSessionService(userRepo, codeIssuer, lockoutTracker, tokenManager, federation, logger, auditLogger)
	sessionService.SetTimingDelay(auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.OTP.FailureDelay,
		RandomDelay: cfg.OTP.FailureJitter,
	}))

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(map[string]background.Sweeper{
		"verification_codes": codeIssuer,
		"lockouts":           lockoutTracker,
	}, logger, cfg.OTP.SweepInterval)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(sessionService, ipConfig)
	healthHandler := handlers.NewHealthHandler(healthChecks, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	routes.RegisterRoutes(router, authHandler, healthHandler, sessionService, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.AuthRateLimitPerIP,
		IPConfig:          ipConfig,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
