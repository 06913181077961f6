package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/ditto/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewConnection opens the pool and waits for the database to answer. It retries
// ConnectAttempts times so the API can start alongside a database container.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := connect(ctx, poolConfig)
		if err == nil {
			logger.Info("database connection established",
				slog.Int("max_conns", int(cfg.MaxConns)),
				slog.Int("min_conns", int(cfg.MinConns)),
				slog.Int("attempt", attempt),
			)
			return &DB{Pool: pool, logger: logger}, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		logger.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", cfg.ConnectRetryDelay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.ConnectRetryDelay):
		}
	}

	return nil, lastErr
}

func connect(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.Pool.Close()
}

// HealthCheck pings the pool with a short deadline
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
