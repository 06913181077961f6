package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
)

// LockoutStore persists failed-attempt counters keyed by phone.
// RecordFailure and DeleteIfExpired must be atomic per key.
type LockoutStore interface {
	Get(ctx context.Context, key string) (*models.LockoutRecord, error)
	RecordFailure(ctx context.Context, key string, now time.Time, policy models.LockoutPolicy) (*models.LockoutRecord, error)
	Delete(ctx context.Context, key string) error
	DeleteIfExpired(ctx context.Context, key string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// LockoutTracker applies attempt-based lockout to verification attempts.
// Attempts accumulate until a success or until the lock itself expires.
type LockoutTracker struct {
	store  LockoutStore
	policy models.LockoutPolicy
	logger *slog.Logger
	now    func() time.Time
}

// NewLockoutTracker creates a new LockoutTracker
func NewLockoutTracker(store LockoutStore, policy models.LockoutPolicy, logger *slog.Logger) *LockoutTracker {
	return &LockoutTracker{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source
func (lt *LockoutTracker) SetClock(now func() time.Time) {
	lt.now = now
}

// CheckLocked reports whether key is locked. Records whose lock has
// expired are dropped here as well as by the sweep.
func (lt *LockoutTracker) CheckLocked(ctx context.Context, key string) (models.LockState, error) {
	rec, err := lt.store.Get(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return models.LockState{}, nil
	}
	if err != nil {
		return models.LockState{}, err
	}

	now := lt.now()
	if rec.LockedAt(now) {
		return models.LockState{Locked: true, Remaining: rec.LockedUntil.Sub(now)}, nil
	}

	if rec.LockedUntil != nil {
		if _, err := lt.store.DeleteIfExpired(ctx, key, now); err != nil {
			lt.logger.Warn("failed to drop expired lockout", slog.Any("error", err))
		}
	}
	return models.LockState{}, nil
}

// RecordFailure counts a failed attempt and returns the resulting state
func (lt *LockoutTracker) RecordFailure(ctx context.Context, key string) (models.LockState, error) {
	now := lt.now()
	rec, err := lt.store.RecordFailure(ctx, key, now, lt.policy)
	if err != nil {
		return models.LockState{}, err
	}

	if rec.LockedAt(now) {
		lt.logger.Warn("verification locked after repeated failures",
			slog.String("phone", pkglogger.SanitizedPhone(key)),
			slog.Int("failed_attempts", rec.FailedAttempts),
			slog.Time("locked_until", *rec.LockedUntil))
		return models.LockState{Locked: true, Remaining: rec.LockedUntil.Sub(now)}, nil
	}
	return models.LockState{}, nil
}

// RecordSuccess clears the failure count for key
func (lt *LockoutTracker) RecordSuccess(ctx context.Context, key string) error {
	return lt.store.Delete(ctx, key)
}

// Sweep removes records whose lock expired before now
func (lt *LockoutTracker) Sweep(ctx context.Context, now time.Time) (int, error) {
	return lt.store.DeleteExpired(ctx, now)
}

// Policy returns the configured threshold and duration
func (lt *LockoutTracker) Policy() models.LockoutPolicy {
	return lt.policy
}
