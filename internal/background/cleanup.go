package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper removes expired entries from a registry
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// CleanupManager periodically sweeps expired verification codes and lockouts
type CleanupManager struct {
	sweepers map[string]Sweeper
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. sweepers is keyed by a
// name used in log lines.
func NewCleanupManager(
	sweepers map[string]Sweeper,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sweepers: sweepers,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce sweeps every registry once
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()
	for name, sweeper := range cm.sweepers {
		removed, err := sweeper.Sweep(cleanupCtx, now)
		if err != nil {
			cm.logger.Error("failed to sweep expired entries",
				slog.String("registry", name),
				slog.Any("error", err))
			continue
		}

		if removed > 0 {
			cm.logger.Info("expired entries swept",
				slog.String("registry", name),
				slog.Int("removed", removed))
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
