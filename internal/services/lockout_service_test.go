package services

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/BradenHooton/ditto/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(now *time.Time) (*LockoutTracker, *repositories.MemoryLockoutStore) {
	store := repositories.NewMemoryLockoutStore()
	tracker := NewLockoutTracker(store, models.LockoutPolicy{MaxAttempts: 3, Duration: 10 * time.Minute}, testLogger())
	tracker.SetClock(func() time.Time { return *now })
	return tracker, store
}

func TestLockoutTracker_Escalation(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(&now)
	ctx := context.Background()

	state, err := tracker.CheckLocked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, state.Locked)

	for i := 0; i < 2; i++ {
		state, err = tracker.RecordFailure(ctx, "k")
		require.NoError(t, err)
		assert.False(t, state.Locked)
	}

	state, err = tracker.RecordFailure(ctx, "k")
	require.NoError(t, err)
	assert.True(t, state.Locked)
	assert.Equal(t, 10*time.Minute, state.Remaining)

	now = now.Add(4 * time.Minute)
	state, err = tracker.CheckLocked(ctx, "k")
	require.NoError(t, err)
	assert.True(t, state.Locked)
	assert.Equal(t, 6*time.Minute, state.Remaining)
}

func TestLockoutTracker_ExpiredLockIsDropped(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker, store := newTestTracker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tracker.RecordFailure(ctx, "k")
		require.NoError(t, err)
	}

	now = now.Add(10 * time.Minute)
	state, err := tracker.CheckLocked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Equal(t, 0, store.Len())
}

// racingLockoutStore runs afterGet between CheckLocked's read and its cleanup
type racingLockoutStore struct {
	*repositories.MemoryLockoutStore
	afterGet func()
}

func (s *racingLockoutStore) Get(ctx context.Context, key string) (*models.LockoutRecord, error) {
	rec, err := s.MemoryLockoutStore.Get(ctx, key)
	if s.afterGet != nil {
		s.afterGet()
	}
	return rec, err
}

func TestLockoutTracker_ExpiredLockCleanupKeepsConcurrentFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	policy := models.LockoutPolicy{MaxAttempts: 3, Duration: 10 * time.Minute}
	store := &racingLockoutStore{MemoryLockoutStore: repositories.NewMemoryLockoutStore()}
	tracker := NewLockoutTracker(store, policy, testLogger())
	tracker.SetClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tracker.RecordFailure(ctx, "k")
		require.NoError(t, err)
	}

	now = now.Add(10 * time.Minute)
	store.afterGet = func() {
		_, err := store.RecordFailure(ctx, "k", now, policy)
		require.NoError(t, err)
	}

	state, err := tracker.CheckLocked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, state.Locked)

	store.afterGet = nil
	rec, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailedAttempts)
	assert.Nil(t, rec.LockedUntil)
}

func TestLockoutTracker_RecordSuccessClears(t *testing.T) {
	now := time.Now()
	tracker, store := newTestTracker(&now)
	ctx := context.Background()

	_, _ = tracker.RecordFailure(ctx, "k")
	_, _ = tracker.RecordFailure(ctx, "k")
	require.NoError(t, tracker.RecordSuccess(ctx, "k"))
	assert.Equal(t, 0, store.Len())

	state, err := tracker.RecordFailure(ctx, "k")
	require.NoError(t, err)
	assert.False(t, state.Locked)
}

func TestLockoutTracker_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker, store := newTestTracker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = tracker.RecordFailure(ctx, "locked")
	}
	_, _ = tracker.RecordFailure(ctx, "counting")

	removed, err := tracker.Sweep(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 3, tracker.Policy().MaxAttempts)
}
