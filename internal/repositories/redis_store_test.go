package repositories

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisCodeStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisCodeStore(client)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "+15551234567")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.Save(ctx, newRequest("+15551234567", now, 5*time.Minute)))
	assert.True(t, mr.Exists("otp:code:+15551234567"))
	assert.Equal(t, 5*time.Minute, mr.TTL("otp:code:+15551234567"))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "hash-+15551234567", got.CodeHash)
	assert.True(t, now.Equal(got.IssuedAt))
	assert.True(t, now.Add(5*time.Minute).Equal(got.ExpiresAt))

	require.NoError(t, store.Delete(ctx, "+15551234567"))
	_, err = store.Get(ctx, "+15551234567")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRedisCodeStore_TTLEvicts(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisCodeStore(client)

	require.NoError(t, store.Save(ctx, newRequest("+15551234567", time.Now(), time.Minute)))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "+15551234567")
	assert.ErrorIs(t, err, models.ErrNotFound)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisCodeStore_RejectsExpiredRequest(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisCodeStore(client)

	now := time.Now()
	err := store.Save(context.Background(), &models.VerificationRequest{Phone: "+15551234567", IssuedAt: now, ExpiresAt: now})
	assert.Error(t, err)
}

func TestRedisCodeStore_Consume(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisCodeStore(client)
	require.NoError(t, store.Save(ctx, newRequest("+15551234567", time.Now(), time.Minute)))

	consumed, err := store.Consume(ctx, "+15551234567", func(*models.VerificationRequest) bool { return false })
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.True(t, mr.Exists("otp:code:+15551234567"))

	consumed, err = store.Consume(ctx, "+15551234567", func(req *models.VerificationRequest) bool {
		return req.CodeHash == "hash-+15551234567"
	})
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.False(t, mr.Exists("otp:code:+15551234567"))

	consumed, err = store.Consume(ctx, "+15551234567", func(*models.VerificationRequest) bool { return true })
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestRedisCodeStore_ConsumeSkipsReissuedRequest(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisCodeStore(client)
	now := time.Now()
	require.NoError(t, store.Save(ctx, newRequest("+15551234567", now, time.Minute)))

	consumed, err := store.Consume(ctx, "+15551234567", func(*models.VerificationRequest) bool {
		reissued := newRequest("+15551234567", now.Add(time.Second), time.Minute)
		reissued.CodeHash = "reissued"
		require.NoError(t, store.Save(ctx, reissued))
		return true
	})
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.True(t, mr.Exists("otp:code:+15551234567"))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "reissued", got.CodeHash)
}

func TestRedisCodeStore_ConcurrentConsumeOnce(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)
	store := NewRedisCodeStore(client)
	require.NoError(t, store.Save(ctx, newRequest("+15551234567", time.Now(), time.Minute)))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumed, err := store.Consume(ctx, "+15551234567", func(*models.VerificationRequest) bool { return true })
			if err == nil && consumed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRedisLockoutStore_EscalatesToLock(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisLockoutStore(client)
	now := time.UnixMilli(time.Now().UnixMilli())

	for i := 1; i <= 4; i++ {
		rec, err := store.RecordFailure(ctx, "+15551234567", now, testPolicy)
		require.NoError(t, err)
		assert.Equal(t, i, rec.FailedAttempts)
		assert.Nil(t, rec.LockedUntil)
	}
	assert.Zero(t, mr.TTL("otp:lock:+15551234567"))

	rec, err := store.RecordFailure(ctx, "+15551234567", now, testPolicy)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.FailedAttempts)
	require.NotNil(t, rec.LockedUntil)
	assert.True(t, now.Add(15*time.Minute).Equal(*rec.LockedUntil))
	assert.Equal(t, 15*time.Minute, mr.TTL("otp:lock:+15551234567"))

	// locked: counter does not move
	rec, err = store.RecordFailure(ctx, "+15551234567", now.Add(time.Minute), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.FailedAttempts)

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, 5, got.FailedAttempts)
	assert.True(t, got.LockedAt(now))
}

func TestRedisLockoutStore_ExpiredLockStartsOver(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)
	store := NewRedisLockoutStore(client)
	now := time.UnixMilli(time.Now().UnixMilli())

	for i := 0; i < 5; i++ {
		_, err := store.RecordFailure(ctx, "k", now, testPolicy)
		require.NoError(t, err)
	}

	rec, err := store.RecordFailure(ctx, "k", now.Add(16*time.Minute), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailedAttempts)
	assert.Nil(t, rec.LockedUntil)
}

func TestRedisLockoutStore_Delete(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisLockoutStore(client)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.RecordFailure(ctx, "k", time.Now(), testPolicy)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "k"))
	assert.False(t, mr.Exists("otp:lock:k"))
}

func TestRedisLockoutStore_DeleteIfExpired(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := NewRedisLockoutStore(client)
	now := time.UnixMilli(time.Now().UnixMilli())

	for i := 0; i < 5; i++ {
		_, err := store.RecordFailure(ctx, "locked", now, testPolicy)
		require.NoError(t, err)
	}
	_, err := store.RecordFailure(ctx, "counting", now, testPolicy)
	require.NoError(t, err)

	removed, err := store.DeleteIfExpired(ctx, "locked", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.True(t, mr.Exists("otp:lock:locked"))

	removed, err = store.DeleteIfExpired(ctx, "counting", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.True(t, mr.Exists("otp:lock:counting"))

	removed, err = store.DeleteIfExpired(ctx, "locked", now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, mr.Exists("otp:lock:locked"))
}
