package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(phone string, issued time.Time, ttl time.Duration) *models.VerificationRequest {
	return &models.VerificationRequest{
		Phone:     phone,
		CodeHash:  "hash-" + phone,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
}

func TestMemoryCodeStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "+15551234567")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.Save(ctx, newRequest("+15551234567", now, 5*time.Minute)))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "hash-+15551234567", got.CodeHash)
	assert.Equal(t, now.Add(5*time.Minute), got.ExpiresAt)

	require.NoError(t, store.Delete(ctx, "+15551234567"))
	_, err = store.Get(ctx, "+15551234567")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryCodeStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Now()

	first := newRequest("+15551234567", now, time.Minute)
	second := newRequest("+15551234567", now.Add(time.Second), time.Minute)
	second.CodeHash = "second"

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "second", got.CodeHash)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryCodeStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	require.NoError(t, store.Save(ctx, newRequest("+15551234567", time.Now(), time.Minute)))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	got.CodeHash = "mutated"

	again, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "hash-+15551234567", again.CodeHash)
}

func TestMemoryCodeStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, newRequest("+15550000001", now.Add(-10*time.Minute), 5*time.Minute)))
	require.NoError(t, store.Save(ctx, newRequest("+15550000002", now.Add(-5*time.Minute), 5*time.Minute)))
	require.NoError(t, store.Save(ctx, newRequest("+15550000003", now, 5*time.Minute)))

	removed, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, "+15550000003")
	assert.NoError(t, err)
}

func TestMemoryCodeStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := fmt.Sprintf("+1555000%04d", i)
			_ = store.Save(ctx, newRequest(phone, now, time.Minute))
			_, _ = store.Get(ctx, phone)
			_, _ = store.DeleteExpired(ctx, now)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}

func TestMemoryCodeStore_Consume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	require.NoError(t, store.Save(ctx, newRequest("+15551234567", time.Now(), time.Minute)))

	rejectHash := func(req *models.VerificationRequest) bool { return req.CodeHash == "other" }
	consumed, err := store.Consume(ctx, "+15551234567", rejectHash)
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.Equal(t, 1, store.Len())

	acceptHash := func(req *models.VerificationRequest) bool { return req.CodeHash == "hash-+15551234567" }
	consumed, err = store.Consume(ctx, "+15551234567", acceptHash)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, 0, store.Len())

	consumed, err = store.Consume(ctx, "+15551234567", acceptHash)
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestMemoryCodeStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	require.NoError(t, store.Save(ctx, newRequest("+15551234567", time.Now(), time.Minute)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumed, _ := store.Consume(ctx, "+15551234567", func(*models.VerificationRequest) bool {
				time.Sleep(time.Millisecond)
				return true
			})
			if consumed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
