package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
)

// MemoryLockoutStore keeps failed-attempt counters in process memory
type MemoryLockoutStore struct {
	records *shardedMap[models.LockoutRecord]
}

func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{records: newShardedMap[models.LockoutRecord]()}
}

func (s *MemoryLockoutStore) Get(_ context.Context, key string) (*models.LockoutRecord, error) {
	rec, ok := s.records.get(key)
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyLockoutRecord(rec), nil
}

// RecordFailure counts one failed attempt atomically for the key.
// A record that is currently locked is returned unchanged; a record whose
// lock has already expired starts over from zero.
func (s *MemoryLockoutStore) RecordFailure(_ context.Context, key string, now time.Time, policy models.LockoutPolicy) (*models.LockoutRecord, error) {
	rec := s.records.update(key, func(current models.LockoutRecord, ok bool) (models.LockoutRecord, bool) {
		if ok && current.LockedUntil != nil {
			if current.LockedAt(now) {
				return current, true
			}
			ok = false
		}
		if !ok {
			current = models.LockoutRecord{Key: key}
		}

		current.FailedAttempts++
		current.LastAttemptAt = now
		if current.FailedAttempts >= policy.MaxAttempts {
			until := now.Add(policy.Duration)
			current.LockedUntil = &until
		}
		return current, true
	})
	return copyLockoutRecord(rec), nil
}

func (s *MemoryLockoutStore) Delete(_ context.Context, key string) error {
	s.records.delete(key)
	return nil
}

// DeleteIfExpired drops the record for key only while it still holds a
// lock that ended at or before now. It reports whether a record was removed.
func (s *MemoryLockoutStore) DeleteIfExpired(_ context.Context, key string, now time.Time) (bool, error) {
	var removed bool
	s.records.update(key, func(current models.LockoutRecord, ok bool) (models.LockoutRecord, bool) {
		if ok && current.LockedUntil != nil && !current.LockedAt(now) {
			removed = true
			return current, false
		}
		return current, ok
	})
	return removed, nil
}

// DeleteExpired removes records whose lock has passed
func (s *MemoryLockoutStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	return s.records.deleteWhere(func(rec models.LockoutRecord) bool {
		return rec.LockedUntil != nil && !rec.LockedAt(now)
	}), nil
}

// Len returns the number of tracked records
func (s *MemoryLockoutStore) Len() int {
	return s.records.len()
}

func copyLockoutRecord(rec models.LockoutRecord) *models.LockoutRecord {
	out := rec
	if rec.LockedUntil != nil {
		until := *rec.LockedUntil
		out.LockedUntil = &until
	}
	return &out
}
