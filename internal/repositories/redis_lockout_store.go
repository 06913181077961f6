package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/redis/go-redis/v9"
)

const lockoutKeyPrefix = "otp:lock:"

// recordFailureScript increments the failure counter and sets the lock in
// one round trip. Times are unix milliseconds supplied by the caller.
//
// KEYS[1] lockout hash
// ARGV[1] now, ARGV[2] max attempts, ARGV[3] lock duration
const recordFailureScript = `
local now = tonumber(ARGV[1])
local locked = tonumber(redis.call("HGET", KEYS[1], "locked_until") or "0")
if locked > 0 and now < locked then
  local attempts = tonumber(redis.call("HGET", KEYS[1], "attempts") or "0")
  local last = tonumber(redis.call("HGET", KEYS[1], "last_attempt") or "0")
  return {attempts, last, locked}
end
if locked > 0 then
  redis.call("DEL", KEYS[1])
end
local attempts = redis.call("HINCRBY", KEYS[1], "attempts", 1)
redis.call("HSET", KEYS[1], "last_attempt", now)
local until_ms = 0
if attempts >= tonumber(ARGV[2]) then
  until_ms = now + tonumber(ARGV[3])
  redis.call("HSET", KEYS[1], "locked_until", until_ms)
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return {attempts, now, until_ms}
`

// deleteExpiredScript drops the hash only while its lock has lapsed.
//
// KEYS[1] lockout hash
// ARGV[1] now
const deleteExpiredScript = `
local locked = tonumber(redis.call("HGET", KEYS[1], "locked_until") or "0")
if locked > 0 and tonumber(ARGV[1]) >= locked then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLockoutStore keeps failed-attempt counters in a Redis hash per phone.
// Locked hashes expire with the lock, so no sweep is needed.
type RedisLockoutStore struct {
	client        redis.UniversalClient
	script        *redis.Script
	expiredScript *redis.Script
}

func NewRedisLockoutStore(client redis.UniversalClient) *RedisLockoutStore {
	return &RedisLockoutStore{
		client:        client,
		script:        redis.NewScript(recordFailureScript),
		expiredScript: redis.NewScript(deleteExpiredScript),
	}
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (*models.LockoutRecord, error) {
	fields, err := s.client.HGetAll(ctx, lockoutKeyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load lockout record: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}

	attempts, _ := strconv.ParseInt(fields["attempts"], 10, 64)
	last, _ := strconv.ParseInt(fields["last_attempt"], 10, 64)
	locked, _ := strconv.ParseInt(fields["locked_until"], 10, 64)

	return buildLockoutRecord(key, attempts, last, locked), nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, policy models.LockoutPolicy) (*models.LockoutRecord, error) {
	values, err := s.script.Run(ctx, s.client, []string{lockoutKeyPrefix + key},
		now.UnixMilli(), policy.MaxAttempts, policy.Duration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to record verification failure: %w", err)
	}
	if len(values) != 3 {
		return nil, errors.New("unexpected lockout script reply")
	}

	return buildLockoutRecord(key, values[0], values[1], values[2]), nil
}

func (s *RedisLockoutStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockoutKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete lockout record: %w", err)
	}
	return nil
}

// DeleteIfExpired drops the hash for key only while its lock has lapsed
func (s *RedisLockoutStore) DeleteIfExpired(ctx context.Context, key string, now time.Time) (bool, error) {
	removed, err := s.expiredScript.Run(ctx, s.client, []string{lockoutKeyPrefix + key}, now.UnixMilli()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to drop expired lockout: %w", err)
	}
	return removed == 1, nil
}

// DeleteExpired is a no-op; locked hashes carry a TTL equal to the lock
func (s *RedisLockoutStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func buildLockoutRecord(key string, attempts, lastMs, lockedMs int64) *models.LockoutRecord {
	rec := &models.LockoutRecord{
		Key:            key,
		FailedAttempts: int(attempts),
		LastAttemptAt:  time.UnixMilli(lastMs),
	}
	if lockedMs > 0 {
		until := time.UnixMilli(lockedMs)
		rec.LockedUntil = &until
	}
	return rec
}
