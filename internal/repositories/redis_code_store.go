package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "otp:code:"

// consumeScript deletes KEYS[1] only while it still holds ARGV[1], so a
// request read by several verifiers is consumed by exactly one of them.
const consumeScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisCodeStore keeps verification requests in Redis so that several API
// instances share one registry. Entries carry a TTL matching their expiry.
type RedisCodeStore struct {
	client  redis.UniversalClient
	consume *redis.Script
}

func NewRedisCodeStore(client redis.UniversalClient) *RedisCodeStore {
	return &RedisCodeStore{
		client:  client,
		consume: redis.NewScript(consumeScript),
	}
}

func (s *RedisCodeStore) Save(ctx context.Context, req *models.VerificationRequest) error {
	ttl := req.ExpiresAt.Sub(req.IssuedAt)
	if ttl <= 0 {
		return errors.New("verification request already expired")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode verification request: %w", err)
	}

	if err := s.client.Set(ctx, codeKeyPrefix+req.Phone, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification request: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, phone string) (*models.VerificationRequest, error) {
	req, _, err := s.load(ctx, phone)
	return req, err
}

// Consume deletes the request for phone when match accepts it. The delete
// only succeeds if the entry is unchanged since it was read; a lost race or
// a re-issued code reports false.
func (s *RedisCodeStore) Consume(ctx context.Context, phone string, match func(*models.VerificationRequest) bool) (bool, error) {
	req, payload, err := s.load(ctx, phone)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !match(req) {
		return false, nil
	}

	deleted, err := s.consume.Run(ctx, s.client, []string{codeKeyPrefix + phone}, payload).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to consume verification request: %w", err)
	}
	return deleted == 1, nil
}

func (s *RedisCodeStore) load(ctx context.Context, phone string) (*models.VerificationRequest, []byte, error) {
	payload, err := s.client.Get(ctx, codeKeyPrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, models.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load verification request: %w", err)
	}

	var req models.VerificationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, nil, fmt.Errorf("failed to decode verification request: %w", err)
	}
	return &req, payload, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, codeKeyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("failed to delete verification request: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis evicts entries when their TTL lapses
func (s *RedisCodeStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
