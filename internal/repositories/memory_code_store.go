package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
)

// MemoryCodeStore keeps verification requests in process memory.
// Contents are lost on restart.
type MemoryCodeStore struct {
	requests *shardedMap[models.VerificationRequest]
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{requests: newShardedMap[models.VerificationRequest]()}
}

// Save replaces any request already tracked for the phone
func (s *MemoryCodeStore) Save(_ context.Context, req *models.VerificationRequest) error {
	s.requests.set(req.Phone, *req)
	return nil
}

func (s *MemoryCodeStore) Get(_ context.Context, phone string) (*models.VerificationRequest, error) {
	req, ok := s.requests.get(phone)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &req, nil
}

func (s *MemoryCodeStore) Delete(_ context.Context, phone string) error {
	s.requests.delete(phone)
	return nil
}

// Consume deletes the request for phone when match accepts it. The match
// runs under the shard lock, so only one caller can consume a request.
func (s *MemoryCodeStore) Consume(_ context.Context, phone string, match func(*models.VerificationRequest) bool) (bool, error) {
	var consumed bool
	s.requests.update(phone, func(current models.VerificationRequest, ok bool) (models.VerificationRequest, bool) {
		if !ok {
			return current, false
		}
		req := current
		if match(&req) {
			consumed = true
			return current, false
		}
		return current, true
	})
	return consumed, nil
}

func (s *MemoryCodeStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	return s.requests.deleteWhere(func(req models.VerificationRequest) bool {
		return req.Expired(now)
	}), nil
}

// Len returns the number of tracked requests
func (s *MemoryCodeStore) Len() int {
	return s.requests.len()
}
