package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"google.golang.org/api/idtoken"
)

// MockUserStore implements UserStore for testing
type MockUserStore struct {
	GetByIDFunc               func(ctx context.Context, id string) (*models.User, error)
	GetByPhoneFunc            func(ctx context.Context, phone string) (*models.User, error)
	GetBySocialIDFunc         func(ctx context.Context, socialID, provider string) (*models.User, error)
	GetByEmailAndProviderFunc func(ctx context.Context, email, provider string) (*models.User, error)
	CreateFunc                func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	if m.GetByPhoneFunc != nil {
		return m.GetByPhoneFunc(ctx, phone)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) GetBySocialID(ctx context.Context, socialID, provider string) (*models.User, error) {
	if m.GetBySocialIDFunc != nil {
		return m.GetBySocialIDFunc(ctx, socialID, provider)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) GetByEmailAndProvider(ctx context.Context, email, provider string) (*models.User, error) {
	if m.GetByEmailAndProviderFunc != nil {
		return m.GetByEmailAndProviderFunc(ctx, email, provider)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// MockIdentityVerifier implements IdentityVerifier and counts calls
type MockIdentityVerifier struct {
	VerifyIdentityFunc func(ctx context.Context, token string) (*models.FederatedIdentity, error)

	mu    sync.Mutex
	calls int
}

func (m *MockIdentityVerifier) VerifyIdentity(ctx context.Context, token string) (*models.FederatedIdentity, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.VerifyIdentityFunc != nil {
		return m.VerifyIdentityFunc(ctx, token)
	}
	return nil, models.ErrInvalidProviderToken
}

// Calls returns how many times VerifyIdentity ran
func (m *MockIdentityVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockIDTokenValidator implements IDTokenValidator for testing
type MockIDTokenValidator struct {
	ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func (m *MockIDTokenValidator) Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, idToken, audience)
	}
	return nil, models.ErrInvalidProviderToken
}

// MockSNSPublisher implements SNSPublisher for testing
type MockSNSPublisher struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSPublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

// MockCodeNotifier implements CodeNotifier for testing
type MockCodeNotifier struct {
	SendCodeFunc func(ctx context.Context, phone, code string, ttl time.Duration) error
}

func (m *MockCodeNotifier) SendCode(ctx context.Context, phone, code string, ttl time.Duration) error {
	if m.SendCodeFunc != nil {
		return m.SendCodeFunc(ctx, phone, code, ttl)
	}
	return nil
}
