package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/BradenHooton/ditto/internal/models"
	pkghttp "github.com/BradenHooton/ditto/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds a session identity to the request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, subject string) *http.Request {
	identity := &models.SessionIdentity{UserID: userID, Subject: subject}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockSessionService implements SessionServiceInterface for testing
type MockSessionService struct {
	StartVerificationFunc     func(ctx context.Context, phone string) error
	CompleteVerificationFunc  func(ctx context.Context, phone, code string) (*models.TokenPair, error)
	RenewSessionFunc          func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	AuthenticateFederatedFunc func(ctx context.Context, provider, token string) (*models.FederatedSession, error)
	GetMeFunc                 func(ctx context.Context, userID string) (*models.UserSummary, error)
}

func (m *MockSessionService) StartVerification(ctx context.Context, phone string) error {
	if m.StartVerificationFunc == nil {
		return nil
	}
	return m.StartVerificationFunc(ctx, phone)
}

func (m *MockSessionService) CompleteVerification(ctx context.Context, phone, code string) (*models.TokenPair, error) {
	if m.CompleteVerificationFunc == nil {
		return nil, models.ErrInvalidCode
	}
	return m.CompleteVerificationFunc(ctx, phone, code)
}

func (m *MockSessionService) RenewSession(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RenewSessionFunc == nil {
		return nil, models.ErrInvalidRefreshToken
	}
	return m.RenewSessionFunc(ctx, refreshToken)
}

func (m *MockSessionService) AuthenticateFederated(ctx context.Context, provider, token string) (*models.FederatedSession, error) {
	if m.AuthenticateFederatedFunc == nil {
		return nil, models.ErrUnsupportedProvider
	}
	return m.AuthenticateFederatedFunc(ctx, provider, token)
}

func (m *MockSessionService) GetMe(ctx context.Context, userID string) (*models.UserSummary, error) {
	if m.GetMeFunc == nil {
		return nil, models.ErrUserNotFound
	}
	return m.GetMeFunc(ctx, userID)
}
