package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/ditto/pkg/http"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sendFrom(handler http.Handler, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/auth/send-otp", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimitByIP_Returns429AfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(okHandler())

	for i := 0; i < 3; i++ {
		w := sendFrom(handler, "198.51.100.1:1000", "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := sendFrom(handler, "198.51.100.1:1000", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimitByIP_IsolatesClients(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	assert.Equal(t, http.StatusOK, sendFrom(handler, "198.51.100.1:1000", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "198.51.100.1:1000", "").Code)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "198.51.100.2:1000", "").Code)
}

func TestRateLimitByIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	assert.Equal(t, http.StatusOK, sendFrom(handler, "198.51.100.1:1000", "203.0.113.1").Code)
	// A fresh X-Forwarded-For from an untrusted peer must not open a new bucket
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "198.51.100.1:1000", "203.0.113.2").Code)
}

func TestRateLimitByIP_TrustedProxyKeysOnForwardedClient(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{
		RequestsPerMinute: 1,
		IPConfig:          &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
	})(okHandler())

	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.1:1000", "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.1:1000", "203.0.113.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.0.0.1:1000", "203.0.113.1").Code)
}

func TestRateLimitByIP_NonPositiveLimitFallsBackToDefault(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{})(okHandler())

	for i := 0; i < DefaultAuthRateLimit().RequestsPerMinute; i++ {
		assert.Equal(t, http.StatusOK, sendFrom(handler, "198.51.100.9:1000", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "198.51.100.9:1000", "").Code)
}
