package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSummary_OmitsEmptyPhoneAndProvider(t *testing.T) {
	u := &User{ID: "u2", Email: "a@b.com", FirstName: "Ada", LastName: "L"}

	body, err := json.Marshal(u.Summary())
	require.NoError(t, err)

	assert.NotContains(t, string(body), `"phone"`)
	assert.NotContains(t, string(body), `"authProvider"`)
	assert.Contains(t, string(body), `"email":"a@b.com"`)
}

func TestUserSummary_FormatsTimestamps(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	u := &User{ID: "u1", Phone: "+15551234567", AuthProvider: AuthProviderPhone, CreatedAt: created}

	s := u.Summary()
	assert.Equal(t, "2024-03-01T11:00:00Z", s.CreatedAt)
	assert.Empty(t, s.UpdatedAt)
	assert.Equal(t, "+15551234567", s.Phone)
	assert.Equal(t, AuthProviderPhone, s.AuthProvider)
}

func TestVerificationRequest_ExpiredAtBoundary(t *testing.T) {
	now := time.Now()
	v := &VerificationRequest{ExpiresAt: now}

	assert.True(t, v.Expired(now))
	assert.False(t, v.Expired(now.Add(-time.Nanosecond)))
}

func TestLockoutRecord_LockedAt(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Minute)

	assert.False(t, (&LockoutRecord{}).LockedAt(now))
	assert.True(t, (&LockoutRecord{LockedUntil: &until}).LockedAt(now))
	assert.False(t, (&LockoutRecord{LockedUntil: &until}).LockedAt(until))
}
