package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "type" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set signed into both access and refresh tokens.
// Subject is the phone number for code-verified sessions and the email for
// federated sessions; treat it as an opaque session key.
type TokenClaims struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	Subject string `json:"subject"`
	jwt.RegisteredClaims
}

// TokenPair is returned by every flow that establishes or renews a session
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// FederatedSession is a token pair plus the resolved user
type FederatedSession struct {
	AccessToken  string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *UserSummary `json:"user"`
}

// SessionIdentity is what a valid access token resolves to
type SessionIdentity struct {
	UserID  string
	Subject string
}

// VerificationRequest tracks an issued code. Only the bcrypt hash of the code is kept.
type VerificationRequest struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the request can no longer be verified
func (v *VerificationRequest) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// LockoutRecord counts failed verification attempts for one phone
type LockoutRecord struct {
	Key            string
	FailedAttempts int
	LastAttemptAt  time.Time
	LockedUntil    *time.Time
}

// LockedAt reports whether the record blocks attempts at the given instant
func (r *LockoutRecord) LockedAt(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// LockoutPolicy holds the threshold and lock duration
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// LockState is the outcome of a lockout check
type LockState struct {
	Locked    bool
	Remaining time.Duration
}

// FederatedIdentity is the normalized identity extracted from a provider assertion
type FederatedIdentity struct {
	ProviderUserID    string
	Email             string
	FirstName         string
	LastName          string
	ProfilePictureURL string
}
