package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Verification flow
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrUserNotFound       = errors.New("user not found")

	// Token flow
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// Federation flow
	ErrUnsupportedProvider  = errors.New("unsupported authentication provider")
	ErrInvalidProviderToken = errors.New("invalid provider token")
	ErrSocialAuthFailed     = errors.New("social authentication failed")
)

// LockedError carries the remaining lock time. It matches ErrAccountLocked with errors.Is.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, try again in %d minutes", e.Minutes())
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// Minutes returns the remaining lock time rounded up to whole minutes
func (e *LockedError) Minutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}
