package models

import (
	"time"
)

// Auth providers recorded on a user record
const (
	AuthProviderPhone  = "phone"
	AuthProviderGoogle = "google"
	AuthProviderApple  = "apple"
)

type User struct {
	ID                string
	Phone             string // empty for federated-only users
	Email             string
	FirstName         string
	LastName          string
	AuthProvider      string
	SocialID          string // provider user ID, empty for phone users
	ProfilePictureURL string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UserSummary is the profile shape returned to API clients
type UserSummary struct {
	ID                string `json:"id"`
	Phone             string `json:"phone,omitempty"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	AuthProvider      string `json:"authProvider,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

// Summary converts a user record to its API representation
func (u *User) Summary() *UserSummary {
	s := &UserSummary{
		ID:                u.ID,
		Phone:             u.Phone,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		AuthProvider:      u.AuthProvider,
		ProfilePictureURL: u.ProfilePictureURL,
	}
	if !u.CreatedAt.IsZero() {
		s.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !u.UpdatedAt.IsZero() {
		s.UpdatedAt = u.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return s
}
