package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig holds signing secrets and lifetimes.
// RefreshSecret may equal AccessSecret.
type TokenConfig struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("access token secret is required")
	}
	if cfg.AccessTokenExpiry <= 0 || cfg.RefreshTokenExpiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}

	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.AccessSecret
	}

	return &TokenManager{
		accessSecret:       []byte(cfg.AccessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  cfg.AccessTokenExpiry,
		refreshTokenExpiry: cfg.RefreshTokenExpiry,
		now:                time.Now,
	}, nil
}

// SetClock overrides the time source used for issuing and verifying tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// GenerateAccessToken creates a short-lived access token
func (tm *TokenManager) GenerateAccessToken(userID, subject string) (string, error) {
	return tm.sign(models.TokenTypeAccess, userID, subject, tm.accessTokenExpiry, tm.accessSecret)
}

// GenerateRefreshToken creates a long-lived refresh token
func (tm *TokenManager) GenerateRefreshToken(userID, subject string) (string, error) {
	return tm.sign(models.TokenTypeRefresh, userID, subject, tm.refreshTokenExpiry, tm.refreshSecret)
}

// GeneratePair issues a fresh access and refresh token for the same session
func (tm *TokenManager) GeneratePair(userID, subject string) (*models.TokenPair, error) {
	accessToken, err := tm.GenerateAccessToken(userID, subject)
	if err != nil {
		return nil, err
	}

	refreshToken, err := tm.GenerateRefreshToken(userID, subject)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (tm *TokenManager) sign(kind, userID, subject string, ttl time.Duration, secret []byte) (string, error) {
	now := tm.now()

	claims := &models.TokenClaims{
		Type:    kind,
		UserID:  userID,
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// ValidateAccessToken verifies signature, expiry and that the token is an access token.
// Every failure is reported as models.ErrInvalidToken.
func (tm *TokenManager) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return tm.validate(tokenString, models.TokenTypeAccess, tm.accessSecret)
}

// ValidateRefreshToken verifies signature, expiry and that the token is a refresh token.
// Every failure is reported as models.ErrInvalidToken.
func (tm *TokenManager) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	return tm.validate(tokenString, models.TokenTypeRefresh, tm.refreshSecret)
}

func (tm *TokenManager) validate(tokenString, kind string, secret []byte) (*models.TokenClaims, error) {
	if tokenString == "" {
		return nil, models.ErrInvalidToken
	}

	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}

	if claims.Type != kind || claims.UserID == "" {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}
