package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/ditto/internal/models"
	"google.golang.org/api/idtoken"
)

// Provider names a federated identity provider
type Provider string

const (
	ProviderGoogle Provider = models.AuthProviderGoogle
	ProviderApple  Provider = models.AuthProviderApple
)

// ParseProvider maps a client-supplied name to a known provider
func ParseProvider(name string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderApple:
		return ProviderApple, true
	default:
		return "", false
	}
}

// IdentityVerifier checks a provider-issued assertion and extracts the identity
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, token string) (*models.FederatedIdentity, error)
}

// FederationService dispatches provider tokens to the verifier registered
// for that provider. Providers without a verifier are rejected before any
// verification work happens.
type FederationService struct {
	verifiers map[Provider]IdentityVerifier
	timeout   time.Duration
	logger    *slog.Logger
}

// NewFederationService creates a new FederationService
func NewFederationService(verifiers map[Provider]IdentityVerifier, timeout time.Duration, logger *slog.Logger) *FederationService {
	return &FederationService{
		verifiers: verifiers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Verify returns the normalized identity behind a provider token.
// Errors are ErrUnsupportedProvider or ErrInvalidProviderToken only.
func (f *FederationService) Verify(ctx context.Context, providerName, token string) (Provider, *models.FederatedIdentity, error) {
	provider, ok := ParseProvider(providerName)
	if !ok {
		return "", nil, models.ErrUnsupportedProvider
	}

	verifier, ok := f.verifiers[provider]
	if !ok || verifier == nil {
		return "", nil, models.ErrUnsupportedProvider
	}

	if strings.TrimSpace(token) == "" {
		return "", nil, models.ErrInvalidProviderToken
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	identity, err := verifier.VerifyIdentity(ctx, token)
	if err != nil {
		f.logger.Warn("provider token verification failed",
			slog.String("provider", string(provider)),
			slog.Any("error", err))
		return "", nil, models.ErrInvalidProviderToken
	}

	if identity == nil || identity.ProviderUserID == "" {
		f.logger.Warn("provider token carried no subject", slog.String("provider", string(provider)))
		return "", nil, models.ErrInvalidProviderToken
	}

	return provider, identity, nil
}

// IDTokenValidator validates a Google ID token for an audience.
// *idtoken.Validator satisfies it.
type IDTokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier verifies Google Sign-In ID tokens
type GoogleVerifier struct {
	validator IDTokenValidator
	clientID  string
}

// NewGoogleVerifier creates a verifier bound to the registered OAuth client id
func NewGoogleVerifier(validator IDTokenValidator, clientID string) *GoogleVerifier {
	return &GoogleVerifier{validator: validator, clientID: clientID}
}

func (g *GoogleVerifier) VerifyIdentity(ctx context.Context, token string) (*models.FederatedIdentity, error) {
	if g.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := g.validator.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("google id token rejected: %w", err)
	}
	if payload == nil {
		return nil, errors.New("google id token has no payload")
	}
	if payload.Audience != g.clientID {
		return nil, errors.New("google id token audience mismatch")
	}

	return &models.FederatedIdentity{
		ProviderUserID:    payload.Subject,
		Email:             claimString(payload.Claims, "email"),
		FirstName:         claimString(payload.Claims, "given_name"),
		LastName:          claimString(payload.Claims, "family_name"),
		ProfilePictureURL: claimString(payload.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
