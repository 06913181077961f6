package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/BradenHooton/ditto/internal/models"
	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
)

// UserStore is the user profile lookup and persistence the sessions rely on
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetBySocialID(ctx context.Context, socialID, provider string) (*models.User, error)
	GetByEmailAndProvider(ctx context.Context, email, provider string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// SessionService ties code verification, lockout, federation and token
// issuance into the public authentication flows
type SessionService struct {
	users       UserStore
	codes       *CodeIssuer
	lockout     *LockoutTracker
	tokens      *auth.TokenManager
	federation  *FederationService
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewSessionService creates a new SessionService
func NewSessionService(users UserStore, codes *CodeIssuer, lockout *LockoutTracker, tokens *auth.TokenManager, federation *FederationService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *SessionService {
	return &SessionService{
		users:       users,
		codes:       codes,
		lockout:     lockout,
		tokens:      tokens,
		federation:  federation,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetTimingDelay pads failed verification responses. nil disables padding.
func (s *SessionService) SetTimingDelay(td *auth.TimingDelay) {
	s.timing = td
}

// StartVerification issues a code for phone
func (s *SessionService) StartVerification(ctx context.Context, phone string) error {
	if err := s.codes.Issue(ctx, phone); err != nil {
		if errors.Is(err, models.ErrInvalidPhoneFormat) {
			return err
		}
		s.logger.Error("failed to issue verification code",
			slog.String("phone", pkglogger.SanitizedPhone(phone)),
			slog.Any("error", err))
		return fmt.Errorf("start verification: %w", err)
	}

	s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventCodeIssued,
		Subject:   phone,
		Success:   true,
	})
	return nil
}

// CompleteVerification checks the code for phone and, when a matching user
// exists, issues a session. A locked phone is rejected before the code is
// looked at.
func (s *SessionService) CompleteVerification(ctx context.Context, phone, code string) (*models.TokenPair, error) {
	start := time.Now()

	if !auth.ValidPhone(phone) {
		return nil, models.ErrInvalidPhoneFormat
	}

	state, err := s.lockout.CheckLocked(ctx, phone)
	if err != nil {
		s.logger.Error("failed to check lockout", slog.Any("error", err))
		return nil, fmt.Errorf("complete verification: %w", err)
	}
	if state.Locked {
		s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventCodeRejected,
			Subject:       phone,
			FailureReason: "account_locked",
		})
		return nil, &models.LockedError{Remaining: state.Remaining}
	}

	ok, err := s.codes.Check(ctx, phone, code)
	if err != nil {
		s.logger.Error("failed to check verification code", slog.Any("error", err))
		return nil, fmt.Errorf("complete verification: %w", err)
	}

	if !ok {
		failState, err := s.lockout.RecordFailure(ctx, phone)
		if err != nil {
			s.logger.Error("failed to record verification failure", slog.Any("error", err))
			return nil, fmt.Errorf("complete verification: %w", err)
		}
		if failState.Locked {
			s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventAccountLocked,
				Subject:       phone,
				FailureReason: "too_many_attempts",
			})
		}
		s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventCodeRejected,
			Subject:       phone,
			FailureReason: "invalid_code",
		})
		s.timing.WaitFrom(start)
		return nil, models.ErrInvalidCode
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventCodeRejected,
				Subject:       phone,
				FailureReason: "user_not_found",
			})
			s.timing.WaitFrom(start)
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user by phone", slog.Any("error", err))
		return nil, fmt.Errorf("complete verification: %w", err)
	}

	if err := s.lockout.RecordSuccess(ctx, phone); err != nil {
		s.logger.Warn("failed to clear lockout record", slog.Any("error", err))
	}

	pair, err := s.tokens.GeneratePair(user.ID, phone)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.Any("error", err))
		return nil, fmt.Errorf("complete verification: %w", err)
	}

	s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventCodeVerified,
		UserID:    user.ID,
		Subject:   phone,
		Success:   true,
	})

	return pair, nil
}

// RenewSession exchanges a refresh token for a new token pair. The
// presented refresh token is not revoked.
func (s *SessionService) RenewSession(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventRenewRejected,
			FailureReason: "invalid_refresh_token",
		})
		return nil, models.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventRenewRejected,
				UserID:        claims.UserID,
				FailureReason: "user_not_found",
			})
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user by id", slog.Any("error", err))
		return nil, fmt.Errorf("renew session: %w", err)
	}

	pair, err := s.tokens.GeneratePair(user.ID, claims.Subject)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.Any("error", err))
		return nil, fmt.Errorf("renew session: %w", err)
	}

	s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSessionRenewed,
		UserID:    user.ID,
		Subject:   claims.Subject,
		Success:   true,
	})

	return pair, nil
}

// AuthenticateFederated verifies a provider token, resolves or creates the
// matching user and issues a session keyed by the user's email
func (s *SessionService) AuthenticateFederated(ctx context.Context, providerName, providerToken string) (*models.FederatedSession, error) {
	provider, identity, err := s.federation.Verify(ctx, providerName, providerToken)
	if err != nil {
		s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventFederatedFail,
			Provider:      providerName,
			FailureReason: federationFailureReason(err),
		})
		switch {
		case errors.Is(err, models.ErrUnsupportedProvider), errors.Is(err, models.ErrInvalidProviderToken):
			return nil, err
		default:
			return nil, models.ErrSocialAuthFailed
		}
	}

	user, err := s.resolveFederatedUser(ctx, provider, identity)
	if err != nil {
		s.logger.Error("failed to resolve federated user",
			slog.String("provider", string(provider)),
			slog.Any("error", err))
		s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventFederatedFail,
			Provider:      string(provider),
			FailureReason: "user_store_error",
		})
		return nil, models.ErrSocialAuthFailed
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.Any("error", err))
		return nil, models.ErrSocialAuthFailed
	}

	s.auditLogger.LogAuthEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventFederatedLogin,
		UserID:    user.ID,
		Subject:   user.Email,
		Provider:  string(provider),
		Success:   true,
	})

	return &models.FederatedSession{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Summary(),
	}, nil
}

// resolveFederatedUser looks up by provider id, then by email, then creates
func (s *SessionService) resolveFederatedUser(ctx context.Context, provider Provider, identity *models.FederatedIdentity) (*models.User, error) {
	user, err := s.users.GetBySocialID(ctx, identity.ProviderUserID, string(provider))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if identity.Email != "" {
		user, err = s.users.GetByEmailAndProvider(ctx, identity.Email, string(provider))
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	user, err = s.users.Create(ctx, &models.User{
		Email:             identity.Email,
		FirstName:         identity.FirstName,
		LastName:          identity.LastName,
		AuthProvider:      string(provider),
		SocialID:          identity.ProviderUserID,
		ProfilePictureURL: identity.ProfilePictureURL,
	})
	if errors.Is(err, models.ErrConflict) {
		// created concurrently by another request
		return s.users.GetBySocialID(ctx, identity.ProviderUserID, string(provider))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("federated user created",
		slog.String("user_id", user.ID),
		slog.String("provider", string(provider)))
	return user, nil
}

// VerifyAccessToken resolves a bearer access token to its session identity
func (s *SessionService) VerifyAccessToken(token string) (*models.SessionIdentity, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	return &models.SessionIdentity{UserID: claims.UserID, Subject: claims.Subject}, nil
}

// GetMe returns the profile of the authenticated user
func (s *SessionService) GetMe(ctx context.Context, userID string) (*models.UserSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user by id", slog.Any("error", err))
		return nil, fmt.Errorf("get me: %w", err)
	}
	return user.Summary(), nil
}

func federationFailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, models.ErrInvalidProviderToken):
		return "invalid_provider_token"
	default:
		return "provider_error"
	}
}
