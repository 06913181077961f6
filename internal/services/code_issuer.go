package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/BradenHooton/ditto/internal/models"
	pkgauth "github.com/BradenHooton/ditto/pkg/auth"
	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
)

// CodeStore persists verification requests keyed by phone
type CodeStore interface {
	Save(ctx context.Context, req *models.VerificationRequest) error
	// Consume deletes the request for phone if match accepts it, as one
	// step per phone, and reports whether it did.
	Consume(ctx context.Context, phone string, match func(*models.VerificationRequest) bool) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// IssuedCode is the debug record of the most recent issuance
type IssuedCode struct {
	Phone     string
	Code      string
	ExpiresAt time.Time
}

// CodeIssuerConfig holds issuance policy
type CodeIssuerConfig struct {
	TTL time.Duration
	// DebugCodeLogging logs issued codes at debug level and keeps the last
	// one for LastIssued. Never enable in production.
	DebugCodeLogging bool
}

// CodeIssuer generates, records and checks verification codes
type CodeIssuer struct {
	store     CodeStore
	generator auth.CodeGenerator
	notifier  CodeNotifier
	ttl       time.Duration
	debug     bool
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	last *IssuedCode
}

// NewCodeIssuer creates a new CodeIssuer
func NewCodeIssuer(store CodeStore, generator auth.CodeGenerator, notifier CodeNotifier, cfg CodeIssuerConfig, logger *slog.Logger) *CodeIssuer {
	return &CodeIssuer{
		store:     store,
		generator: generator,
		notifier:  notifier,
		ttl:       cfg.TTL,
		debug:     cfg.DebugCodeLogging,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source
func (ci *CodeIssuer) SetClock(now func() time.Time) {
	ci.now = now
}

// Issue generates a code for phone, records it and hands it to the notifier.
// A new issuance replaces any code already tracked for the phone.
func (ci *CodeIssuer) Issue(ctx context.Context, phone string) error {
	if !auth.ValidPhone(phone) {
		return models.ErrInvalidPhoneFormat
	}

	code, err := ci.generator.Generate(phone)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := pkgauth.HashCode(code)
	if err != nil {
		return err
	}

	now := ci.now()
	req := &models.VerificationRequest{
		Phone:     phone,
		CodeHash:  hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(ci.ttl),
	}

	if err := ci.store.Save(ctx, req); err != nil {
		return fmt.Errorf("failed to record verification request: %w", err)
	}

	if ci.debug {
		ci.logger.DebugContext(ctx, "verification code issued",
			slog.String("phone", pkglogger.SanitizedPhone(phone)),
			slog.String("code", code),
			slog.Time("expires_at", req.ExpiresAt))

		ci.mu.Lock()
		ci.last = &IssuedCode{Phone: phone, Code: code, ExpiresAt: req.ExpiresAt}
		ci.mu.Unlock()
	}

	if ci.notifier != nil {
		if err := ci.notifier.SendCode(ctx, phone, code, ci.ttl); err != nil {
			return fmt.Errorf("failed to deliver code: %w", err)
		}
	}

	return nil
}

// Check compares code with the tracked request for phone. A matching or
// expired request is consumed; a mismatch leaves it in place. Concurrent
// checks of one code succeed at most once. When the generator can derive
// codes from the phone, the derived code is also accepted.
func (ci *CodeIssuer) Check(ctx context.Context, phone, code string) (bool, error) {
	now := ci.now()
	var matched bool
	consumed, err := ci.store.Consume(ctx, phone, func(req *models.VerificationRequest) bool {
		if req.Expired(now) {
			return true
		}
		matched = pkgauth.CompareCode(req.CodeHash, code)
		return matched
	})
	if err != nil {
		return false, fmt.Errorf("failed to check verification request: %w", err)
	}
	if consumed && matched {
		return true, nil
	}

	if deriver, ok := ci.generator.(auth.DerivingCodeGenerator); ok {
		return pkgauth.EqualCode(deriver.Derive(phone), code), nil
	}

	return false, nil
}

// Sweep removes requests that expired before now
func (ci *CodeIssuer) Sweep(ctx context.Context, now time.Time) (int, error) {
	return ci.store.DeleteExpired(ctx, now)
}

// LastIssued returns the most recently issued code when debug logging is on
func (ci *CodeIssuer) LastIssued() (IssuedCode, bool) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	if ci.last == nil {
		return IssuedCode{}, false
	}
	return *ci.last, true
}
