package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventCodeIssued     = "code_issued"
	EventCodeVerified   = "code_verified"
	EventCodeRejected   = "code_rejected"
	EventAccountLocked  = "account_locked"
	EventSessionRenewed = "session_renewed"
	EventRenewRejected  = "session_renew_rejected"
	EventFederatedLogin = "federated_login"
	EventFederatedFail  = "federated_login_failed"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Subject       string // masked before logging
	Provider      string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

type clientIPKey struct{}

// WithClientIP stores the caller's address for audit events logged under ctx
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the address stored by WithClientIP
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogAuthEvent logs verification, session and federation events
func (al *AuditLogger) LogAuthEvent(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", SanitizedSubject(event.Subject)))
	}
	if event.Provider != "" {
		attrs = append(attrs, slog.String("provider", event.Provider))
	}
	if event.IPAddress == "" && ctx != nil {
		event.IPAddress = ClientIPFromContext(ctx)
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
