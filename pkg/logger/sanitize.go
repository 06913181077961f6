package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask all but the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizedPhone masks a phone number for logging, keeping the country prefix
// and the last two digits (e.g., "+1*******23")
func SanitizedPhone(phone string) string {
	if len(phone) < 5 || phone[0] != '+' {
		return "[invalid-phone]"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}

// SanitizedSubject masks a token subject, which is either a phone or an email
func SanitizedSubject(subject string) string {
	if strings.Contains(subject, "@") {
		return SanitizedEmail(subject)
	}
	return SanitizedPhone(subject)
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" || env == "staging" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"token", "secret", "otp", "code", "phone", "email", "auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
