package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig holds configuration for IP extraction
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ExtractClientIP returns the client IP for audit logging. Forwarding headers
// are honoured only when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddrIP(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if _, err := netip.ParseAddr(candidate); err == nil {
				return candidate
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	return remoteIP
}

func remoteAddrIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}
