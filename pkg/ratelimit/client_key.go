package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the key used when no address can be determined.
const UnknownClient = "unknown"

// forwardingHeaders are consulted in order after X-Forwarded-For.
var forwardingHeaders = []string{
	"X-Real-IP",
	"X-Azure-ClientIP",
	"X-Client-IP",
}

// ClientKey identifies the caller for rate limiting. Forwarding headers are
// trusted as-is, so a client that can set them can pick its own key.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}

	for _, h := range forwardingHeaders {
		if parsed := parseIP(r.Header.Get(h)); parsed != "" {
			return parsed
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if parsed := parseIP(host); parsed != "" {
		return parsed
	}

	return UnknownClient
}

// parseIP validates and normalizes an IP address string.
// Returns empty string if the IP is invalid.
func parseIP(ipStr string) string {
	ipStr = strings.TrimSpace(ipStr)
	if ipStr == "" {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	return ip.String()
}
