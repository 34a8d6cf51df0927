package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// OriginMatcher reports whether origin is on the configured allow-list.
// Entries are exact origins, "*", or wildcard subdomains such as
// "https://*.almeone.com".
type OriginMatcher struct {
	allowed []string
}

func NewOriginMatcher(allowed []string) OriginMatcher {
	return OriginMatcher{allowed: lo.Map(allowed, func(o string, _ int) string {
		return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
	})}
}

func (m OriginMatcher) Allowed(origin string) bool {
	origin = strings.ToLower(origin)
	return lo.SomeBy(m.allowed, func(pattern string) bool {
		return matchOrigin(pattern, origin)
	})
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}

	scheme, host, ok := strings.Cut(pattern, "://*.")
	if !ok {
		return false
	}
	rest, found := strings.CutPrefix(origin, scheme+"://")
	if !found {
		return false
	}
	// The leading dot keeps "evilalmeone.com" from matching "*.almeone.com".
	return strings.HasSuffix(rest, "."+host)
}

// CORSMiddleware answers preflight requests and sets CORS headers for origins
// on the allow-list. Requests without an Origin header (same-origin, curl) pass.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	matcher := NewOriginMatcher(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		isAllowed := origin == "" || matcher.Allowed(origin)

		if origin != "" && isAllowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
			c.Header("Access-Control-Max-Age", "86400") // 24 hours
		}
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			if isAllowed {
				c.AbortWithStatus(http.StatusOK)
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}

		c.Next()
	}
}
