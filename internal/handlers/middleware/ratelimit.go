package middleware

import (
	"math"
	"net"
	"net/http"
	"strings"

	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/render"
	"github.com/Alekaz94/catholic-daily-companion/internal/ratelimit"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/auth"
)

const (
	authPathPrefix = "/api/auth/"

	// Refresh bypasses the limiter on purpose: refresh calls are
	// infrequent and failure sensitive. Not a bug
	refreshPath = "/api/auth/refresh"
)

// accessVerifier is the stateless token check used only to derive the
// rate limit key. Binding the identity to the request stays with the
// auth middleware
type accessVerifier interface {
	Verify(access string) (auth.AccessTokenClaims, error)
}

// RateLimitMiddleware admits or rejects the request before anything else
// looks at it. Key precedence:
//   - auth endpoints: AUTH_<ip>, strict tier, no credential parsing first
//     so a flood of malformed tokens can't dodge the limit
//   - valid bearer credential: USER_<email>, standard tier
//   - everything else: API_<ip>, standard tier
func RateLimitMiddleware(limiter *ratelimit.Limiter, codec accessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == refreshPath {
				next.ServeHTTP(w, r)
				return
			}

			key, tier := deriveKey(r, codec)

			decision := limiter.Admit(key, tier)
			if !decision.Allowed {
				render.RateLimited(w, int(math.Ceil(decision.RetryAfter.Seconds())))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deriveKey(r *http.Request, codec accessVerifier) (string, ratelimit.Tier) {
	if strings.HasPrefix(r.URL.Path, authPathPrefix) {
		return "AUTH_" + ClientIP(r), ratelimit.TierAuth
	}

	if raw, err := auth.BearerToken(r); err == nil {
		if claims, err := codec.Verify(raw); err == nil {
			return "USER_" + claims.Email, ratelimit.TierStandard
		}
		// Invalid bearer falls through to the IP key, the auth
		// middleware rejects it later for protected routes
	}

	return "API_" + ClientIP(r), ratelimit.TierStandard
}

// ClientIP extracts the source address, preferring proxy headers
func ClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
