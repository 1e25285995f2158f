package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
	"climatecentre/pkg/platform/middleware/metadata"
)

// Middleware rejects over-limit requests with 429, keyed by client IP.
// Requests that get through carry X-RateLimit headers so well-behaved
// clients can pace themselves.
func Middleware(limiter *SlidingWindow, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := metadata.GetClientIP(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			result := limiter.Allow(key)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"client_ip", key,
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
