package middleware

import (
	"math"
	"net/http"
	"strconv"

	"ideas-feedback/internal/metrics"
	"ideas-feedback/internal/ratelimit"
)

// RateLimit admits each request through limiter, keyed by client address.
// Denied requests get 429 with Retry-After in whole seconds, rounded up, and
// never reach next.
func RateLimit(limiter *ratelimit.Limiter, trustProxy bool, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Admit(ClientIP(r, trustProxy))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if m != nil {
				m.RateLimited.Inc()
			}
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":       "too many requests, please try again later",
				"retry_after": secs,
			})
		})
	}
}
