package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/storage"
)

const rateLimitWindow = time.Minute

// RateLimit caps requests per client address per minute using counters in
// the shared cache.
func RateLimit(cache storage.Cache, perMinute int, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 || cache == nil {
			return next
		}
		if logger == nil {
			logger = slog.Default()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + ClientIP(r)
			n, err := cache.Incr(r.Context(), key, rateLimitWindow)
			if err != nil {
				// Fail open.
				logger.Warn("rate limit counter unavailable", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(perMinute) {
				if m != nil {
					m.RateLimited.WithLabelValues("api").Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
