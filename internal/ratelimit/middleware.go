package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/brisa-labs/media-gateway/internal/metrics"
)

// ByIP returns middleware that rate limits by client IP using the given
// Store. It relies on chi's RealIP middleware having normalized RemoteAddr.
func ByIP(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !store.Allow(ip) {
				metrics.RateLimitRejections.Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   "Muitas requisições. Tente novamente em instantes.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
