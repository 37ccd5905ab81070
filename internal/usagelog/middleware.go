package usagelog

import (
	"context"
	"net/http"
	"time"

	"github.com/brisa-labs/media-gateway/internal/logging"
	"github.com/brisa-labs/media-gateway/internal/metrics"
)

// Identity names the credential behind a request for audit purposes.
type Identity struct {
	KeyPrefix string
	Owner     string
}

// IdentityFunc extracts the audit identity from a request context, returning
// false when the request carries no admitted credential.
type IdentityFunc func(ctx context.Context) (Identity, bool)

// statusRecorder captures the response status written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records one usage entry per request whose context yields an
// identity. It must be mounted inside the admission middleware so the grant
// is present. Write failures are logged, never surfaced to the caller.
func Middleware(w Writer, identity IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			metrics.RequestDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())

			id, ok := identity(r.Context())
			if !ok {
				return
			}

			entry := Entry{
				RequestID:  logging.RequestIDFromContext(r.Context()),
				KeyPrefix:  id.KeyPrefix,
				Owner:      id.Owner,
				Method:     r.Method,
				Route:      r.URL.Path,
				Status:     rec.status,
				DurationMS: elapsed.Milliseconds(),
			}
			if err := w.Write(r.Context(), entry); err != nil {
				logging.FromContext(r.Context()).Warn("usage log write failed", "error", err)
			}
		})
	}
}
