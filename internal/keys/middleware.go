package keys

import (
	"context"
	"net/http"

	"github.com/brisa-labs/media-gateway/internal/logging"
	"github.com/brisa-labs/media-gateway/internal/metrics"
)

type contextKey string

const (
	grantContextKey contextKey = "api_key_grant"
	adminContextKey contextKey = "admin_credential"
)

// GrantFromContext retrieves the admission grant attached by RequireKey.
func GrantFromContext(ctx context.Context) (*Grant, bool) {
	g, ok := ctx.Value(grantContextKey).(*Grant)
	return g, ok
}

// AdminFromContext retrieves the admin credential attached by RequireAdmin.
func AdminFromContext(ctx context.Context) (*Credential, bool) {
	c, ok := ctx.Value(adminContextKey).(*Credential)
	return c, ok
}

// RequireKey returns a chi-compatible middleware that resolves a candidate
// key from the request, runs it through the admission gate, and attaches the
// resulting Grant to the request context. Rejections are rendered as the
// structured JSON failure bodies.
func RequireKey(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant, err := m.Admit(r.Context(), FromRequest(r))
			if err != nil {
				metrics.AdmissionsTotal.WithLabelValues(admissionOutcome(err)).Inc()
				WriteError(w, err)
				return
			}
			metrics.AdmissionsTotal.WithLabelValues(metrics.OutcomeAdmitted).Inc()

			logging.FromContext(r.Context()).Info("api key admitted",
				"key", maskKey(grant.Key),
				"owner", grant.Owner,
				"route", r.URL.Path,
				"remaining", grant.Remaining,
			)

			ctx := context.WithValue(r.Context(), grantContextKey, grant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that admits only credentials carrying the
// admin role. It applies no quota logic and never increments usage.
func RequireAdmin(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, err := m.Authorize(r.Context(), FromRequest(r))
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), adminContextKey, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func admissionOutcome(err error) string {
	switch {
	case IsKind(err, KindMissingKey):
		return metrics.OutcomeMissingKey
	case IsKind(err, KindInvalidKey):
		return metrics.OutcomeInvalidKey
	case IsKind(err, KindQuotaExceeded):
		return metrics.OutcomeQuotaExceeded
	default:
		return metrics.OutcomeStoreError
	}
}

// maskKey shortens a key for log output.
func maskKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "..."
	}
	return key
}
