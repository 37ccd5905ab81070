package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every failure the admission gate and admin surface can
// produce. The HTTP rendering in WriteError is keyed exhaustively on Kind so
// that a new category cannot silently fall through to an unmapped 500.
type Kind int

// Failure categories.
const (
	// KindMissingKey: no credential present anywhere in the request.
	KindMissingKey Kind = iota
	// KindInvalidKey: key absent from the store, expired, or inactive.
	// The three cases are deliberately indistinguishable to the caller.
	KindInvalidKey
	// KindQuotaExceeded: valid credential with used >= limit.
	KindQuotaExceeded
	// KindAdminRequired: admin route called without any credential.
	KindAdminRequired
	// KindAdminDenied: credential present but role is not admin.
	KindAdminDenied
	// KindValidation: malformed admin input.
	KindValidation
	// KindDuplicateKey: create attempted with an already-issued key.
	KindDuplicateKey
	// KindNotFound: admin operation referenced a nonexistent key.
	KindNotFound
	// KindCorruptStore: the persisted snapshot could not be decoded.
	KindCorruptStore
	// KindStoreIO: the backing store failed to read or write.
	KindStoreIO
)

// Error is the tagged error type carried across the keys package. Quota
// failures additionally carry the limit and post-check counter so callers can
// self-diagnose.
type Error struct {
	Kind    Kind
	Message string
	Limit   int64
	Used    int64
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// IsKind reports whether err is a keys.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ke *Error
	return errors.As(err, &ke) && ke.Kind == kind
}

func storeErr(op string, cause error) *Error {
	return &Error{Kind: KindStoreIO, Message: op, cause: cause}
}

// response maps a Kind to its HTTP status and JSON body. The body shapes and
// messages are part of the external contract.
func (e *Error) response() (int, map[string]interface{}) {
	switch e.Kind {
	case KindMissingKey:
		return http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "API Key não fornecida",
			"message": "Adicione 'apikey' nos query parameters ou no header 'x-api-key'",
		}
	case KindInvalidKey:
		return http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "API Key inválida ou expirada",
		}
	case KindQuotaExceeded:
		return http.StatusTooManyRequests, map[string]interface{}{
			"success": false,
			"error":   "Limite de uso excedido",
			"limit":   e.Limit,
			"used":    e.Used,
			"reset":   "Contate o administrador para reset",
		}
	case KindAdminRequired:
		return http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "API Key administrativa necessária",
		}
	case KindAdminDenied:
		return http.StatusForbidden, map[string]interface{}{
			"success": false,
			"error":   "Acesso negado. API Key administrativa requerida.",
		}
	case KindValidation:
		return http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   e.Message,
		}
	case KindDuplicateKey:
		return http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "API Key já existe",
		}
	case KindNotFound:
		return http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Key não encontrada",
		}
	case KindCorruptStore, KindStoreIO:
		return http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Erro interno na verificação da API Key",
		}
	default:
		return http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Erro interno na verificação da API Key",
		}
	}
}

// WriteError renders err as the structured JSON failure body. Errors that are
// not keys.Error values are treated as store failures: internal detail never
// crosses the boundary.
func WriteError(w http.ResponseWriter, err error) {
	var ke *Error
	if !errors.As(err, &ke) {
		ke = &Error{Kind: KindStoreIO}
	}
	status, body := ke.response()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
