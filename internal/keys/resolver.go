package keys

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

// maxBodyPeek caps how much of a request body the resolver will read when
// looking for a body-supplied key.
const maxBodyPeek = 1 << 20 // 1 MiB

// extractor pulls a candidate key from one request source, returning "" when
// the source has none.
type extractor func(*http.Request) string

// extractors are tried in precedence order; the first non-empty value wins.
var extractors = []extractor{
	fromQuery,
	fromHeader,
	fromAuthorization,
	fromBody,
}

// FromRequest extracts the candidate API key from r, checking in order the
// apikey query parameter, the x-api-key header, the Authorization header
// (Bearer-prefixed or raw), and finally an apikey field in a JSON body.
// It returns "" when no source carries a key. The body, if read, is restored
// so downstream handlers see it unchanged.
func FromRequest(r *http.Request) string {
	for _, extract := range extractors {
		if key := extract(r); key != "" {
			return key
		}
	}
	return ""
}

func fromQuery(r *http.Request) string {
	return r.URL.Query().Get("apikey")
}

func fromHeader(r *http.Request) string {
	return r.Header.Get("x-api-key")
}

func fromAuthorization(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return auth
}

func fromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/json" {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	_ = r.Body.Close()
	// Restore the body so handlers can decode it again.
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}

	var partial struct {
		APIKey string `json:"apikey"`
	}
	if err := json.Unmarshal(body, &partial); err != nil {
		return ""
	}
	return partial.APIKey
}
