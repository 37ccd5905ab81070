package keys

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromRequestPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		header map[string]string
		body   string
		bodyCT string
		want   string
	}{
		{
			name:  "query parameter",
			query: "apikey=sk_query",
			want:  "sk_query",
		},
		{
			name:   "x-api-key header",
			header: map[string]string{"x-api-key": "sk_header"},
			want:   "sk_header",
		},
		{
			name:   "authorization bearer",
			header: map[string]string{"Authorization": "Bearer sk_bearer"},
			want:   "sk_bearer",
		},
		{
			name:   "authorization raw",
			header: map[string]string{"Authorization": "sk_raw"},
			want:   "sk_raw",
		},
		{
			name:   "json body",
			body:   `{"apikey":"sk_body"}`,
			bodyCT: "application/json",
			want:   "sk_body",
		},
		{
			name:   "query beats header",
			query:  "apikey=sk_query",
			header: map[string]string{"x-api-key": "sk_header"},
			want:   "sk_query",
		},
		{
			name:   "header beats authorization",
			header: map[string]string{"x-api-key": "sk_header", "Authorization": "Bearer sk_bearer"},
			want:   "sk_header",
		},
		{
			name:   "authorization beats body",
			header: map[string]string{"Authorization": "sk_raw"},
			body:   `{"apikey":"sk_body"}`,
			bodyCT: "application/json",
			want:   "sk_raw",
		},
		{
			name:   "non-json body ignored",
			body:   `apikey=sk_form`,
			bodyCT: "application/x-www-form-urlencoded",
			want:   "",
		},
		{
			name: "no key anywhere",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/api/test"
			if tt.query != "" {
				url += "?" + tt.query
			}
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			r := httptest.NewRequest("POST", url, body)
			if tt.bodyCT != "" {
				r.Header.Set("Content-Type", tt.bodyCT)
			}
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}

			if got := FromRequest(r); got != tt.want {
				t.Errorf("FromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromRequestRestoresBody(t *testing.T) {
	payload := `{"apikey":"sk_body","data":"payload"}`
	r := httptest.NewRequest("POST", "/api/test", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")

	if got := FromRequest(r); got != "sk_body" {
		t.Fatalf("FromRequest() = %q", got)
	}

	rest, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("reading restored body: %v", err)
	}
	if string(rest) != payload {
		t.Errorf("body not restored: %q", rest)
	}
}

func TestFromRequestJSONContentTypeWithCharset(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/test", strings.NewReader(`{"apikey":"sk_body"}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	if got := FromRequest(r); got != "sk_body" {
		t.Errorf("FromRequest() = %q, want sk_body", got)
	}
}
