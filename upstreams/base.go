package upstreams

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// userAgent is sent on every outbound call; several of the fronted sites
// refuse requests without a browser-like UA.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// maxResponseBody caps how much of an upstream response is read.
const maxResponseBody = 8 << 20 // 8 MiB

// Base provides the fields and outbound-call helpers shared by REST-based
// integrations. Embed it to avoid repeating name, endpoint, and client
// handling across extractors.
type Base struct {
	name     string
	endpoint string
	client   *http.Client
}

func newBase(name, endpoint string, timeout time.Duration) Base {
	return Base{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the integration name.
func (b *Base) Name() string { return b.name }

// getJSON performs a GET against rawURL and decodes the JSON body into out.
func (b *Base) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	body, err := b.get(ctx, rawURL, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = body.Close()
	}()
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", b.name, err)
	}
	return nil
}

// postFormJSON performs a form POST against rawURL and decodes the JSON body.
func (b *Base) postFormJSON(ctx context.Context, rawURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", b.name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: upstream call: %w", b.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: upstream returned status %d", b.name, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", b.name, err)
	}
	return nil
}

// get performs a GET and returns the body for statuses in the 2xx range.
func (b *Base) get(ctx context.Context, rawURL string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", b.name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: upstream call: %w", b.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: upstream returned status %d", b.name, resp.StatusCode)
	}
	return resp.Body, nil
}
