// Package upstreams defines the Extractor interface and shared data types
// used across all content-extraction integrations.
//
// Each integration is thin, swappable glue over a third-party HTTP endpoint:
// it validates its inputs, makes one outbound call with its own timeout, and
// maps the response. Integrations never touch the credential store; the
// admission gate has already run by the time an Extractor is invoked.
package upstreams

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrBadInput marks extraction failures caused by the caller's parameters
// (missing or malformed). Handlers render these as 400 instead of 502.
var ErrBadInput = errors.New("bad input")

// badInput builds an ErrBadInput with a caller-facing message.
func badInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadInput, msg)
}

// Result is the uniform envelope returned by every extraction.
type Result struct {
	Success bool        `json:"success"`
	Source  string      `json:"source,omitempty"`
	Data    interface{} `json:"data"`
}

// Extractor is the interface every integration implements.
type Extractor interface {
	// Name returns the route segment the integration is mounted under.
	Name() string
	// Extract performs one extraction using the request's query parameters.
	Extract(ctx context.Context, params url.Values) (*Result, error)
}
