package circuitbreaker

import (
	"context"
	"errors"
	"net/url"

	"github.com/brisa-labs/media-gateway/upstreams"
)

// Extractor wraps an upstreams.Extractor with a circuit breaker.
// Caller mistakes (upstreams.ErrBadInput) do not count as failures.
type Extractor struct {
	inner   upstreams.Extractor
	breaker *CircuitBreaker
}

// Wrap returns e guarded by cb. A nil breaker returns e unchanged.
func Wrap(e upstreams.Extractor, cb *CircuitBreaker) upstreams.Extractor {
	if cb == nil {
		return e
	}
	return &Extractor{inner: e, breaker: cb}
}

func (e *Extractor) Name() string { return e.inner.Name() }

func (e *Extractor) Extract(ctx context.Context, params url.Values) (*upstreams.Result, error) {
	if !e.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	res, err := e.inner.Extract(ctx, params)
	if err != nil {
		if !errors.Is(err, upstreams.ErrBadInput) {
			e.breaker.RecordFailure()
		}
		return nil, err
	}
	e.breaker.RecordSuccess()
	return res, nil
}
