package cache

import (
	"context"
	"net/url"

	"github.com/brisa-labs/media-gateway/internal/metrics"
	"github.com/brisa-labs/media-gateway/upstreams"
)

// Extractor wraps an upstreams.Extractor with result caching. Only
// successful extractions are cached; errors always pass through.
type Extractor struct {
	inner upstreams.Extractor
	cache Cache
}

// Wrap returns e decorated with c. A nil cache returns e unchanged.
func Wrap(e upstreams.Extractor, c Cache) upstreams.Extractor {
	if c == nil {
		return e
	}
	return &Extractor{inner: e, cache: c}
}

func (e *Extractor) Name() string { return e.inner.Name() }

func (e *Extractor) Extract(ctx context.Context, params url.Values) (*upstreams.Result, error) {
	key := e.inner.Name() + "?" + params.Encode()
	if res, ok := e.cache.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return res, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	res, err := e.inner.Extract(ctx, params)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, res)
	return res, nil
}
