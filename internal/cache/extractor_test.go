package cache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/brisa-labs/media-gateway/upstreams"
)

type countingExtractor struct {
	calls int
	err   error
}

func (c *countingExtractor) Name() string { return "counting" }

func (c *countingExtractor) Extract(ctx context.Context, params url.Values) (*upstreams.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &upstreams.Result{Success: true, Source: "live"}, nil
}

func TestWrapNilCacheReturnsInner(t *testing.T) {
	inner := &countingExtractor{}
	if got := Wrap(inner, nil); got != upstreams.Extractor(inner) {
		t.Fatal("expected inner extractor back for nil cache")
	}
}

func TestExtractorCachesSuccess(t *testing.T) {
	inner := &countingExtractor{}
	wrapped := Wrap(inner, NewMemory(10, time.Minute))
	params := url.Values{"url": {"https://example.com/x"}}

	first, err := wrapped.Extract(context.Background(), params)
	if err != nil {
		t.Fatalf("first extract: %v", err)
	}
	second, err := wrapped.Extract(context.Background(), params)
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected one inner call, got %d", inner.calls)
	}
	if first != second {
		t.Error("expected the cached result on the second call")
	}
}

func TestExtractorDistinguishesParams(t *testing.T) {
	inner := &countingExtractor{}
	wrapped := Wrap(inner, NewMemory(10, time.Minute))

	_, _ = wrapped.Extract(context.Background(), url.Values{"url": {"a"}})
	_, _ = wrapped.Extract(context.Background(), url.Values{"url": {"b"}})

	if inner.calls != 2 {
		t.Errorf("expected two inner calls for distinct params, got %d", inner.calls)
	}
}

func TestExtractorDoesNotCacheErrors(t *testing.T) {
	inner := &countingExtractor{err: errors.New("boom")}
	wrapped := Wrap(inner, NewMemory(10, time.Minute))
	params := url.Values{"url": {"a"}}

	for i := 0; i < 2; i++ {
		if _, err := wrapped.Extract(context.Background(), params); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("errors must pass through uncached, calls=%d", inner.calls)
	}
}
