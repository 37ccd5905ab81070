// Package cache provides in-process caching of upstream extraction
// results. The default implementation is Memory.
package cache

import "github.com/brisa-labs/media-gateway/upstreams"

// Cache defines the interface for extraction result caching.
type Cache interface {
	Get(key string) (*upstreams.Result, bool)
	Set(key string, res *upstreams.Result)
	Delete(key string)
	Len() int
	Clear()
}
