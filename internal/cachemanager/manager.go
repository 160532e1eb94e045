// Package cachemanager provides a typed in-memory cache and a read-through
// wrapper used to memoize expensive loads such as historical snapshots.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key/value cache with per-entry TTLs.
type CacheManager[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
	Stats() Stats
}

// Stats counts lookups served by a cache.
type Stats struct {
	Hits   int64
	Misses int64
	Items  int
}
