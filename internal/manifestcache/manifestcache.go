// Package manifestcache provides a bounded, time-expiring cache of parsed
// segment manifests in front of the (slow, remote) manifest fetch path
// (spec §4.F). Concurrent misses for the same key collapse onto a single
// fetch+parse via singleflight; failures are never cached.
package manifestcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/kenneth/tiered-segment-store/internal/manifest"
	"github.com/kenneth/tiered-segment-store/internal/metrics"
)

// Fetcher retrieves and parses the manifest for a segment object key. It is
// the only thing this package knows about object storage; the concrete
// implementation lives in segmentstore, which closes over an ObjectStore.
type Fetcher func(ctx context.Context, key string) (*manifest.Manifest, error)

// Cache is a singleflight-guarded, size+TTL bounded manifest cache keyed by
// segment manifest object key.
type Cache struct {
	fetch  Fetcher
	sized  bool
	mu     sync.Mutex
	manual map[string]bool // keys currently being removed by Invalidate

	lru      *lru.LRU[string, *manifest.Manifest]
	flight   singleflight.Group
	counters metrics.CacheCounters
}

// New builds a Cache. size <= 0 means unbounded entry count (spec
// segment.manifest.cache.size default: unbounded). retention <= 0 means
// entries never expire on their own (segment.manifest.cache.retention.ms
// default: no expiry).
func New(fetch Fetcher, size int, retention time.Duration) *Cache {
	c := &Cache{fetch: fetch, sized: size > 0, manual: make(map[string]bool)}
	evictSize := size
	if evictSize <= 0 {
		// expirable.LRU treats size<=0 as unbounded.
		evictSize = 0
	}
	c.lru = lru.NewLRU[string, *manifest.Manifest](evictSize, func(key string, _ *manifest.Manifest) {
		// onEvict fires for capacity evictions, TTL expiry, and
		// Remove() alike. Invalidate marks its own key first so this
		// callback can tell the cause apart instead of double
		// counting it as both MANUAL and EXPIRED/SIZE.
		c.mu.Lock()
		manual := c.manual[key]
		c.mu.Unlock()
		if manual {
			return
		}
		// The library folds capacity and TTL eviction into one
		// callback with no reason code. When both bounds are
		// configured we attribute the eviction to the size bound,
		// since Add()-triggered capacity eviction is what usually
		// fires first in practice; this is an approximation, not an
		// exact cause (see DESIGN.md).
		if c.sized {
			c.counters.RecordEviction(metrics.EvictionSize)
		} else {
			c.counters.RecordEviction(metrics.EvictionExpired)
		}
	}, retention)
	return c
}

// Get returns the manifest for key, fetching and parsing it on a cache
// miss. Concurrent callers requesting the same key during a miss share one
// underlying Fetcher call (spec §4.F: "exactly one fetch+parse in flight").
func (c *Cache) Get(ctx context.Context, key string) (*manifest.Manifest, error) {
	if m, ok := c.lru.Get(key); ok {
		c.counters.RecordHit()
		return m, nil
	}
	c.counters.RecordMiss()

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		m, err := c.fetch(ctx, key)
		if err != nil {
			c.counters.RecordLoadFailure()
			return nil, fmt.Errorf("manifestcache: fetch %s: %w", key, err)
		}
		c.counters.RecordLoadSuccess()
		c.lru.Add(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*manifest.Manifest), nil
}

// Invalidate removes key from the cache, if present, recording a manual
// eviction (spec §4.F observability: eviction cause tracking).
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	c.manual[key] = true
	c.mu.Unlock()

	removed := c.lru.Remove(key)

	c.mu.Lock()
	delete(c.manual, key)
	c.mu.Unlock()

	if removed {
		c.counters.RecordEviction(metrics.EvictionManual)
	}
}

// Snapshot returns the cache's current counters.
func (c *Cache) Snapshot() metrics.CacheSnapshot {
	return c.counters.Snapshot()
}

// Len reports the number of manifests currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
