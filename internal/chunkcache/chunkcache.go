// Package chunkcache is the single-flight, byte-budget-bounded cache of
// materialized chunk payloads sitting in front of the (slow, remote) chunk
// fetch path (spec §4.H). Unlike the manifest cache, its bound is total
// payload bytes rather than entry count, so it keeps its own LRU list
// instead of golang-lru's count-bounded one.
package chunkcache

import (
	"bytes"
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/kenneth/tiered-segment-store/internal/metrics"
)

// Supplier materializes the payload for one chunk. It is called at most
// once per key while the entry is absent, however many callers are
// waiting on it concurrently.
type Supplier func(ctx context.Context) (io.ReadCloser, error)

type entry struct {
	key       Key
	size      int64
	data      []byte // in-memory payload, nil when disk-backed
	diskPath  string // non-empty when disk-backed
	expiresAt time.Time
	elem      *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (e *entry) reader() (io.ReadCloser, error) {
	if e.diskPath != "" {
		f, err := os.Open(e.diskPath)
		if err != nil {
			return nil, fmt.Errorf("chunkcache: reopen %s: %w", e.diskPath, err)
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

// Cache is an in-process (optionally disk-backed) cache of chunk payloads.
type Cache struct {
	maxBytes int64 // <= 0 means unbounded
	ttl      time.Duration
	diskRoot string

	mu         sync.Mutex
	items      map[Key]*entry
	lru        *list.List // front = most recently used
	totalBytes int64

	flight   singleflight.Group
	counters metrics.CacheCounters
	log      *logrus.Entry

	closeOnce sync.Once
	stopCh    chan struct{}
	janitorWG sync.WaitGroup
}

// Options configures a Cache (spec §6 chunk.cache.* keys).
type Options struct {
	MaxBytes int64         // chunk.cache.size, <= 0 = unbounded
	TTL      time.Duration // chunk.cache.retention.ms, <= 0 = no expiry
	DiskRoot string        // chunk.cache.path, "" = in-memory only
	Logger   *logrus.Entry
}

// New builds a Cache and starts its TTL sweep goroutine when a positive
// TTL is configured.
func New(opts Options) *Cache {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Cache{
		maxBytes: opts.MaxBytes,
		ttl:      opts.TTL,
		diskRoot: opts.DiskRoot,
		items:    make(map[Key]*entry),
		lru:      list.New(),
		log:      log,
		stopCh:   make(chan struct{}),
	}
	if c.ttl > 0 {
		c.janitorWG.Add(1)
		go c.sweepLoop()
	}
	return c
}

// Close stops the background TTL sweeper and best-effort deletes every
// disk-backed file still resident.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
	})
	c.janitorWG.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.items {
		c.deleteDiskFile(e)
	}
	c.items = make(map[Key]*entry)
	c.lru = list.New()
	c.totalBytes = 0
	return nil
}

// Fetch returns a reader over key's cached payload, calling supply to
// materialize it on a miss. Concurrent callers for the same key during a
// miss share one supply call (spec §4.H invariant 1); every call, hit or
// miss, returns a stream positioned at the start (invariant 2).
func (c *Cache) Fetch(ctx context.Context, key Key, supply Supplier) (io.ReadCloser, error) {
	if e, ok := c.lookup(key); ok {
		c.counters.RecordHit()
		return e.reader()
	}
	c.counters.RecordMiss()

	v, err, _ := c.flight.Do(key.String(), func() (interface{}, error) {
		// Re-check: another flight may have populated the entry
		// between the lookup above and acquiring the flight slot.
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		rc, err := supply(ctx)
		if err != nil {
			c.counters.RecordLoadFailure()
			return nil, fmt.Errorf("chunkcache: materialize %s: %w", key, err)
		}
		defer rc.Close()

		e, err := c.store(key, rc)
		if err != nil {
			c.counters.RecordLoadFailure()
			return nil, err
		}
		c.counters.RecordLoadSuccess()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry).reader()
}

// Prepare schedules background materialization for ordinals without
// blocking the caller (spec §4.H invariant 5). Completion is observable
// through Fetch using the same key and supply function.
func (c *Cache) Prepare(ctx context.Context, keys []Key, supply func(Key) Supplier) {
	for _, k := range keys {
		k := k
		if _, ok := c.lookup(k); ok {
			continue
		}
		go func() {
			rc, err := c.Fetch(ctx, k, supply(k))
			if err != nil {
				c.log.WithError(err).WithField("chunk_key", k.String()).Warn("prefetch failed")
				return
			}
			rc.Close()
		}()
	}
}

// Invalidate removes key, if present, and best-effort deletes its disk
// file, recording a manual eviction.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok {
		c.removeLocked(e)
	}
	c.mu.Unlock()

	if ok {
		c.deleteDiskFile(e)
		c.counters.RecordEviction(metrics.EvictionManual)
	}
}

// Snapshot returns the cache's current counters.
func (c *Cache) Snapshot() metrics.CacheSnapshot {
	return c.counters.Snapshot()
}

func (c *Cache) lookup(key Key) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		c.removeLocked(e)
		c.mu.Unlock()
		c.deleteDiskFile(e)
		c.counters.RecordEviction(metrics.EvictionExpired)
		c.mu.Lock()
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	return e, true
}

func (c *Cache) store(key Key, r io.Reader) (*entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("chunkcache: read payload for %s: %w", key, err)
	}

	e := &entry{key: key, size: int64(len(data))}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}

	if c.diskRoot != "" {
		path, err := c.writeDiskFile(key, data)
		if err != nil {
			// Disk write failure falls back to an in-memory entry; the
			// cache still functions, just without disk backing for
			// this one key.
			c.log.WithError(err).WithField("chunk_key", key.String()).Warn("disk-backed cache write failed, falling back to memory")
			e.data = data
		} else {
			e.diskPath = path
		}
	} else {
		e.data = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[key]; ok {
		// Lost the race to another flight that stored first; keep the
		// existing entry and discard this one's disk file, if any.
		c.mu.Unlock()
		c.deleteDiskFile(e)
		c.mu.Lock()
		return existing, nil
	}

	e.elem = c.lru.PushFront(e)
	c.items[key] = e
	c.totalBytes += e.size
	c.evictUntilUnderBudgetLocked()
	return e, nil
}

// evictUntilUnderBudgetLocked discards the least-recently-used entries
// until total resident bytes are under the configured budget. Caller
// must hold c.mu.
func (c *Cache) evictUntilUnderBudgetLocked() {
	if c.maxBytes <= 0 {
		return
	}
	var evicted []*entry
	for c.totalBytes > c.maxBytes {
		back := c.lru.Back()
		if back == nil {
			break
		}
		e := back.Value.(*entry)
		c.removeLocked(e)
		evicted = append(evicted, e)
	}
	if len(evicted) == 0 {
		return
	}
	c.mu.Unlock()
	for _, e := range evicted {
		c.deleteDiskFile(e)
		c.counters.RecordEviction(metrics.EvictionSize)
	}
	c.mu.Lock()
}

// removeLocked detaches e from the index and LRU list. Caller must hold
// c.mu. It does not delete e's disk file; callers do that outside the lock.
func (c *Cache) removeLocked(e *entry) {
	delete(c.items, e.key)
	c.lru.Remove(e.elem)
	c.totalBytes -= e.size
}

func (c *Cache) deleteDiskFile(e *entry) {
	if e.diskPath == "" {
		return
	}
	if err := os.Remove(e.diskPath); err != nil && !os.IsNotExist(err) {
		c.log.WithError(err).WithField("path", e.diskPath).Warn("failed to delete evicted chunk cache file")
	}
}

func (c *Cache) writeDiskFile(key Key, data []byte) (string, error) {
	if err := os.MkdirAll(c.diskRoot, 0o755); err != nil {
		return "", fmt.Errorf("chunkcache: create cache dir: %w", err)
	}
	path := filepath.Join(c.diskRoot, diskFileName(key))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("chunkcache: write %s: %w", path, err)
	}
	return path, nil
}

// diskFileName derives a deterministic filename from key so that repeated
// runs address the same chunk at the same path (spec §4.H: "each file
// named by a deterministic hash of the ChunkKey").
func diskFileName(key Key) string {
	sum := sha256.Sum256([]byte(key.String()))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) sweepLoop() {
	defer c.janitorWG.Done()
	interval := c.ttl / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *Cache) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	var expired []*entry
	for _, e := range c.items {
		if e.expired(now) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.removeLocked(e)
	}
	c.mu.Unlock()

	for _, e := range expired {
		c.deleteDiskFile(e)
		c.counters.RecordEviction(metrics.EvictionExpired)
	}
}
