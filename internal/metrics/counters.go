// Package metrics holds the in-process counters required by the chunk
// cache and manifest provider contracts (spec §4.F/§4.H observability),
// plus an optional Prometheus-backed recorder for hosts that want to
// scrape them. Shipping counters to a remote system is out of scope
// (spec §1); only the in-process snapshot is part of the core.
package metrics

import "sync/atomic"

// EvictionCause identifies why a cache entry was evicted.
type EvictionCause string

const (
	EvictionExpired EvictionCause = "EXPIRED"
	EvictionSize    EvictionCause = "SIZE"
	EvictionManual  EvictionCause = "MANUAL"
)

// CacheCounters tracks hits/misses/loads/evictions for one cache
// instance (the chunk cache or the manifest provider), plus the
// transform pipeline's crypto-op and compression-byte counts when a
// segment store wires its stages to a shared instance (spec §4.N).
type CacheCounters struct {
	hits          int64
	misses        int64
	loadSuccesses int64
	loadFailures  int64
	evictExpired  int64
	evictSize     int64
	evictManual   int64

	cryptoOps        int64
	compressBytesIn  int64
	compressBytesOut int64
}

func (c *CacheCounters) RecordHit()         { atomic.AddInt64(&c.hits, 1) }
func (c *CacheCounters) RecordMiss()        { atomic.AddInt64(&c.misses, 1) }
func (c *CacheCounters) RecordLoadSuccess() { atomic.AddInt64(&c.loadSuccesses, 1) }
func (c *CacheCounters) RecordLoadFailure() { atomic.AddInt64(&c.loadFailures, 1) }

// RecordEviction increments the counter for the given cause.
func (c *CacheCounters) RecordEviction(cause EvictionCause) {
	switch cause {
	case EvictionExpired:
		atomic.AddInt64(&c.evictExpired, 1)
	case EvictionSize:
		atomic.AddInt64(&c.evictSize, 1)
	case EvictionManual:
		atomic.AddInt64(&c.evictManual, 1)
	}
}

// RecordCryptoOp counts one block-level encrypt or decrypt operation.
func (c *CacheCounters) RecordCryptoOp() { atomic.AddInt64(&c.cryptoOps, 1) }

// RecordCompressionBytes counts one block-level compress or decompress
// operation's input and output sizes.
func (c *CacheCounters) RecordCompressionBytes(in, out int) {
	atomic.AddInt64(&c.compressBytesIn, int64(in))
	atomic.AddInt64(&c.compressBytesOut, int64(out))
}

// CacheSnapshot is a point-in-time copy of CacheCounters.
type CacheSnapshot struct {
	Hits             int64
	Misses           int64
	LoadSuccesses    int64
	LoadFailures     int64
	EvictionsExpired int64
	EvictionsSize    int64
	EvictionsManual  int64

	CryptoOps        int64
	CompressBytesIn  int64
	CompressBytesOut int64
}

// Snapshot returns the current counter values.
func (c *CacheCounters) Snapshot() CacheSnapshot {
	return CacheSnapshot{
		Hits:             atomic.LoadInt64(&c.hits),
		Misses:           atomic.LoadInt64(&c.misses),
		LoadSuccesses:    atomic.LoadInt64(&c.loadSuccesses),
		LoadFailures:     atomic.LoadInt64(&c.loadFailures),
		EvictionsExpired: atomic.LoadInt64(&c.evictExpired),
		EvictionsSize:    atomic.LoadInt64(&c.evictSize),
		EvictionsManual:  atomic.LoadInt64(&c.evictManual),
		CryptoOps:        atomic.LoadInt64(&c.cryptoOps),
		CompressBytesIn:  atomic.LoadInt64(&c.compressBytesIn),
		CompressBytesOut: atomic.LoadInt64(&c.compressBytesOut),
	}
}
