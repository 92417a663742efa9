// Package transform implements the lazy, pull-based chunk transform
// stream used by both the write path (chunk → compress → encrypt) and
// the read path (decrypt → decompress) of the tiered storage core.
package transform

import "errors"

// ErrCompressionCorrupt is returned when a compressed block cannot be
// decoded (corrupt or truncated data).
var ErrCompressionCorrupt = errors.New("transform: compressed block corrupt")

// Stage is one lazy, finite, non-restartable link in the transform
// chain. Each stage wraps another stage (or a raw source) and turns one
// input block into exactly one output block, preserving block identity
// across the chain (spec §4.C).
type Stage interface {
	// HasNext reports whether another block is available without
	// consuming it.
	HasNext() bool

	// Next returns the next block. It must only be called when HasNext
	// returns true.
	Next() ([]byte, error)

	// LastOriginalSize returns the plaintext size of the block most
	// recently returned by Next, as established by the base chunker (or
	// base dechunker) at the bottom of the chain.
	LastOriginalSize() uint32
}
