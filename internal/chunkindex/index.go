package chunkindex

// Index maps plaintext byte offsets to Chunks and back. Implementations
// must be safe for concurrent use by multiple readers once constructed;
// construction itself is not required to be concurrency-safe.
type Index interface {
	// FindChunkForOriginalOffset returns the unique chunk whose plaintext
	// range [OriginalFrom, OriginalFrom+OriginalSize) contains o.
	FindChunkForOriginalOffset(o uint64) (Chunk, error)

	// Get returns the chunk at the given ordinal.
	Get(ordinal uint32) (Chunk, error)

	// Chunks returns every chunk in ordinal order.
	Chunks() []Chunk

	// Count returns the number of chunks.
	Count() int

	// TotalOriginalSize returns the plaintext size of the whole segment.
	TotalOriginalSize() uint64

	// TotalTransformedSize returns the uploaded object size.
	TotalTransformedSize() uint64
}
