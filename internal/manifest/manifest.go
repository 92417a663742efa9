// Package manifest defines the segment manifest, the serializable
// descriptor of how a segment was chunked and transformed (spec §3/§4.E).
package manifest

import "github.com/kenneth/tiered-segment-store/internal/chunkindex"

// EncryptionMetadata carries what's needed to unwrap a segment's data
// key and bind its AAD (spec §3).
type EncryptionMetadata struct {
	WrappedDataKey []byte
	AAD            []byte
}

// Manifest is the immutable descriptor of a segment's chunking and
// transform pipeline. Once constructed it is never mutated.
type Manifest struct {
	ChunkIndex  chunkindex.Index
	Compressed  bool
	Encryption  *EncryptionMetadata
	IndexSizes  map[string]int64 // index type name -> byte size, nil if unknown
}

// New constructs a Manifest. Passing a nil ChunkIndex is a programming error.
func New(idx chunkindex.Index, compressed bool, enc *EncryptionMetadata, indexSizes map[string]int64) *Manifest {
	return &Manifest{
		ChunkIndex: idx,
		Compressed: compressed,
		Encryption: enc,
		IndexSizes: indexSizes,
	}
}
