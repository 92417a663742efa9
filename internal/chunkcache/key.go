package chunkcache

import "fmt"

// Key identifies one chunk cache entry: a segment's manifest object key
// plus the ordinal of the chunk within it (spec §3 ChunkKey).
type Key struct {
	SegmentObjectKey string
	ChunkOrdinal     uint32
}

// String renders the key deterministically, used both as the in-memory
// map key's string form for logging and as the seed for the disk-backed
// filename hash.
func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.SegmentObjectKey, k.ChunkOrdinal)
}
