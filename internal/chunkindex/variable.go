package chunkindex

import "sort"

// Variable is the ChunkIndex representation used when transformed chunk
// sizes differ between chunks (e.g. after compression). Offset lookups
// use binary search over cumulative sums, which are precomputed once at
// construction time so that all reads are O(log n) and allocation-free.
type Variable struct {
	chunks        []Chunk
	originalCum   []uint64 // originalCum[i] = sum of OriginalSize for chunks[0:i]
	transformdCum []uint64
}

var _ Index = (*Variable)(nil)

// NewVariable builds a Variable index from chunks already in ordinal
// order with contiguous, non-overlapping ranges in both coordinate
// spaces. The caller is responsible for that invariant; NewVariable
// does not re-derive the From fields.
func NewVariable(chunks []Chunk) *Variable {
	v := &Variable{
		chunks:        make([]Chunk, len(chunks)),
		originalCum:   make([]uint64, len(chunks)+1),
		transformdCum: make([]uint64, len(chunks)+1),
	}
	copy(v.chunks, chunks)
	for i, c := range v.chunks {
		v.originalCum[i+1] = v.originalCum[i] + uint64(c.OriginalSize)
		v.transformdCum[i+1] = v.transformdCum[i] + uint64(c.TransformedSize)
	}
	return v
}

func (v *Variable) Count() int { return len(v.chunks) }

func (v *Variable) TotalOriginalSize() uint64 {
	return v.originalCum[len(v.originalCum)-1]
}

func (v *Variable) TotalTransformedSize() uint64 {
	return v.transformdCum[len(v.transformdCum)-1]
}

func (v *Variable) Get(ordinal uint32) (Chunk, error) {
	if int(ordinal) >= len(v.chunks) {
		return Chunk{}, ErrOrdinalNotFound{Ordinal: ordinal, Count: len(v.chunks)}
	}
	return v.chunks[ordinal], nil
}

// FindChunkForOriginalOffset binary-searches the cumulative original-size
// prefix sums for the chunk containing o.
func (v *Variable) FindChunkForOriginalOffset(o uint64) (Chunk, error) {
	total := v.TotalOriginalSize()
	if o >= total {
		return Chunk{}, ErrOutOfRange{Offset: o, Total: total}
	}
	// originalCum[1:] is sorted ascending; find first index i such that
	// originalCum[i+1] > o, i.e. o falls within chunk i.
	i := sort.Search(len(v.chunks), func(i int) bool {
		return v.originalCum[i+1] > o
	})
	return v.chunks[i], nil
}

func (v *Variable) Chunks() []Chunk {
	out := make([]Chunk, len(v.chunks))
	copy(out, v.chunks)
	return out
}
