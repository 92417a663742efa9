package chunkindex

// FixedSize is the compact ChunkIndex representation used when every
// chunk shares one original size and one transformed size, except
// possibly the final chunk which may be smaller in either dimension.
// Offset lookups are O(1).
type FixedSize struct {
	OriginalChunkSize    uint32
	OriginalTotal        uint64
	TransformedChunkSize uint32
	TransformedTotal     uint64
}

var _ Index = FixedSize{}

// Count returns the number of chunks implied by the sizes.
func (f FixedSize) Count() int {
	if f.OriginalChunkSize == 0 {
		return 0
	}
	n := f.OriginalTotal / uint64(f.OriginalChunkSize)
	if f.OriginalTotal%uint64(f.OriginalChunkSize) != 0 {
		n++
	}
	return int(n)
}

func (f FixedSize) TotalOriginalSize() uint64    { return f.OriginalTotal }
func (f FixedSize) TotalTransformedSize() uint64 { return f.TransformedTotal }

// Get returns the chunk at the given ordinal, computed arithmetically.
func (f FixedSize) Get(ordinal uint32) (Chunk, error) {
	count := f.Count()
	if int(ordinal) >= count {
		return Chunk{}, ErrOrdinalNotFound{Ordinal: ordinal, Count: count}
	}

	originalFrom := uint64(ordinal) * uint64(f.OriginalChunkSize)
	originalSize := f.OriginalChunkSize
	if last := uint32(count) - 1; ordinal == last {
		if rem := f.OriginalTotal - originalFrom; rem < uint64(originalSize) {
			originalSize = uint32(rem)
		}
	}

	transformedFrom := uint64(ordinal) * uint64(f.TransformedChunkSize)
	transformedSize := f.TransformedChunkSize
	if last := uint32(count) - 1; ordinal == last {
		if rem := f.TransformedTotal - transformedFrom; rem < uint64(transformedSize) {
			transformedSize = uint32(rem)
		}
	}

	return Chunk{
		Ordinal:         ordinal,
		OriginalFrom:    originalFrom,
		OriginalSize:    originalSize,
		TransformedFrom: transformedFrom,
		TransformedSize: transformedSize,
	}, nil
}

// FindChunkForOriginalOffset locates the chunk containing a plaintext offset.
func (f FixedSize) FindChunkForOriginalOffset(o uint64) (Chunk, error) {
	if o >= f.OriginalTotal {
		return Chunk{}, ErrOutOfRange{Offset: o, Total: f.OriginalTotal}
	}
	ordinal := uint32(o / uint64(f.OriginalChunkSize))
	return f.Get(ordinal)
}

// Chunks returns every chunk in ordinal order.
func (f FixedSize) Chunks() []Chunk {
	count := f.Count()
	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		c, err := f.Get(uint32(i))
		if err != nil {
			break
		}
		chunks = append(chunks, c)
	}
	return chunks
}
