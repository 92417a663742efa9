package chunkindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedSize_RoundTrip(t *testing.T) {
	f := FixedSize{
		OriginalChunkSize:    10,
		OriginalTotal:        25,
		TransformedChunkSize: 10,
		TransformedTotal:     25,
	}
	assert.Equal(t, 3, f.Count())

	for _, c := range f.Chunks() {
		got, err := f.FindChunkForOriginalOffset(c.OriginalFrom)
		require.NoError(t, err)
		assert.Equal(t, c, got)

		got, err = f.FindChunkForOriginalOffset(c.OriginalTo())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	last, err := f.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), last.OriginalSize)

	_, err = f.FindChunkForOriginalOffset(25)
	assert.Error(t, err)
}

func TestVariable_RoundTrip(t *testing.T) {
	chunks := []Chunk{
		{Ordinal: 0, OriginalFrom: 0, OriginalSize: 10, TransformedFrom: 0, TransformedSize: 7},
		{Ordinal: 1, OriginalFrom: 10, OriginalSize: 10, TransformedFrom: 7, TransformedSize: 9},
		{Ordinal: 2, OriginalFrom: 20, OriginalSize: 5, TransformedFrom: 16, TransformedSize: 4},
	}
	v := NewVariable(chunks)

	assert.Equal(t, uint64(25), v.TotalOriginalSize())
	assert.Equal(t, uint64(20), v.TotalTransformedSize())

	for _, c := range chunks {
		got, err := v.FindChunkForOriginalOffset(c.OriginalFrom)
		require.NoError(t, err)
		assert.Equal(t, c, got)

		got, err = v.FindChunkForOriginalOffset(c.OriginalTo())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := v.FindChunkForOriginalOffset(25)
	assert.Error(t, err)

	_, err = v.Get(3)
	assert.Error(t, err)
}
