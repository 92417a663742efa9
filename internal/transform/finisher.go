package transform

import (
	"errors"
	"fmt"
	"io"

	"github.com/kenneth/tiered-segment-store/internal/chunkindex"
)

// ErrNotFinished is returned by ChunkIndex before the stream has been
// fully consumed (spec §4.D: "refuse to expose the chunk index until the
// stream is fully consumed").
var ErrNotFinished = errors.New("transform: chunk index unavailable before stream is fully consumed")

type blockSizes struct {
	original    uint32
	transformed uint32
}

// Finisher drives a write-path Stage to completion, forwarding each
// transformed block to an uploader as one concatenated byte stream and
// recording per-block sizes to build the resulting ChunkIndex.
type Finisher struct {
	stream   Stage
	sizes    []blockSizes
	finished bool
}

// NewFinisher wraps the terminal stage of a write-path transform chain.
func NewFinisher(stream Stage) *Finisher {
	return &Finisher{stream: stream}
}

// Finish pulls every block from the stream and writes it to w, which the
// caller has wired to the object-store uploader. Any stage error is
// surfaced unchanged so the caller can abort the upload.
func (f *Finisher) Finish(w io.Writer) error {
	for f.stream.HasNext() {
		block, err := f.stream.Next()
		if err != nil {
			return err
		}
		if _, err := w.Write(block); err != nil {
			return fmt.Errorf("transform: write transformed block: %w", err)
		}
		f.sizes = append(f.sizes, blockSizes{
			original:    f.stream.LastOriginalSize(),
			transformed: uint32(len(block)),
		})
	}
	f.finished = true
	return nil
}

// ChunkIndex returns the index built from the consumed stream, choosing
// the compact FixedSize representation when it applies and falling back
// to Variable otherwise (spec §4.D, §9).
func (f *Finisher) ChunkIndex() (chunkindex.Index, error) {
	if !f.finished {
		return nil, ErrNotFinished
	}
	if len(f.sizes) == 0 {
		return chunkindex.FixedSize{}, nil
	}
	if idx, ok := f.asFixedSize(); ok {
		return idx, nil
	}
	return f.asVariable(), nil
}

// asFixedSize detects whether every non-final block shares one original
// size and one transformed size.
func (f *Finisher) asFixedSize() (chunkindex.FixedSize, bool) {
	n := len(f.sizes)
	first := f.sizes[0]
	for i, s := range f.sizes {
		last := i == n-1
		if !last && (s.original != first.original || s.transformed != first.transformed) {
			return chunkindex.FixedSize{}, false
		}
		if last && (s.original > first.original || s.transformed > first.transformed) {
			return chunkindex.FixedSize{}, false
		}
	}

	var originalTotal, transformedTotal uint64
	for _, s := range f.sizes {
		originalTotal += uint64(s.original)
		transformedTotal += uint64(s.transformed)
	}

	return chunkindex.FixedSize{
		OriginalChunkSize:    first.original,
		OriginalTotal:        originalTotal,
		TransformedChunkSize: first.transformed,
		TransformedTotal:     transformedTotal,
	}, true
}

func (f *Finisher) asVariable() *chunkindex.Variable {
	chunks := make([]chunkindex.Chunk, len(f.sizes))
	var originalFrom, transformedFrom uint64
	for i, s := range f.sizes {
		chunks[i] = chunkindex.Chunk{
			Ordinal:         uint32(i),
			OriginalFrom:    originalFrom,
			OriginalSize:    s.original,
			TransformedFrom: transformedFrom,
			TransformedSize: s.transformed,
		}
		originalFrom += uint64(s.original)
		transformedFrom += uint64(s.transformed)
	}
	return chunkindex.NewVariable(chunks)
}
