package transform

import (
	"io"

	"github.com/kenneth/tiered-segment-store/internal/chunkindex"
)

// BaseChunker is the write-path source stage: it splits a contiguous
// plaintext source into fixed chunkSize blocks, the last of which may be
// shorter. It defines chunk boundaries for every later stage.
type BaseChunker struct {
	source    io.Reader
	chunkSize uint32
	buf       []byte
	next      []byte
	lastSize  uint32
	err       error
	done      bool
}

var _ Stage = (*BaseChunker)(nil)

// NewBaseChunker wraps source, emitting blocks of chunkSize bytes.
func NewBaseChunker(source io.Reader, chunkSize uint32) *BaseChunker {
	c := &BaseChunker{
		source:    source,
		chunkSize: chunkSize,
		buf:       make([]byte, chunkSize),
	}
	c.advance()
	return c
}

func (c *BaseChunker) advance() {
	if c.done || c.err != nil {
		c.next = nil
		return
	}
	n, err := io.ReadFull(c.source, c.buf)
	if n > 0 {
		block := make([]byte, n)
		copy(block, c.buf[:n])
		c.next = block
		c.lastSize = uint32(n)
	} else {
		c.next = nil
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		c.done = true
		return
	}
	if err != nil {
		c.err = err
		c.done = true
	}
}

func (c *BaseChunker) HasNext() bool {
	// A pending source error counts as a next item so that Next surfaces it.
	return c.next != nil || c.err != nil
}

func (c *BaseChunker) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	block := c.next
	c.advance()
	return block, nil
}

func (c *BaseChunker) LastOriginalSize() uint32 { return c.lastSize }

// BaseDechunker is the read-path source stage: given a single resolved
// Chunk, it reads exactly TransformedSize bytes from source and yields
// that as its one block. Subsequent reverse stages turn it into exactly
// one plaintext block, which is why a random byte read lands on a single
// chunk (spec §4.C).
type BaseDechunker struct {
	chunk    chunkindex.Chunk
	source   io.Reader
	consumed bool
	block    []byte
	err      error
}

var _ Stage = (*BaseDechunker)(nil)

// NewBaseDechunker wraps source, which must yield exactly
// chunk.TransformedSize bytes (the caller arranges the object-store byte
// range GET accordingly).
func NewBaseDechunker(chunk chunkindex.Chunk, source io.Reader) *BaseDechunker {
	return &BaseDechunker{chunk: chunk, source: source}
}

func (d *BaseDechunker) HasNext() bool {
	return !d.consumed && d.err == nil
}

func (d *BaseDechunker) Next() ([]byte, error) {
	if d.consumed {
		return nil, io.EOF
	}
	buf := make([]byte, d.chunk.TransformedSize)
	if _, err := io.ReadFull(d.source, buf); err != nil {
		d.err = err
		return nil, err
	}
	d.consumed = true
	d.block = buf
	return buf, nil
}

func (d *BaseDechunker) LastOriginalSize() uint32 { return d.chunk.OriginalSize }
