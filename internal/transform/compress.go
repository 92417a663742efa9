package transform

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/kenneth/tiered-segment-store/internal/metrics"
)

// Compress wraps a stage, zstd-compressing each block independently.
// Each block becomes a self-contained zstd frame so that a single
// transformed chunk can be decompressed on its own during a random-access
// read, with no dependency on neighboring chunks. counters may be nil, in
// which case compression byte counts are simply not recorded.
type Compress struct {
	inner    Stage
	encoder  *zstd.Encoder
	counters *metrics.CacheCounters
}

var _ Stage = (*Compress)(nil)

// NewCompress wraps inner with per-block zstd compression.
func NewCompress(inner Stage, counters *metrics.CacheCounters) (*Compress, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("transform: new zstd encoder: %w", err)
	}
	return &Compress{inner: inner, encoder: enc, counters: counters}, nil
}

func (c *Compress) HasNext() bool { return c.inner.HasNext() }

func (c *Compress) Next() ([]byte, error) {
	block, err := c.inner.Next()
	if err != nil {
		return nil, err
	}
	out := c.encoder.EncodeAll(block, nil)
	if c.counters != nil {
		c.counters.RecordCompressionBytes(len(block), len(out))
	}
	return out, nil
}

func (c *Compress) LastOriginalSize() uint32 { return c.inner.LastOriginalSize() }

// Decompress wraps a stage, zstd-decompressing each block independently.
type Decompress struct {
	inner    Stage
	decoder  *zstd.Decoder
	counters *metrics.CacheCounters
}

var _ Stage = (*Decompress)(nil)

// NewDecompress wraps inner, whose blocks are independent zstd frames.
func NewDecompress(inner Stage, counters *metrics.CacheCounters) (*Decompress, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("transform: new zstd decoder: %w", err)
	}
	return &Decompress{inner: inner, decoder: dec, counters: counters}, nil
}

func (d *Decompress) HasNext() bool { return d.inner.HasNext() }

func (d *Decompress) Next() ([]byte, error) {
	block, err := d.inner.Next()
	if err != nil {
		return nil, err
	}
	out, err := d.decoder.DecodeAll(block, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionCorrupt, err)
	}
	if d.counters != nil {
		d.counters.RecordCompressionBytes(len(block), len(out))
	}
	return out, nil
}

func (d *Decompress) LastOriginalSize() uint32 { return d.inner.LastOriginalSize() }

// recordBatchAttributesOffset and compressionCodecMask locate the
// compression codec bits within a Kafka record batch v2 header: base
// offset (8) + batch length (4) + partition leader epoch (4) + magic (1)
// + crc (4) = 21 bytes, then a 2-byte big-endian attributes field whose
// low 3 bits are the compression codec (0 = none).
const (
	recordBatchAttributesOffset = 21
	recordBatchHeaderMinLen     = recordBatchAttributesOffset + 2
	compressionCodecMask        = 0x07
)

// sniffAlreadyCompressed inspects the attributes field of the segment's
// first record batch header to determine whether its records are already
// compressed. It returns ok=false when the buffer is too short to contain
// a batch header, in which case the caller falls back to uploading
// uncompressed with a warning (spec §6/§7).
func sniffAlreadyCompressed(firstBatch []byte) (compressed bool, ok bool) {
	if len(firstBatch) < recordBatchHeaderMinLen {
		return false, false
	}
	attrs := uint16(firstBatch[recordBatchAttributesOffset])<<8 |
		uint16(firstBatch[recordBatchAttributesOffset+1])
	codec := attrs & compressionCodecMask
	return codec != 0, true
}

// SniffAlreadyCompressed is the exported form used by the write path to
// implement the compression heuristic (spec §6 compression.heuristic.enabled).
func SniffAlreadyCompressed(firstBatch []byte) (compressed bool, ok bool) {
	return sniffAlreadyCompressed(firstBatch)
}
