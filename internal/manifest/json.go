package manifest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kenneth/tiered-segment-store/internal/chunkindex"
)

// ErrVersionUnknown is returned when a manifest declares a "type" this
// module doesn't recognize (spec §4.F: "unknown version tag").
var ErrVersionUnknown = errors.New("manifest: unknown version tag")

// ErrParse wraps any JSON structural error encountered while decoding a
// manifest (spec §4.F / §7 ManifestParse). Failures of this kind are
// never cached by the manifest provider.
var ErrParse = errors.New("manifest: parse failed")

const currentVersion = "v1"

const (
	chunkIndexTypeFixed    = "fixed"
	chunkIndexTypeVariable = "variable"
)

type wireManifest struct {
	Type           string             `json:"type"`
	ChunkIndex     wireChunkIndex     `json:"chunkIndex"`
	Compression    bool               `json:"compression"`
	Encryption     *wireEncryption    `json:"encryption,omitempty"`
	SegmentIndexes map[string]int64   `json:"segmentIndexes,omitempty"`
}

type wireChunkIndex struct {
	Type                 string   `json:"type"`
	OriginalChunkSize    uint32   `json:"originalChunkSize"`
	OriginalFileSize     uint64   `json:"originalFileSize,omitempty"`
	TransformedChunkSize uint32   `json:"transformedChunkSize,omitempty"`
	TransformedFileSize  uint64   `json:"transformedFileSize,omitempty"`
	TransformedChunks    []uint32 `json:"transformedChunks,omitempty"`
}

type wireEncryption struct {
	DataKey string `json:"dataKey"`
	AAD     string `json:"aad"`
}

// Marshal serializes a Manifest to its stable versioned JSON form (spec §6).
func Marshal(m *Manifest) ([]byte, error) {
	wire := wireManifest{
		Type:           currentVersion,
		Compression:    m.Compressed,
		SegmentIndexes: m.IndexSizes,
	}

	switch idx := m.ChunkIndex.(type) {
	case chunkindex.FixedSize:
		wire.ChunkIndex = wireChunkIndex{
			Type:                 chunkIndexTypeFixed,
			OriginalChunkSize:    idx.OriginalChunkSize,
			OriginalFileSize:     idx.OriginalTotal,
			TransformedChunkSize: idx.TransformedChunkSize,
			TransformedFileSize:  idx.TransformedTotal,
		}
	case *chunkindex.Variable:
		chunks := idx.Chunks()
		transformed := make([]uint32, len(chunks))
		var originalChunkSize uint32
		for i, c := range chunks {
			transformed[i] = c.TransformedSize
			if i == 0 {
				originalChunkSize = c.OriginalSize
			}
		}
		wire.ChunkIndex = wireChunkIndex{
			Type:              chunkIndexTypeVariable,
			OriginalChunkSize: originalChunkSize,
			OriginalFileSize:  idx.TotalOriginalSize(),
			TransformedChunks: transformed,
		}
	default:
		return nil, fmt.Errorf("manifest: unsupported chunk index type %T", idx)
	}

	if m.Encryption != nil {
		wire.Encryption = &wireEncryption{
			DataKey: base64.StdEncoding.EncodeToString(m.Encryption.WrappedDataKey),
			AAD:     base64.StdEncoding.EncodeToString(m.Encryption.AAD),
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return data, nil
}

// Unmarshal parses a manifest previously produced by Marshal.
func Unmarshal(data []byte) (*Manifest, error) {
	var wire wireManifest
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if wire.Type != currentVersion {
		return nil, fmt.Errorf("%w: %q", ErrVersionUnknown, wire.Type)
	}

	idx, err := decodeChunkIndex(wire.ChunkIndex)
	if err != nil {
		return nil, err
	}

	var enc *EncryptionMetadata
	if wire.Encryption != nil {
		dataKey, err := base64.StdEncoding.DecodeString(wire.Encryption.DataKey)
		if err != nil {
			return nil, fmt.Errorf("%w: decode dataKey: %v", ErrParse, err)
		}
		aad, err := base64.StdEncoding.DecodeString(wire.Encryption.AAD)
		if err != nil {
			return nil, fmt.Errorf("%w: decode aad: %v", ErrParse, err)
		}
		enc = &EncryptionMetadata{WrappedDataKey: dataKey, AAD: aad}
	}

	return New(idx, wire.Compression, enc, wire.SegmentIndexes), nil
}

func decodeChunkIndex(w wireChunkIndex) (chunkindex.Index, error) {
	switch w.Type {
	case chunkIndexTypeFixed:
		return chunkindex.FixedSize{
			OriginalChunkSize:    w.OriginalChunkSize,
			OriginalTotal:        w.OriginalFileSize,
			TransformedChunkSize: w.TransformedChunkSize,
			TransformedTotal:     w.TransformedFileSize,
		}, nil
	case chunkIndexTypeVariable:
		chunks := make([]chunkindex.Chunk, len(w.TransformedChunks))
		var originalFrom, transformedFrom uint64
		remaining := w.OriginalFileSize
		for i, tSize := range w.TransformedChunks {
			originalSize := w.OriginalChunkSize
			if uint64(originalSize) > remaining {
				originalSize = uint32(remaining)
			}
			chunks[i] = chunkindex.Chunk{
				Ordinal:         uint32(i),
				OriginalFrom:    originalFrom,
				OriginalSize:    originalSize,
				TransformedFrom: transformedFrom,
				TransformedSize: tSize,
			}
			originalFrom += uint64(originalSize)
			transformedFrom += uint64(tSize)
			remaining -= uint64(originalSize)
		}
		return chunkindex.NewVariable(chunks), nil
	default:
		return nil, fmt.Errorf("%w: chunkIndex.type %q", ErrVersionUnknown, w.Type)
	}
}
