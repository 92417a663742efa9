package chunkmanager

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kenneth/tiered-segment-store/internal/envelope"
	"github.com/kenneth/tiered-segment-store/internal/manifest"
	"github.com/kenneth/tiered-segment-store/internal/objectstore/memstore"
	"github.com/kenneth/tiered-segment-store/internal/transform"
)

func writeSegment(t *testing.T, store *memstore.Store, logKey string, plaintext []byte, chunkSize uint32, enc *envelope.CipherProvider, aad []byte) *manifest.Manifest {
	t.Helper()

	var stage transform.Stage = transform.NewBaseChunker(bytes.NewReader(plaintext), chunkSize)
	if enc != nil {
		stage = transform.NewEncrypt(stage, enc, aad, nil)
	}
	finisher := transform.NewFinisher(stage)

	var buf bytes.Buffer
	require.NoError(t, finisher.Finish(&buf))
	require.NoError(t, store.Upload(context.Background(), logKey, &buf))

	idx, err := finisher.ChunkIndex()
	require.NoError(t, err)

	var encMeta *manifest.EncryptionMetadata
	if enc != nil {
		encMeta = &manifest.EncryptionMetadata{WrappedDataKey: []byte("wrapped"), AAD: aad}
	}
	return manifest.New(idx, false, encMeta, nil)
}

func TestGetChunk_PlainNoCompressionNoEncryption(t *testing.T) {
	store := memstore.New()
	plaintext := []byte("0123456789") // 10 bytes, chunkSize 4 -> chunks of 4,4,2
	mf := writeSegment(t, store, "seg.log", plaintext, 4, nil, nil)

	mgr := New(store, "seg.log", mf, nil, nil)

	r, err := mgr.GetChunk(context.Background(), 0)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, "0123", string(b))

	r2, err := mgr.GetChunk(context.Background(), 2)
	require.NoError(t, err)
	b2, _ := io.ReadAll(r2)
	r2.Close()
	require.Equal(t, "89", string(b2))
}

func TestGetChunk_Encrypted(t *testing.T) {
	store := memstore.New()
	dataKey, err := envelope.GenerateDataKey()
	require.NoError(t, err)
	provider, err := envelope.NewCipherProvider(dataKey)
	require.NoError(t, err)
	aad := []byte("segment-aad")

	plaintext := []byte("abcdefghij")
	mf := writeSegment(t, store, "seg.log", plaintext, 5, provider, aad)

	calls := 0
	unwrap := func(wrapped []byte) ([]byte, error) {
		calls++
		return dataKey, nil
	}
	mgr := New(store, "seg.log", mf, unwrap, nil)

	r, err := mgr.GetChunk(context.Background(), 0)
	require.NoError(t, err)
	b, _ := io.ReadAll(r)
	r.Close()
	require.Equal(t, "abcde", string(b))
	require.Equal(t, 1, calls)
}

func TestGetChunk_OutOfRangeOrdinal(t *testing.T) {
	store := memstore.New()
	mf := writeSegment(t, store, "seg.log", []byte("abcd"), 4, nil, nil)
	mgr := New(store, "seg.log", mf, nil, nil)

	_, err := mgr.GetChunk(context.Background(), 5)
	require.Error(t, err)
}
