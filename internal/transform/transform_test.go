package transform

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kenneth/tiered-segment-store/internal/envelope"
)

func TestBaseChunker_SplitsFixedBlocksWithShortLastBlock(t *testing.T) {
	data := []byte("0123456789" + "1011121314") // 20 bytes
	chunker := NewBaseChunker(bytes.NewReader(data), 10)

	var blocks [][]byte
	for chunker.HasNext() {
		b, err := chunker.Next()
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
	require.Len(t, blocks, 2)
	require.Equal(t, "0123456789", string(blocks[0]))
	require.Equal(t, "1011121314", string(blocks[1]))
}

func TestWriteReadRoundTrip_PlainNoCompressionNoEncryption(t *testing.T) {
	data := []byte("0123456789" + "1011121314")
	chunker := NewBaseChunker(bytes.NewReader(data), 10)

	var uploaded bytes.Buffer
	finisher := NewFinisher(chunker)
	require.NoError(t, finisher.Finish(&uploaded))

	idx, err := finisher.ChunkIndex()
	require.NoError(t, err)
	require.Equal(t, 2, idx.Count())
	require.Equal(t, uint64(20), idx.TotalOriginalSize())
	require.Equal(t, uint64(20), idx.TotalTransformedSize())

	// Read path: fetch chunk 0 directly from the uploaded bytes.
	c0, err := idx.Get(0)
	require.NoError(t, err)
	source := bytes.NewReader(uploaded.Bytes()[c0.TransformedFrom : c0.TransformedFrom+uint64(c0.TransformedSize)])
	dechunker := NewBaseDechunker(c0, source)
	require.True(t, dechunker.HasNext())
	block, err := dechunker.Next()
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(block))
	require.False(t, dechunker.HasNext())
}

func TestWriteReadRoundTrip_CompressionAndEncryption(t *testing.T) {
	data := bytes.Repeat([]byte("hello tiered storage world "), 50)
	kp, err := envelope.GenerateKeyPair()
	require.NoError(t, err)
	dataKey, err := envelope.GenerateDataKey()
	require.NoError(t, err)
	provider, err := envelope.NewCipherProvider(dataKey)
	require.NoError(t, err)
	aad := []byte("segment-aad")

	chunker := NewBaseChunker(bytes.NewReader(data), 64)
	compress, err := NewCompress(chunker, nil)
	require.NoError(t, err)
	encrypt := NewEncrypt(compress, provider, aad, nil)

	var uploaded bytes.Buffer
	finisher := NewFinisher(encrypt)
	require.NoError(t, finisher.Finish(&uploaded))

	idx, err := finisher.ChunkIndex()
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), idx.TotalOriginalSize())

	// Wrap the data key for the manifest, then unwrap it as the read
	// path would, proving the whole envelope round-trips too.
	wrappedKey, err := kp.WrapKey(dataKey)
	require.NoError(t, err)
	unwrappedKey, err := kp.UnwrapKey(wrappedKey)
	require.NoError(t, err)
	readProvider, err := envelope.NewCipherProvider(unwrappedKey)
	require.NoError(t, err)

	var reconstructed bytes.Buffer
	for i := 0; i < idx.Count(); i++ {
		c, err := idx.Get(uint32(i))
		require.NoError(t, err)
		source := bytes.NewReader(uploaded.Bytes()[c.TransformedFrom : c.TransformedFrom+uint64(c.TransformedSize)])
		dechunker := NewBaseDechunker(c, source)
		decrypt := NewDecrypt(dechunker, readProvider, aad, nil)
		decompress, err := NewDecompress(decrypt, nil)
		require.NoError(t, err)
		require.True(t, decompress.HasNext())
		plaintext, err := decompress.Next()
		require.NoError(t, err)
		reconstructed.Write(plaintext)
	}

	require.Equal(t, data, reconstructed.Bytes())
}

func TestDecrypt_TamperedCiphertextFailsAuth(t *testing.T) {
	data := []byte("0123456789")
	dataKey, err := envelope.GenerateDataKey()
	require.NoError(t, err)
	provider, err := envelope.NewCipherProvider(dataKey)
	require.NoError(t, err)

	chunker := NewBaseChunker(bytes.NewReader(data), 10)
	encrypt := NewEncrypt(chunker, provider, nil, nil)

	var uploaded bytes.Buffer
	finisher := NewFinisher(encrypt)
	require.NoError(t, finisher.Finish(&uploaded))

	idx, err := finisher.ChunkIndex()
	require.NoError(t, err)
	c0, err := idx.Get(0)
	require.NoError(t, err)

	tampered := append([]byte(nil), uploaded.Bytes()...)
	tampered[len(tampered)-1] ^= 0xFF

	dechunker := NewBaseDechunker(c0, bytes.NewReader(tampered))
	decrypt := NewDecrypt(dechunker, provider, nil, nil)
	require.True(t, decrypt.HasNext())
	_, err = decrypt.Next()
	require.ErrorIs(t, err, envelope.ErrAuthTagInvalid)
}

func TestFinisher_ChunkIndexUnavailableBeforeFinish(t *testing.T) {
	chunker := NewBaseChunker(bytes.NewReader([]byte("abc")), 10)
	finisher := NewFinisher(chunker)
	_, err := finisher.ChunkIndex()
	require.ErrorIs(t, err, ErrNotFinished)
}

func TestSniffAlreadyCompressed(t *testing.T) {
	header := make([]byte, recordBatchHeaderMinLen)
	header[recordBatchAttributesOffset] = 0x00
	compressed, ok := SniffAlreadyCompressed(header)
	require.True(t, ok)
	require.False(t, compressed)

	header[recordBatchAttributesOffset+1] = 0x04 // zstd codec in the low byte
	compressed, ok = SniffAlreadyCompressed(header)
	require.True(t, ok)
	require.True(t, compressed)

	_, ok = SniffAlreadyCompressed(nil)
	require.False(t, ok)
}
