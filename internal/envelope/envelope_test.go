package envelope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyPair_WrapUnwrapRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	dataKey, err := GenerateDataKey()
	require.NoError(t, err)

	wrapped, err := kp.WrapKey(dataKey)
	require.NoError(t, err)

	unwrapped, err := kp.UnwrapKey(wrapped)
	require.NoError(t, err)
	require.Equal(t, dataKey, unwrapped)
}

func TestKeyPair_UnwrapFailsWithWrongKeyPair(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	dataKey, err := GenerateDataKey()
	require.NoError(t, err)

	wrapped, err := kp1.WrapKey(dataKey)
	require.NoError(t, err)

	_, err = kp2.UnwrapKey(wrapped)
	require.ErrorIs(t, err, ErrKeyUnwrapFailed)
}

func TestCipherProvider_EncryptDecryptRoundTrip(t *testing.T) {
	dataKey, err := GenerateDataKey()
	require.NoError(t, err)
	provider, err := NewCipherProvider(dataKey)
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	aad := []byte("segment-aad")

	ciphertext, err := provider.EncryptChunk(plaintext, aad)
	require.NoError(t, err)
	require.Len(t, ciphertext, IVSize+len(plaintext)+TagSize)

	decrypted, err := provider.DecryptChunk(ciphertext, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestCipherProvider_DecryptFailsOnTamperedCiphertext(t *testing.T) {
	dataKey, err := GenerateDataKey()
	require.NoError(t, err)
	provider, err := NewCipherProvider(dataKey)
	require.NoError(t, err)

	ciphertext, err := provider.EncryptChunk([]byte("payload"), nil)
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = provider.DecryptChunk(tampered, nil)
	require.ErrorIs(t, err, ErrAuthTagInvalid)
}

func TestCipherProvider_EachChunkGetsUniqueIV(t *testing.T) {
	dataKey, err := GenerateDataKey()
	require.NoError(t, err)
	provider, err := NewCipherProvider(dataKey)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ct, err := provider.EncryptChunk([]byte("x"), nil)
		require.NoError(t, err)
		iv := string(ct[:IVSize])
		require.False(t, seen[iv], "IV reused across chunks")
		seen[iv] = true
	}
}
