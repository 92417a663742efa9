package envelope

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// KeySize is the length in bytes of both the public and private key
// halves of the asymmetric keypair (Curve25519).
const KeySize = 32

// KeyPair is the asymmetric keypair used to wrap/unwrap per-segment data
// keys. It is an immutable capability handle: once constructed it is
// shared read-only by the write path (WrapKey) and the read path, where
// the chunk manager unwraps through a KeyUnwrapper closing over it. The
// manifest parser does not use it; wrapped keys stay wrapped in a parsed
// manifest.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// GenerateKeyPair creates a new random Curve25519 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate keypair: %v", ErrCryptoUnavailable, err)
	}
	return &KeyPair{Public: *pub, Private: *priv}, nil
}

// NewKeyPairFromBytes builds a KeyPair from already-loaded key material.
// Loading keys from files is the host's responsibility (spec §1); this
// module only accepts the raw bytes.
func NewKeyPairFromBytes(public, private []byte) (*KeyPair, error) {
	if len(public) != KeySize || len(private) != KeySize {
		return nil, fmt.Errorf("envelope: keys must be %d bytes", KeySize)
	}
	kp := &KeyPair{}
	copy(kp.Public[:], public)
	copy(kp.Private[:], private)
	return kp, nil
}

// PublicOnly builds a KeyPair usable only for wrapping (the write path
// never needs the private half).
func PublicOnly(public []byte) (*KeyPair, error) {
	if len(public) != KeySize {
		return nil, fmt.Errorf("envelope: public key must be %d bytes", KeySize)
	}
	kp := &KeyPair{}
	copy(kp.Public[:], public)
	return kp, nil
}

// WrapKey seals a freshly generated symmetric data key under the
// configured public key, using an anonymous sealed box (the sender
// needs no keypair of its own — only the recipient's public key).
func (kp *KeyPair) WrapKey(dataKey []byte) ([]byte, error) {
	wrapped, err := box.SealAnonymous(nil, dataKey, &kp.Public, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return wrapped, nil
}

// UnwrapKey opens a sealed data key using the configured private key.
func (kp *KeyPair) UnwrapKey(wrapped []byte) ([]byte, error) {
	dataKey, ok := box.OpenAnonymous(nil, wrapped, &kp.Public, &kp.Private)
	if !ok {
		return nil, ErrKeyUnwrapFailed
	}
	return dataKey, nil
}
