package transform

import (
	"github.com/kenneth/tiered-segment-store/internal/envelope"
	"github.com/kenneth/tiered-segment-store/internal/metrics"
)

// Encrypt wraps a stage, encrypting each block independently: prepend
// IV, encrypt, append auth tag (spec §4.C). aad is bound into every
// chunk's authentication. counters may be nil, in which case crypto-op
// counts are simply not recorded.
type Encrypt struct {
	inner    Stage
	provider *envelope.CipherProvider
	aad      []byte
	counters *metrics.CacheCounters
}

var _ Stage = (*Encrypt)(nil)

// NewEncrypt wraps inner with per-block AES-GCM encryption.
func NewEncrypt(inner Stage, provider *envelope.CipherProvider, aad []byte, counters *metrics.CacheCounters) *Encrypt {
	return &Encrypt{inner: inner, provider: provider, aad: aad, counters: counters}
}

func (e *Encrypt) HasNext() bool { return e.inner.HasNext() }

func (e *Encrypt) Next() ([]byte, error) {
	block, err := e.inner.Next()
	if err != nil {
		return nil, err
	}
	out, err := e.provider.EncryptChunk(block, e.aad)
	if err != nil {
		return nil, err
	}
	if e.counters != nil {
		e.counters.RecordCryptoOp()
	}
	return out, nil
}

func (e *Encrypt) LastOriginalSize() uint32 { return e.inner.LastOriginalSize() }

// Decrypt wraps a stage, reversing Encrypt: parse IV, decrypt, verify tag.
type Decrypt struct {
	inner    Stage
	provider *envelope.CipherProvider
	aad      []byte
	counters *metrics.CacheCounters
}

var _ Stage = (*Decrypt)(nil)

// NewDecrypt wraps inner with per-block AES-GCM decryption.
func NewDecrypt(inner Stage, provider *envelope.CipherProvider, aad []byte, counters *metrics.CacheCounters) *Decrypt {
	return &Decrypt{inner: inner, provider: provider, aad: aad, counters: counters}
}

func (d *Decrypt) HasNext() bool { return d.inner.HasNext() }

func (d *Decrypt) Next() ([]byte, error) {
	block, err := d.inner.Next()
	if err != nil {
		return nil, err
	}
	out, err := d.provider.DecryptChunk(block, d.aad)
	if err != nil {
		return nil, err
	}
	if d.counters != nil {
		d.counters.RecordCryptoOp()
	}
	return out, nil
}

func (d *Decrypt) LastOriginalSize() uint32 { return d.inner.LastOriginalSize() }
