package envelope

import "errors"

// Sentinel errors for the envelope crypto contract (spec §4.B). None are
// retryable: they indicate tampering, a key mismatch, or a missing
// algorithm, never a transient condition.
var (
	// ErrKeyUnwrapFailed is returned when a wrapped data key cannot be
	// unwrapped with the configured private key (mismatch or tampering).
	ErrKeyUnwrapFailed = errors.New("envelope: key unwrap failed")

	// ErrAuthTagInvalid is returned when ciphertext fails AEAD
	// authentication (tampering or wrong key/aad).
	ErrAuthTagInvalid = errors.New("envelope: auth tag invalid")

	// ErrCryptoUnavailable is returned when the requested algorithm isn't
	// available in this build.
	ErrCryptoUnavailable = errors.New("envelope: crypto algorithm unavailable")
)
