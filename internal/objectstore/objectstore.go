// Package objectstore defines the contract this module expects of the
// object store it is tiered on top of (spec §6). The wire protocol
// talking to a concrete backend is out of scope for this module; only
// this Go-native contract, and the reference implementations in
// memstore and s3store, live here.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Fetch/FetchRange when key does not exist in
// the backing store.
var ErrNotFound = errors.New("objectstore: key not found")

// Store is the minimal GET/range-GET/PUT/DELETE contract the core
// requires of an object store (spec §6).
type Store interface {
	// Upload writes the entirety of r to key, replacing any existing
	// object at that key.
	Upload(ctx context.Context, key string, r io.Reader) error

	// Fetch returns the full contents of key.
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)

	// FetchRange returns the inclusive byte range [from, to] of key.
	FetchRange(ctx context.Context, key string, from, to int64) (io.ReadCloser, error)

	// Delete removes key. Deleting an already-absent key is not an error.
	Delete(ctx context.Context, key string) error
}
