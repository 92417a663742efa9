// Package memstore is an in-memory objectstore.Store, used by tests and
// as a runnable usage example; it is not meant for production traffic.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kenneth/tiered-segment-store/internal/objectstore"
)

// Store is a goroutine-safe, in-memory object store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ objectstore.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Upload(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memstore: read upload body for %s: %w", key, err)
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *Store) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", key, objectstore.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) FetchRange(ctx context.Context, key string, from, to int64) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", key, objectstore.ErrNotFound)
	}
	if from < 0 || to < from || to >= int64(len(data)) {
		return nil, fmt.Errorf("memstore: range [%d,%d] out of bounds for %s (%d bytes)", from, to, key, len(data))
	}
	return io.NopCloser(bytes.NewReader(data[from : to+1])), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len reports how many objects are currently stored, for test assertions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
