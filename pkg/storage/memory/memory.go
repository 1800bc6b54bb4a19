// Package memory provides an in-memory implementation of storage.Store
// for testing and single-replica deployments. Entries are lost when the
// process restarts. The store is bounded; the least recently used entry
// is evicted when the limit is reached.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rhuss/keygate/pkg/storage"
)

// DefaultMaxSize is used when New is called with a non-positive size.
const DefaultMaxSize = 1024

// Store is a bounded in-memory key-value store.
type Store struct {
	cache  *lru.Cache[string, []byte]
	closed atomic.Bool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an in-memory store holding at most maxSize keys.
func New(maxSize int) (*Store, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	cache, err := lru.New[string, []byte](maxSize)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(v), nil
}

// Put stores a copy of value, overwriting any existing entry.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	s.cache.Add(key, clone(value))
	return nil
}

// Delete removes key. Removing an absent key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	s.cache.Remove(key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Close purges all entries. Subsequent operations return storage.ErrClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cache.Purge()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
