package storage

import "context"

// Store is a minimal key-value store.
//
// Get returns ErrNotFound when the key is absent. Delete of an absent key
// is not an error. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
