package concierge

import "context"

// Store is a keyed blob store used for the local session cache.
// Get returns ErrNotFound for absent keys. Remove of an absent key is not
// an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
