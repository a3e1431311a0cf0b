package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/concierge"
)

// Interface compliance checks.
var (
	_ concierge.Store = (*Store)(nil)
	_ concierge.Store = (*MemoryStore)(nil)
)

// Store is a test double for concierge.Store.
// Set the function fields for the methods you need.
type Store struct {
	GetFn    func(ctx context.Context, key string) ([]byte, error)
	SetFn    func(ctx context.Context, key string, value []byte) error
	RemoveFn func(ctx context.Context, key string) error
}

// Get delegates to GetFn.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.GetFn(ctx, key)
}

// Set delegates to SetFn.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetFn(ctx, key, value)
}

// Remove delegates to RemoveFn.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.RemoveFn(ctx, key)
}

// MemoryStore is a map-backed concierge.Store for tests that need working
// persistence rather than call assertions.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value or concierge.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, concierge.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
