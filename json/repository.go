package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/concierge"
)

const (
	sessionPrefix = "session/"
	indexKey      = "sessions"

	// DefaultLimit is the number of sessions kept before the oldest are
	// pruned.
	DefaultLimit = 50
)

// indexEntry is one row of the session index.
type indexEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRepository persists sessions as v1 envelopes in a Store. Each
// session lives under "session/<id>"; the "sessions" key holds an index
// ordered most recent first.
type SessionRepository struct {
	store concierge.Store
	limit int

	mu sync.Mutex // serializes index updates
}

// RepositoryOption configures a [SessionRepository].
type RepositoryOption func(*SessionRepository)

// WithLimit sets how many sessions are kept. Zero or less keeps all.
func WithLimit(n int) RepositoryOption {
	return func(r *SessionRepository) { r.limit = n }
}

// NewSessionRepository creates a repository backed by store.
func NewSessionRepository(store concierge.Store, opts ...RepositoryOption) *SessionRepository {
	r := &SessionRepository{store: store, limit: DefaultLimit}
	for _, o := range opts {
		o(r)
	}
	return r
}

func sessionKey(id string) string { return sessionPrefix + id }

// Save writes s and moves it to the front of the index. Sessions beyond the
// limit are removed.
func (r *SessionRepository) Save(ctx context.Context, s concierge.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("json: save session: %w", err)
	}
	data, err := MarshalSession(s)
	if err != nil {
		return fmt.Errorf("json: marshal session %s: %w", s.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Set(ctx, sessionKey(s.ID), data); err != nil {
		return fmt.Errorf("json: save session %s: %w", s.ID, err)
	}
	index, err := r.readIndex(ctx)
	if err != nil {
		return err
	}
	updated := make([]indexEntry, 0, len(index)+1)
	updated = append(updated, indexEntry{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt})
	for _, e := range index {
		if e.ID != s.ID {
			updated = append(updated, e)
		}
	}
	if r.limit > 0 && len(updated) > r.limit {
		for _, e := range updated[r.limit:] {
			if err := r.store.Remove(ctx, sessionKey(e.ID)); err != nil {
				return fmt.Errorf("json: prune session %s: %w", e.ID, err)
			}
		}
		updated = updated[:r.limit]
	}
	return r.writeIndex(ctx, updated)
}

// Load reads the session with the given id. It returns an error wrapping
// concierge.ErrNotFound when the session is not cached.
func (r *SessionRepository) Load(ctx context.Context, id string) (concierge.Session, error) {
	data, err := r.store.Get(ctx, sessionKey(id))
	if err != nil {
		return concierge.Session{}, fmt.Errorf("json: load session %s: %w", id, err)
	}
	s, err := UnmarshalSession(data)
	if err != nil {
		return concierge.Session{}, fmt.Errorf("json: load session %s: %w", id, err)
	}
	return s, nil
}

// Delete removes a session and its index entry.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("json: delete session %s: %w", id, err)
	}
	index, err := r.readIndex(ctx)
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, e := range index {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return r.writeIndex(ctx, kept)
}

// List returns cached sessions, most recently saved first.
func (r *SessionRepository) List(ctx context.Context) ([]concierge.SessionSummary, error) {
	r.mu.Lock()
	index, err := r.readIndex(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]concierge.SessionSummary, len(index))
	for i, e := range index {
		out[i] = concierge.SessionSummary{ID: e.ID, Title: e.Title, UpdatedAt: e.UpdatedAt}
	}
	return out, nil
}

func (r *SessionRepository) readIndex(ctx context.Context) ([]indexEntry, error) {
	data, err := r.store.Get(ctx, indexKey)
	if errors.Is(err, concierge.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json: read session index: %w", err)
	}
	var index []indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("json: decode session index: %w", err)
	}
	return index, nil
}

func (r *SessionRepository) writeIndex(ctx context.Context, index []indexEntry) error {
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("json: encode session index: %w", err)
	}
	if err := r.store.Set(ctx, indexKey, data); err != nil {
		return fmt.Errorf("json: write session index: %w", err)
	}
	return nil
}
