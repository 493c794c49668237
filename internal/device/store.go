package device

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists device bindings. Bind must be atomic: two concurrent first
// logins from the same new device must never both succeed for different users.
type Store interface {
	// Get returns the binding for deviceID, or ErrNotFound.
	Get(ctx context.Context, deviceID string) (Binding, error)
	// Bind inserts the binding if absent, refreshes last-used if owned by the
	// same user, and returns ConflictError if owned by another user. The
	// decision and the write are a single atomic operation.
	Bind(ctx context.Context, now time.Time, deviceID, owner, group string) (Binding, error)
	// Delete removes the binding and returns it, or ErrNotFound.
	Delete(ctx context.Context, deviceID string) (Binding, error)
	// DeleteForOwner removes every binding owned by owner.
	DeleteForOwner(ctx context.Context, owner string) error
	// List returns all bindings, most recently used first.
	List(ctx context.Context) ([]Binding, error)
}

// MemoryStore is a mutex-serialized in-memory Store for tests and local runs.
type MemoryStore struct {
	mu       sync.Mutex
	bindings map[string]Binding
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bindings: make(map[string]Binding)}
}

func (s *MemoryStore) Get(ctx context.Context, deviceID string) (Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[deviceID]
	if !ok {
		return Binding{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) Bind(ctx context.Context, now time.Time, deviceID, owner, group string) (Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bindings[deviceID]; ok {
		if b.Owner != owner {
			return Binding{}, ConflictError{DeviceID: deviceID, BoundTo: b.Owner}
		}
		b.LastUsed = now
		s.bindings[deviceID] = b
		return b, nil
	}
	b := Binding{DeviceID: deviceID, Owner: owner, Group: group, FirstUsed: now, LastUsed: now}
	s.bindings[deviceID] = b
	return b, nil
}

func (s *MemoryStore) Delete(ctx context.Context, deviceID string) (Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[deviceID]
	if !ok {
		return Binding{}, ErrNotFound
	}
	delete(s.bindings, deviceID)
	return b, nil
}

func (s *MemoryStore) DeleteForOwner(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bindings {
		if b.Owner == owner {
			delete(s.bindings, id)
		}
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Binding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out, nil
}
