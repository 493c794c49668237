package user

import (
	"context"
	"sort"
	"sync"
)

// Store persists users and their device ledgers.
type Store interface {
	// Create inserts a new user. Returns ErrDuplicateName if the name is taken.
	Create(ctx context.Context, u User) error
	// Get returns the user by name, devices ordered by first use.
	Get(ctx context.Context, name string) (User, error)
	// Update replaces the user's mutable state, including the device ledger.
	Update(ctx context.Context, u User) error
	// Delete removes the user and their device ledger.
	Delete(ctx context.Context, name string) error
	// List returns all users, newest first.
	List(ctx context.Context) ([]User, error)
	// RemoveDevice prunes one device entry from a user's ledger.
	RemoveDevice(ctx context.Context, name, deviceID string) error
}

// MemoryStore is a mutex-guarded in-memory Store, used in tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func cloneUser(u User) User {
	devices := make([]DeviceEntry, len(u.Devices))
	copy(devices, u.Devices)
	u.Devices = devices
	return u
}

func (s *MemoryStore) Create(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Name]; ok {
		return ErrDuplicateName
	}
	s.users[u.Name] = cloneUser(u)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) Update(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Name]; !ok {
		return ErrNotFound
	}
	s.users[u.Name] = cloneUser(u)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		return ErrNotFound
	}
	delete(s.users, name)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) RemoveDevice(ctx context.Context, name, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return ErrNotFound
	}
	devices := make([]DeviceEntry, 0, len(u.Devices))
	for _, d := range u.Devices {
		if d.DeviceID != deviceID {
			devices = append(devices, d)
		}
	}
	u.Devices = devices
	s.users[name] = u
	return nil
}
