package device

import (
	"context"
	"errors"
	"time"

	"presensi/internal/user"
)

// Registry is the source of truth for device ownership. The per-user device
// ledger is a cached view; conflict decisions are made here.
type Registry struct {
	store Store
	users user.Store
}

// NewRegistry creates a registry over the binding store. The user store is
// used to keep per-user ledgers consistent when bindings are removed.
func NewRegistry(store Store, users user.Store) *Registry {
	return &Registry{store: store, users: users}
}

// CheckConflict returns a ConflictError naming the bound owner when deviceID
// belongs to a different user, nil when unbound or bound to name.
func (r *Registry) CheckConflict(ctx context.Context, deviceID, name string) error {
	b, err := r.store.Get(ctx, deviceID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.Owner != name {
		return ConflictError{DeviceID: deviceID, BoundTo: b.Owner}
	}
	return nil
}

// Bind creates or refreshes the binding for deviceID. The store enforces
// ownership atomically, so a race lost after CheckConflict still surfaces as
// a ConflictError here rather than overwriting another user's binding.
func (r *Registry) Bind(ctx context.Context, now time.Time, deviceID, name, group string) (Binding, error) {
	return r.store.Bind(ctx, now, deviceID, name, group)
}

// Remove deletes a binding and prunes the device from the owner's ledger.
func (r *Registry) Remove(ctx context.Context, deviceID string) (Binding, error) {
	b, err := r.store.Delete(ctx, deviceID)
	if err != nil {
		return Binding{}, err
	}
	if err := r.users.RemoveDevice(ctx, b.Owner, deviceID); err != nil && !errors.Is(err, user.ErrNotFound) {
		return Binding{}, err
	}
	return b, nil
}

// RemoveForOwner deletes every binding owned by name. Used when an
// administrator deletes the user.
func (r *Registry) RemoveForOwner(ctx context.Context, name string) error {
	return r.store.DeleteForOwner(ctx, name)
}

// List returns all bindings, most recently used first.
func (r *Registry) List(ctx context.Context) ([]Binding, error) {
	return r.store.List(ctx)
}
