package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no binding exists for a device identifier.
var ErrNotFound = errors.New("device binding not found")

// Binding is the exclusive ownership relation between a device and a user.
// A device identifier maps to exactly one owner system-wide.
type Binding struct {
	DeviceID  string    `json:"device_id"`
	Owner     string    `json:"owner"`
	Group     string    `json:"group,omitempty"`
	FirstUsed time.Time `json:"first_used"`
	LastUsed  time.Time `json:"last_used"`
}

// ConflictError reports a device already bound to a different user. It names
// the bound owner and nothing else.
type ConflictError struct {
	DeviceID string
	BoundTo  string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("device already bound to user %s", e.BoundTo)
}
