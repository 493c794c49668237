package user

import (
	"errors"
	"fmt"
	"time"
)

// Roles recognized by the service.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// DefaultMaxDevices is the per-user device capacity unless overridden.
const DefaultMaxDevices = 2

var (
	// ErrNotFound is returned when no user exists under the given name.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateName is returned when creating a user whose name is taken.
	ErrDuplicateName = errors.New("user name already taken")

	// ErrInvalidInput is returned for missing or malformed user fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeviceNotListed is returned when an operation targets a device the
	// user's ledger does not contain.
	ErrDeviceNotListed = errors.New("device not in user ledger")
)

// CapacityError reports a device ledger at capacity.
type CapacityError struct {
	Count int
	Max   int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("device capacity reached (%d/%d)", e.Count, e.Max)
}

// DeviceEntry is one recognized device in a user's ledger, ordered by first use.
type DeviceEntry struct {
	DeviceID   string    `json:"device_id"`
	FirstUsed  time.Time `json:"first_used"`
	UsageCount int       `json:"usage_count"`
}

// User is an account that can authenticate and, for students, mark attendance.
type User struct {
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Role         string        `json:"role"`
	Group        string        `json:"group,omitempty"`
	Devices      []DeviceEntry `json:"devices"`
	MaxDevices   int           `json:"max_devices"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Summary is the public view of a user, safe to return to clients.
type Summary struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Group        string `json:"group,omitempty"`
	DevicesCount int    `json:"devices_count"`
	MaxDevices   int    `json:"max_devices"`
}

// New validates and builds a user. Group is required for students and
// silently dropped for admins.
func New(name, passwordHash, role, group string, now time.Time) (User, error) {
	if name == "" {
		return User{}, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if passwordHash == "" {
		return User{}, fmt.Errorf("%w: password required", ErrInvalidInput)
	}
	if role != RoleAdmin && role != RoleStudent {
		return User{}, fmt.Errorf("%w: role must be %s or %s", ErrInvalidInput, RoleAdmin, RoleStudent)
	}
	if role == RoleStudent && group == "" {
		return User{}, fmt.Errorf("%w: group required for students", ErrInvalidInput)
	}
	if role == RoleAdmin {
		group = ""
	}
	return User{
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		Group:        group,
		MaxDevices:   DefaultMaxDevices,
		CreatedAt:    now,
	}, nil
}

// HasDevice reports whether the ledger already lists deviceID.
func (u User) HasDevice(deviceID string) bool {
	for _, d := range u.Devices {
		if d.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// WithNewDevice returns a copy of the user with deviceID appended to the
// ledger. The ledger never exceeds MaxDevices and never holds duplicates.
func (u User) WithNewDevice(deviceID string, now time.Time) (User, error) {
	if deviceID == "" {
		return User{}, fmt.Errorf("%w: device id required", ErrInvalidInput)
	}
	if u.HasDevice(deviceID) {
		return User{}, fmt.Errorf("%w: device already listed", ErrInvalidInput)
	}
	if len(u.Devices) >= u.MaxDevices {
		return User{}, CapacityError{Count: len(u.Devices), Max: u.MaxDevices}
	}
	devices := make([]DeviceEntry, len(u.Devices), len(u.Devices)+1)
	copy(devices, u.Devices)
	u.Devices = append(devices, DeviceEntry{DeviceID: deviceID, FirstUsed: now, UsageCount: 1})
	return u, nil
}

// WithDeviceUsage returns a copy of the user with the usage counter of an
// already-listed device incremented.
func (u User) WithDeviceUsage(deviceID string) (User, error) {
	devices := make([]DeviceEntry, len(u.Devices))
	copy(devices, u.Devices)
	for i := range devices {
		if devices[i].DeviceID == deviceID {
			devices[i].UsageCount++
			u.Devices = devices
			return u, nil
		}
	}
	return User{}, ErrDeviceNotListed
}

// Summary returns the public view of the user. The password hash is never included.
func (u User) Summary() Summary {
	return Summary{
		Name:         u.Name,
		Role:         u.Role,
		Group:        u.Group,
		DevicesCount: len(u.Devices),
		MaxDevices:   u.MaxDevices,
	}
}
