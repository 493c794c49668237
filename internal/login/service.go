// Package login composes credential verification, the device binding
// registry and the per-user device ledger into a single authenticated,
// device-bound session.
package login

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"presensi/internal/auth"
	"presensi/internal/device"
	"presensi/internal/user"
)

// ErrInvalidCredentials is returned for an unknown name or a wrong password.
// The two cases are indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("invalid name or password")

// Config carries token parameters for issued sessions.
type Config struct {
	Issuer         string
	SigningKey     string
	SessionTTL     time.Duration
	DeviceTokenTTL time.Duration
}

// Result is a successful login: a short-lived session credential plus the
// long-lived device identity token the client persists.
type Result struct {
	Token          string        `json:"token"`
	TokenExpiresAt time.Time     `json:"token_expires_at"`
	DeviceID       string        `json:"device_id"`
	DeviceTokenTTL time.Duration `json:"-"`
	LoginTime      time.Time     `json:"login_time"`
	User           user.Summary  `json:"user"`
}

// Service is the login orchestrator.
type Service struct {
	cfg      Config
	users    user.Store
	registry *device.Registry
}

// NewService creates an orchestrator over the user store and device registry.
func NewService(cfg Config, users user.Store, registry *device.Registry) *Service {
	return &Service{cfg: cfg, users: users, registry: registry}
}

// Login authenticates name/password and binds the session to a device.
// presentedDeviceID is the client's persisted device token, empty on a
// first-ever visit. Each step is a hard gate: a failure aborts before any
// later step takes effect, and the registry bind happens before the user
// ledger is persisted so a lost binding race leaves no partial state.
func (s *Service) Login(ctx context.Context, now time.Time, name, password, presentedDeviceID string) (Result, error) {
	if name == "" || password == "" {
		return Result{}, ErrInvalidCredentials
	}

	u, err := s.users.Get(ctx, name)
	if errors.Is(err, user.ErrNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Result{}, ErrInvalidCredentials
	}

	deviceID := presentedDeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	if err := s.registry.CheckConflict(ctx, deviceID, u.Name); err != nil {
		return Result{}, err
	}

	var updated user.User
	if u.HasDevice(deviceID) {
		updated, err = u.WithDeviceUsage(deviceID)
	} else {
		updated, err = u.WithNewDevice(deviceID, now)
	}
	if err != nil {
		return Result{}, err
	}

	// The store revalidates ownership atomically; a conflicting first login
	// that won the race since CheckConflict surfaces here.
	if _, err := s.registry.Bind(ctx, now, deviceID, u.Name, u.Group); err != nil {
		return Result{}, err
	}

	if err := s.users.Update(ctx, updated); err != nil {
		return Result{}, err
	}

	sess, err := auth.IssueSession(updated.Name, updated.Role, updated.Group, deviceID,
		s.cfg.Issuer, s.cfg.SigningKey, s.cfg.SessionTTL, now)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Token:          sess.Token,
		TokenExpiresAt: sess.ExpiresAt,
		DeviceID:       deviceID,
		DeviceTokenTTL: s.cfg.DeviceTokenTTL,
		LoginTime:      now,
		User:           updated.Summary(),
	}, nil
}
