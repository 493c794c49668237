package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"presensi/internal/auth"
	"presensi/internal/device"
	"presensi/internal/user"
)

var now = time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)

var testCfg = Config{
	Issuer:         "presensi-test",
	SigningKey:     "test-signing-key",
	SessionTTL:     15 * time.Minute,
	DeviceTokenTTL: 7 * 24 * time.Hour,
}

type fixture struct {
	svc      *Service
	users    *user.MemoryStore
	registry *device.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := user.NewMemoryStore()
	registry := device.NewRegistry(device.NewMemoryStore(), users)
	return &fixture{
		svc:      NewService(testCfg, users, registry),
		users:    users,
		registry: registry,
	}
}

func (f *fixture) addStudent(t *testing.T, name, password, group string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	u, err := user.New(name, hash, user.RoleStudent, group, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
}

func TestLoginFirstVisitMintsDevice(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Ana", "rahasia", "B1")

	res, err := f.svc.Login(context.Background(), now, "Ana", "rahasia", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.DeviceID == "" {
		t.Fatal("no device id minted")
	}
	if res.User.DevicesCount != 1 || res.User.MaxDevices != 2 {
		t.Errorf("summary devices = %d/%d, want 1/2", res.User.DevicesCount, res.User.MaxDevices)
	}
	if !res.LoginTime.Equal(now) {
		t.Errorf("login time = %s, want %s", res.LoginTime, now)
	}

	claims, err := auth.ParseSession(res.Token, testCfg.SigningKey, testCfg.Issuer)
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if claims.Name != "Ana" || claims.Role != user.RoleStudent || claims.Group != "B1" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.DeviceID != res.DeviceID {
		t.Error("token not bound to issued device")
	}

	if err := f.registry.CheckConflict(context.Background(), res.DeviceID, "Ana"); err != nil {
		t.Errorf("binding not registered: %v", err)
	}
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Ana", "rahasia", "B1")

	_, unknownErr := f.svc.Login(context.Background(), now, "nobody", "rahasia", "")
	_, wrongErr := f.svc.Login(context.Background(), now, "Ana", "salah", "")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown user: err = %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Error("error messages reveal which field was wrong")
	}
}

func TestLoginReturningDeviceBumpsUsage(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Ana", "rahasia", "B1")
	ctx := context.Background()

	first, err := f.svc.Login(ctx, now, "Ana", "rahasia", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Login(ctx, now.Add(time.Hour), "Ana", "rahasia", first.DeviceID); err != nil {
		t.Fatalf("second login: %v", err)
	}

	u, err := f.users.Get(ctx, "Ana")
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Devices) != 1 {
		t.Fatalf("ledger length = %d, want 1", len(u.Devices))
	}
	if u.Devices[0].UsageCount != 2 {
		t.Errorf("usage = %d, want 2", u.Devices[0].UsageCount)
	}
}

func TestLoginThirdDeviceExceedsCapacity(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Ana", "rahasia", "B1")
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, now, "Ana", "rahasia", "browser-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Login(ctx, now, "Ana", "rahasia", "browser-2"); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Login(ctx, now, "Ana", "rahasia", "browser-3")
	var capErr user.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want CapacityError", err)
	}
	if capErr.Count != 2 || capErr.Max != 2 {
		t.Errorf("capacity = %d/%d, want 2/2", capErr.Count, capErr.Max)
	}

	// The rejected device must not have been bound.
	if err := f.registry.CheckConflict(ctx, "browser-3", "Budi"); err != nil {
		t.Errorf("third device was bound despite capacity failure: %v", err)
	}
}

func TestLoginForeignDeviceConflict(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Ana", "rahasia", "B1")
	f.addStudent(t, "Budi", "rahasia", "B2")
	ctx := context.Background()

	anaRes, err := f.svc.Login(ctx, now, "Ana", "rahasia", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Login(ctx, now.Add(time.Minute), "Budi", "rahasia", anaRes.DeviceID)
	var conflict device.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.BoundTo != "Ana" {
		t.Errorf("bound to = %s, want Ana", conflict.BoundTo)
	}

	// No mutation: Budi's ledger stays empty, Ana keeps the binding.
	budi, err := f.users.Get(ctx, "Budi")
	if err != nil {
		t.Fatal(err)
	}
	if len(budi.Devices) != 0 {
		t.Error("conflicting login mutated Budi's ledger")
	}
	if err := f.registry.CheckConflict(ctx, anaRes.DeviceID, "Ana"); err != nil {
		t.Errorf("Ana's binding disturbed: %v", err)
	}
}

func TestLoginEmptyInputs(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Login(context.Background(), now, "", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
