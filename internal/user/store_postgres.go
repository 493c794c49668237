package user

import (
	"context"
	"database/sql"
	"errors"

	"presensi/internal/store"
)

// PostgresStore persists users and device ledgers in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, password_hash, role, group_name, max_devices, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.Name, u.PasswordHash, u.Role, u.Group, u.MaxDevices, u.CreatedAt)
	if store.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, name string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, password_hash, role, group_name, max_devices, created_at
		FROM users WHERE name = $1
	`, name)
	var u User
	if err := row.Scan(&u.Name, &u.PasswordHash, &u.Role, &u.Group, &u.MaxDevices, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	devices, err := s.devicesFor(ctx, name)
	if err != nil {
		return User{}, err
	}
	u.Devices = devices
	return u, nil
}

func (s *PostgresStore) devicesFor(ctx context.Context, name string) ([]DeviceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, first_used, usage_count
		FROM user_devices WHERE user_name = $1
		ORDER BY first_used
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var devices []DeviceEntry
	for rows.Next() {
		var d DeviceEntry
		if err := rows.Scan(&d.DeviceID, &d.FirstUsed, &d.UsageCount); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Update rewrites the user row and device ledger in one transaction.
func (s *PostgresStore) Update(ctx context.Context, u User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, role = $3, group_name = $4, max_devices = $5
		WHERE name = $1
	`, u.Name, u.PasswordHash, u.Role, u.Group, u.MaxDevices)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_devices WHERE user_name = $1`, u.Name); err != nil {
		return err
	}
	for _, d := range u.Devices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_devices (user_name, device_id, first_used, usage_count)
			VALUES ($1, $2, $3, $4)
		`, u.Name, d.DeviceID, d.FirstUsed, d.UsageCount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, password_hash, role, group_name, max_devices, created_at
		FROM users ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	index := make(map[string]int)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Name, &u.PasswordHash, &u.Role, &u.Group, &u.MaxDevices, &u.CreatedAt); err != nil {
			return nil, err
		}
		index[u.Name] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	devRows, err := s.db.QueryContext(ctx, `
		SELECT user_name, device_id, first_used, usage_count
		FROM user_devices ORDER BY first_used
	`)
	if err != nil {
		return nil, err
	}
	defer devRows.Close()
	for devRows.Next() {
		var name string
		var d DeviceEntry
		if err := devRows.Scan(&name, &d.DeviceID, &d.FirstUsed, &d.UsageCount); err != nil {
			return nil, err
		}
		if i, ok := index[name]; ok {
			users[i].Devices = append(users[i].Devices, d)
		}
	}
	return users, devRows.Err()
}

func (s *PostgresStore) RemoveDevice(ctx context.Context, name, deviceID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_devices WHERE user_name = $1 AND device_id = $2
	`, name, deviceID)
	return err
}
