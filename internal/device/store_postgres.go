package device

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists device bindings in Postgres. The device_id unique
// constraint makes Bind's insert-or-refresh a single conditional statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, deviceID string) (Binding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_id, owner_name, group_name, first_used, last_used
		FROM device_bindings WHERE device_id = $1
	`, deviceID)
	return scanBinding(row)
}

// Bind performs "insert if absent, else refresh if same owner" in one
// statement. The conditional DO UPDATE returns no row when the binding is
// owned by someone else; the existing owner is then read for the conflict.
func (s *PostgresStore) Bind(ctx context.Context, now time.Time, deviceID, owner, group string) (Binding, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO device_bindings (device_id, owner_name, group_name, first_used, last_used)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (device_id) DO UPDATE SET last_used = EXCLUDED.last_used
		WHERE device_bindings.owner_name = EXCLUDED.owner_name
		RETURNING device_id, owner_name, group_name, first_used, last_used
	`, deviceID, owner, group, now)

	b, err := scanBinding(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Binding{}, err
	}

	existing, getErr := s.Get(ctx, deviceID)
	if getErr != nil {
		return Binding{}, getErr
	}
	return Binding{}, ConflictError{DeviceID: deviceID, BoundTo: existing.Owner}
}

func (s *PostgresStore) Delete(ctx context.Context, deviceID string) (Binding, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM device_bindings WHERE device_id = $1
		RETURNING device_id, owner_name, group_name, first_used, last_used
	`, deviceID)
	return scanBinding(row)
}

func (s *PostgresStore) DeleteForOwner(ctx context.Context, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_bindings WHERE owner_name = $1`, owner)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, owner_name, group_name, first_used, last_used
		FROM device_bindings ORDER BY last_used DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Binding
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.DeviceID, &b.Owner, &b.Group, &b.FirstUsed, &b.LastUsed); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBinding(row *sql.Row) (Binding, error) {
	var b Binding
	if err := row.Scan(&b.DeviceID, &b.Owner, &b.Group, &b.FirstUsed, &b.LastUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Binding{}, ErrNotFound
		}
		return Binding{}, err
	}
	return b, nil
}
