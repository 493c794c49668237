package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"presensi/internal/store"
)

const recordColumns = `id, user_name, group_name, session_date, session, status, source_ip, device_id, login_time, event_time, reason, created_at`

// PostgresStore persists attendance records in Postgres. The composite unique
// index on (user_name, session_date, session) is what enforces the one-record
// -per-slot invariant; Insert translates its violation instead of pre-reading.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, user_name, group_name, session_date, session, status, source_ip, device_id, login_time, event_time, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at
	`, rec.ID, rec.UserName, rec.Group, rec.Date, rec.Session, rec.Status,
		rec.SourceIP, rec.DeviceID, rec.LoginTime, rec.EventTime, rec.Reason)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			existing, getErr := s.getBySlot(ctx, rec.UserName, rec.Date, rec.Session)
			if getErr != nil {
				return Record{}, getErr
			}
			return Record{}, DuplicateError{Existing: existing}
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (s *PostgresStore) getBySlot(ctx context.Context, name, date string, session Session) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE user_name = $1 AND session_date = $2 AND session = $3
	`, name, date, session)
	return scanRecord(row)
}

// Transition is a conditional update: only a leave_pending row is changed.
// Zero rows affected is disambiguated into not-found vs wrong-state by a
// follow-up read.
func (s *PostgresStore) Transition(ctx context.Context, id string, to Status) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE attendance_records SET status = $2
		WHERE id = $1 AND status = $3
		RETURNING `+recordColumns+`
	`, id, to, StatusLeavePending)

	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return Record{}, getErr
	}
	return Record{}, TransitionError{Current: current.Status}
}

func (s *PostgresStore) ListByUser(ctx context.Context, name string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE user_name = $1
		ORDER BY session_date DESC, (session = 'evening') DESC, event_time DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// filterWhere renders the filter as a WHERE clause (possibly empty) plus its
// bind arguments.
func filterWhere(f Filter) (string, []any) {
	var args []any
	var clauses []string
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, clause+placeholder(len(args)))
	}
	if f.Date != "" {
		add("session_date = ", f.Date)
	}
	if f.Group != "" {
		add("group_name = ", f.Group)
	}
	if f.Session != "" {
		add("session = ", f.Session)
	}
	if f.Status != "" {
		add("status = ", f.Status)
	}
	var where string
	for i, clause := range clauses {
		if i == 0 {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}
	return where, args
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Record, error) {
	where, args := filterWhere(f)
	query := `SELECT ` + recordColumns + ` FROM attendance_records` + where
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)
	query += " ORDER BY session_date DESC, (session = 'evening') DESC, event_time DESC LIMIT " + placeholder(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := filterWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM attendance_records`+where, args...).Scan(&n)
	return n, err
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.UserName, &rec.Group, &rec.Date, &rec.Session, &rec.Status,
		&rec.SourceIP, &rec.DeviceID, &rec.LoginTime, &rec.EventTime, &rec.Reason, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserName, &rec.Group, &rec.Date, &rec.Session, &rec.Status,
			&rec.SourceIP, &rec.DeviceID, &rec.LoginTime, &rec.EventTime, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
