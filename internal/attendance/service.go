package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Query caps matching the admin dashboard and student history pages.
const (
	historyLimit = 50
	searchLimit  = 500
)

// Service runs the attendance state machine over a Store. Callers pass the
// current time explicitly so window decisions are deterministic under test.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// MarkPresent records presence for the session window open at now. The
// (user, date, session) slot is claimed by the store's unique constraint;
// a lost race surfaces as DuplicateError, never a double record.
func (s *Service) MarkPresent(ctx context.Context, now time.Time, name, group, deviceID, sourceIP string, loginTime time.Time) (Record, error) {
	if name == "" || deviceID == "" || sourceIP == "" {
		return Record{}, fmt.Errorf("%w: name, device and source address required", ErrInvalidInput)
	}
	sess := ClassifySession(now)
	if sess == SessionClosed {
		return Record{}, ErrOutsideWindow
	}
	if loginTime.IsZero() {
		loginTime = now
	}
	return s.store.Insert(ctx, Record{
		ID:        uuid.NewString(),
		UserName:  name,
		Group:     group,
		Date:      DateOf(now),
		Session:   sess,
		Status:    StatusPresent,
		SourceIP:  sourceIP,
		DeviceID:  deviceID,
		LoginTime: loginTime,
		EventTime: now,
	})
}

// RequestLeave files a leave request for a target date and session. No
// window or location gate applies; the slot uniqueness still does.
func (s *Service) RequestLeave(ctx context.Context, now time.Time, name, group, deviceID, date string, sess Session, reason string, loginTime time.Time) (Record, error) {
	if name == "" {
		return Record{}, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Record{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if sess != SessionMorning && sess != SessionEvening {
		return Record{}, fmt.Errorf("%w: session must be %s or %s", ErrInvalidInput, SessionMorning, SessionEvening)
	}
	if reason == "" {
		return Record{}, fmt.Errorf("%w: reason required", ErrInvalidInput)
	}
	if loginTime.IsZero() {
		loginTime = now
	}
	return s.store.Insert(ctx, Record{
		ID:        uuid.NewString(),
		UserName:  name,
		Group:     group,
		Date:      date,
		Session:   sess,
		Status:    StatusLeavePending,
		DeviceID:  deviceID,
		LoginTime: loginTime,
		EventTime: now,
		Reason:    reason,
	})
}

// Approve moves a leave_pending record to leave_approved.
func (s *Service) Approve(ctx context.Context, id string) (Record, error) {
	return s.store.Transition(ctx, id, StatusLeaveApproved)
}

// Reject moves a leave_pending record to absent. The resulting record is terminal.
func (s *Service) Reject(ctx context.Context, id string) (Record, error) {
	return s.store.Transition(ctx, id, StatusAbsent)
}

// History returns the user's own records, most recent first.
func (s *Service) History(ctx context.Context, name string) ([]Record, error) {
	return s.store.ListByUser(ctx, name, historyLimit)
}

// Search returns records matching the admin filter, capped for dashboards.
func (s *Service) Search(ctx context.Context, f Filter) ([]Record, error) {
	if f.Session != "" && f.Session != SessionMorning && f.Session != SessionEvening {
		return nil, fmt.Errorf("%w: unknown session %q", ErrInvalidInput, f.Session)
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if f.Limit <= 0 || f.Limit > searchLimit {
		f.Limit = searchLimit
	}
	return s.store.List(ctx, f)
}

// Count returns the number of records matching the filter.
func (s *Service) Count(ctx context.Context, f Filter) (int, error) {
	return s.store.Count(ctx, f)
}
