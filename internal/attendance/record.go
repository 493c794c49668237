package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Status of an attendance record. leave_pending is the only non-terminal
// state; it transitions exactly once, by administrator action.
type Status string

const (
	StatusPresent       Status = "present"
	StatusLeavePending  Status = "leave_pending"
	StatusLeaveApproved Status = "leave_approved"
	StatusAbsent        Status = "absent"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPresent, StatusLeavePending, StatusLeaveApproved, StatusAbsent:
		return true
	}
	return false
}

// Session is a named time-of-day attendance window.
type Session string

const (
	SessionMorning Session = "morning"
	SessionEvening Session = "evening"
	SessionClosed  Session = "closed"
)

// rank orders sessions within a day; evening outranks morning so that
// "most recent first" listings cannot rely on string comparison.
func (s Session) rank() int {
	if s == SessionEvening {
		return 1
	}
	return 0
}

var (
	// ErrNotFound is returned when no record exists under the given id.
	ErrNotFound = errors.New("attendance record not found")

	// ErrOutsideWindow is returned when presence-marking is attempted while
	// no session window is open.
	ErrOutsideWindow = errors.New("attendance only allowed during morning (06:00-11:59) or evening (12:00-18:59) sessions")

	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
)

// DuplicateError reports that a record already exists for the same
// (user, date, session) slot. Existing carries the stored record so clients
// can show it.
type DuplicateError struct {
	Existing Record
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("attendance already recorded for %s on %s (%s)", e.Existing.UserName, e.Existing.Date, e.Existing.Session)
}

// TransitionError reports an approve/reject attempt on a record that is not
// leave_pending.
type TransitionError struct {
	Current Status
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("cannot decide leave request: current status is %s", e.Current)
}

// Record is one attendance event, unique per (user, date, session).
type Record struct {
	ID        string    `json:"id"`
	UserName  string    `json:"name"`
	Group     string    `json:"group,omitempty"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Session   Session   `json:"session"`
	Status    Status    `json:"status"`
	SourceIP  string    `json:"source_ip,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	LoginTime time.Time `json:"login_time"`
	EventTime time.Time `json:"event_time"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
