package attendance

import (
	"context"
	"sort"
	"sync"
)

// Filter narrows admin attendance queries. Zero values match everything.
type Filter struct {
	Date    string
	Group   string
	Session Session
	Status  Status
	Limit   int
}

// Store persists attendance records. Insert must enforce the
// (user, date, session) uniqueness constraint atomically; a duplicate attempt
// fails deterministically instead of overwriting.
type Store interface {
	// Insert stores a new record, or returns DuplicateError carrying the
	// record that already occupies the slot.
	Insert(ctx context.Context, rec Record) (Record, error)
	// Get returns a record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Transition moves a leave_pending record to the given terminal status.
	// Returns ErrNotFound when the id is unknown and TransitionError when the
	// record is not leave_pending. The status check and the write are atomic.
	Transition(ctx context.Context, id string, to Status) (Record, error)
	// ListByUser returns the user's records, most recent first.
	ListByUser(ctx context.Context, name string, limit int) ([]Record, error)
	// List returns records matching the filter, most recent first.
	List(ctx context.Context, f Filter) ([]Record, error)
	// Count returns the number of records matching the filter.
	Count(ctx context.Context, f Filter) (int, error)
}

type slotKey struct {
	name    string
	date    string
	session Session
}

// MemoryStore is a mutex-serialized in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]Record
	bySlot  map[slotKey]string
	inserts []string // insertion order for stable sorting ties
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Record), bySlot: make(map[slotKey]string)}
}

func (s *MemoryStore) Insert(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey{name: rec.UserName, date: rec.Date, session: rec.Session}
	if id, ok := s.bySlot[key]; ok {
		return Record{}, DuplicateError{Existing: s.byID[id]}
	}
	s.byID[rec.ID] = rec
	s.bySlot[key] = rec.ID
	s.inserts = append(s.inserts, rec.ID)
	return rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, to Status) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status != StatusLeavePending {
		return Record{}, TransitionError{Current: rec.Status}
	}
	rec.Status = to
	s.byID[id] = rec
	return rec, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, name string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, id := range s.inserts {
		if rec := s.byID[id]; rec.UserName == name {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return capRecords(out, limit), nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, id := range s.inserts {
		if rec := s.byID[id]; f.matches(rec) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return capRecords(out, f.Limit), nil
}

func (s *MemoryStore) Count(ctx context.Context, f Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.byID {
		if f.matches(rec) {
			n++
		}
	}
	return n, nil
}

func (f Filter) matches(rec Record) bool {
	if f.Date != "" && rec.Date != f.Date {
		return false
	}
	if f.Group != "" && rec.Group != f.Group {
		return false
	}
	if f.Session != "" && rec.Session != f.Session {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}

func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date > recs[j].Date
		}
		if recs[i].Session != recs[j].Session {
			return recs[i].Session.rank() > recs[j].Session.rank()
		}
		return recs[i].EventTime.After(recs[j].EventTime)
	})
}

func capRecords(recs []Record, limit int) []Record {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
