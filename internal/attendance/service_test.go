package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var morning = time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)

func newTestService() *Service {
	return NewService(NewMemoryStore())
}

func TestMarkPresentCreatesRecord(t *testing.T) {
	svc := newTestService()
	rec, err := svc.MarkPresent(context.Background(), morning, "Ana", "B1", "dev-1", "103.209.9.15", morning.Add(-time.Minute))
	if err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Errorf("status = %s, want %s", rec.Status, StatusPresent)
	}
	if rec.Session != SessionMorning {
		t.Errorf("session = %s, want %s", rec.Session, SessionMorning)
	}
	if rec.Date != "2024-05-06" {
		t.Errorf("date = %s, want 2024-05-06", rec.Date)
	}
	if rec.SourceIP != "103.209.9.15" {
		t.Errorf("source ip = %s", rec.SourceIP)
	}
	if rec.ID == "" {
		t.Error("record id not assigned")
	}
}

func TestMarkPresentOutsideWindow(t *testing.T) {
	svc := newTestService()
	night := time.Date(2024, 5, 6, 22, 0, 0, 0, time.UTC)
	_, err := svc.MarkPresent(context.Background(), night, "Ana", "B1", "dev-1", "103.209.9.15", night)
	if !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("err = %v, want ErrOutsideWindow", err)
	}
}

func TestMarkPresentDuplicateEchoesExisting(t *testing.T) {
	svc := newTestService()
	first, err := svc.MarkPresent(context.Background(), morning, "Ana", "B1", "dev-1", "103.209.9.15", morning)
	if err != nil {
		t.Fatalf("first MarkPresent: %v", err)
	}

	_, err = svc.MarkPresent(context.Background(), morning.Add(time.Hour), "Ana", "B1", "dev-1", "103.209.9.15", morning)
	var dup DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", err)
	}
	if dup.Existing.ID != first.ID {
		t.Errorf("existing id = %s, want %s", dup.Existing.ID, first.ID)
	}
}

func TestDuplicateAcrossPaths(t *testing.T) {
	// A leave request occupies the slot regardless of which path created it.
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.RequestLeave(ctx, morning, "Budi", "B2", "dev-2", "2024-05-06", SessionMorning, "sick", morning); err != nil {
		t.Fatalf("RequestLeave: %v", err)
	}
	_, err := svc.MarkPresent(ctx, morning, "Budi", "B2", "dev-2", "103.209.9.20", morning)
	var dup DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("present after leave: err = %v, want DuplicateError", err)
	}

	_, err = svc.RequestLeave(ctx, morning, "Budi", "B2", "dev-2", "2024-05-06", SessionMorning, "still sick", morning)
	if !errors.As(err, &dup) {
		t.Fatalf("second leave: err = %v, want DuplicateError", err)
	}
}

func TestMarkPresentConcurrentExactlyOneWins(t *testing.T) {
	svc := newTestService()
	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.MarkPresent(context.Background(), morning, "Ana", "B1", "dev-1", "103.209.9.15", morning)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		var dupErr DuplicateError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &dupErr):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != attempts-1 {
		t.Fatalf("got %d successes and %d duplicates, want 1 and %d", ok, dup, attempts-1)
	}
}

func TestRequestLeaveValidation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name    string
		date    string
		session Session
		reason  string
	}{
		{"bad date", "01-05-2024", SessionMorning, "sick"},
		{"closed session", "2024-05-01", SessionClosed, "sick"},
		{"unknown session", "2024-05-01", Session("night"), "sick"},
		{"missing reason", "2024-05-01", SessionEvening, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestLeave(context.Background(), morning, "Budi", "B2", "dev-2", tt.date, tt.session, tt.reason, morning)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLeaveLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.RequestLeave(ctx, morning, "Budi", "B2", "dev-2", "2024-05-01", SessionEvening, "sick", morning)
	if err != nil {
		t.Fatalf("RequestLeave: %v", err)
	}
	if rec.Status != StatusLeavePending {
		t.Fatalf("status = %s, want %s", rec.Status, StatusLeavePending)
	}

	approved, err := svc.Approve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != StatusLeaveApproved {
		t.Fatalf("status = %s, want %s", approved.Status, StatusLeaveApproved)
	}

	// leave_approved is terminal: a second decision is rejected.
	_, err = svc.Approve(ctx, rec.ID)
	var bad TransitionError
	if !errors.As(err, &bad) {
		t.Fatalf("second approve: err = %v, want TransitionError", err)
	}
	if bad.Current != StatusLeaveApproved {
		t.Errorf("current = %s, want %s", bad.Current, StatusLeaveApproved)
	}
}

func TestRejectProducesTerminalAbsent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.RequestLeave(ctx, morning, "Budi", "B2", "dev-2", "2024-05-01", SessionEvening, "sick", morning)
	if err != nil {
		t.Fatalf("RequestLeave: %v", err)
	}

	rejected, err := svc.Reject(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != StatusAbsent {
		t.Fatalf("status = %s, want %s", rejected.Status, StatusAbsent)
	}

	var bad TransitionError
	if _, err := svc.Approve(ctx, rec.ID); !errors.As(err, &bad) {
		t.Fatalf("approve after reject: err = %v, want TransitionError", err)
	}
	if _, err := svc.Reject(ctx, rec.ID); !errors.As(err, &bad) {
		t.Fatalf("double reject: err = %v, want TransitionError", err)
	}
}

func TestDecideOnPresentRecordFails(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.MarkPresent(ctx, morning, "Ana", "B1", "dev-1", "103.209.9.15", morning)
	if err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}
	var bad TransitionError
	if _, err := svc.Approve(ctx, rec.ID); !errors.As(err, &bad) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if bad.Current != StatusPresent {
		t.Errorf("current = %s, want %s", bad.Current, StatusPresent)
	}
}

func TestDecideUnknownRecord(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Approve(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	day1 := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 7, 7, 0, 0, 0, time.UTC)
	if _, err := svc.MarkPresent(ctx, day1, "Ana", "B1", "dev-1", "103.209.9.15", day1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPresent(ctx, day2, "Ana", "B1", "dev-1", "103.209.9.15", day2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPresent(ctx, day1, "Budi", "B2", "dev-2", "103.209.9.16", day1); err != nil {
		t.Fatal(err)
	}

	records, err := svc.History(ctx, "Ana")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Date != "2024-05-07" || records[1].Date != "2024-05-06" {
		t.Errorf("order = %s, %s; want most recent first", records[0].Date, records[1].Date)
	}
}

func TestHistorySameDayEveningBeforeMorning(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Morning check-in first, then the same day's evening session.
	evening := morning.Add(6 * time.Hour)
	if _, err := svc.MarkPresent(ctx, morning, "Ana", "B1", "dev-1", "103.209.9.15", morning); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPresent(ctx, evening, "Ana", "B1", "dev-1", "103.209.9.15", evening); err != nil {
		t.Fatal(err)
	}

	records, err := svc.History(ctx, "Ana")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Session != SessionEvening || records[1].Session != SessionMorning {
		t.Errorf("order = %s, %s; want evening before morning", records[0].Session, records[1].Session)
	}
}

func TestSearchFilters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.MarkPresent(ctx, morning, "Ana", "B1", "dev-1", "103.209.9.15", morning); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RequestLeave(ctx, morning, "Budi", "B2", "dev-2", "2024-05-06", SessionEvening, "sick", morning); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 2},
		{"by group", Filter{Group: "B1"}, 1},
		{"by status", Filter{Status: StatusLeavePending}, 1},
		{"by session", Filter{Session: SessionMorning}, 1},
		{"by date no match", Filter{Date: "2024-05-07"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := svc.Search(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}

	if _, err := svc.Search(ctx, Filter{Status: Status("gone")}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad status filter: err = %v, want ErrInvalidInput", err)
	}
}
