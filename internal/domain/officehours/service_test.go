package officehours

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/pkg/civil"
)

func newTestService() *Service {
	return NewService(NewRepoMemory())
}

// standardWeek opens Monday to Friday 08:00-12:00 with 30 minute visits.
func standardWeek() []Entry {
	week := make([]Entry, 7)
	for d := Monday; d <= Sunday; d++ {
		week[d] = Entry{Weekday: d}
		if d <= Friday {
			week[d] = Entry{
				Weekday:      d,
				OpenTime:     civil.MustTime("08:00"),
				CloseTime:    civil.MustTime("12:00"),
				VisitMinutes: 30,
				Active:       true,
			}
		}
	}
	return week
}

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		in   time.Weekday
		want Weekday
	}{
		{time.Monday, Monday},
		{time.Saturday, Saturday},
		{time.Sunday, Sunday},
	}
	for _, tt := range tests {
		if got := WeekdayOf(tt.in); got != tt.want {
			t.Errorf("WeekdayOf(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestUpsertWeek(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	pid := uuid.New()

	week, err := svc.UpsertWeek(ctx, pid, standardWeek())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week))
	}

	monday, err := svc.Get(ctx, pid, Monday)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if monday == nil || !monday.Active || monday.VisitMinutes != 30 {
		t.Errorf("unexpected monday: %+v", monday)
	}

	sunday, _ := svc.Get(ctx, pid, Sunday)
	if sunday == nil || sunday.Active {
		t.Errorf("expected inactive sunday, got %+v", sunday)
	}
}

func TestUpsertWeek_ReplaceKeepsIdentity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	pid := uuid.New()

	first, _ := svc.UpsertWeek(ctx, pid, standardWeek())
	entries := standardWeek()
	entries[Monday].Active = false
	second, err := svc.UpsertWeek(ctx, pid, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second[Monday].ID != first[Monday].ID {
		t.Error("expected monday to keep its id")
	}
	monday, _ := svc.Get(ctx, pid, Monday)
	if monday.Active {
		t.Error("expected monday to be deactivated")
	}
}

func TestUpsertWeek_ReportsEveryViolation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	pid := uuid.New()

	entries := standardWeek()
	entries[Monday].CloseTime = civil.MustTime("07:00")
	entries[Wednesday].VisitMinutes = 10
	entries[Friday].VisitMinutes = 600
	entries[Sunday] = Entry{Weekday: Sunday, VisitMinutes: 0, Active: false}

	_, err := svc.UpsertWeek(ctx, pid, entries)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"monday.close_time", "wednesday.visit_minutes", "friday.visit_minutes"} {
		if !fields[want] {
			t.Errorf("expected violation for %s, got %+v", want, ve.Fields)
		}
	}
	if len(ve.Fields) != 3 {
		t.Errorf("expected 3 violations, got %d", len(ve.Fields))
	}

	if week, _ := svc.ListWeek(ctx, pid); len(week) != 0 {
		t.Errorf("expected nothing written, got %d days", len(week))
	}
}

func TestUpsertWeek_Shape(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.UpsertWeek(ctx, uuid.New(), standardWeek()[:5]); err == nil {
		t.Error("expected error for 5 entries")
	}

	dup := standardWeek()
	dup[Sunday].Weekday = Monday
	if _, err := svc.UpsertWeek(ctx, uuid.New(), dup); err == nil {
		t.Error("expected error for duplicate weekday")
	}

	if _, err := svc.UpsertWeek(ctx, uuid.Nil, standardWeek()); err == nil {
		t.Error("expected error for missing practitioner")
	}
}

func TestForDate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	pid := uuid.New()
	svc.UpsertWeek(ctx, pid, standardWeek())

	// 2026-03-02 is a Monday, 2026-03-08 a Sunday.
	h, err := svc.ForDate(ctx, pid, civil.Date{Year: 2026, Month: time.March, Day: 2})
	if err != nil || h == nil || h.Weekday != Monday {
		t.Fatalf("expected monday hours, got %+v, %v", h, err)
	}
	h, _ = svc.ForDate(ctx, pid, civil.Date{Year: 2026, Month: time.March, Day: 8})
	if h == nil || h.Active {
		t.Errorf("expected inactive sunday, got %+v", h)
	}
	none, err := svc.ForDate(ctx, uuid.New(), civil.Date{Year: 2026, Month: time.March, Day: 2})
	if err != nil || none != nil {
		t.Errorf("expected no hours for unknown practitioner, got %+v, %v", none, err)
	}
}

func TestOfficeHours_Covers(t *testing.T) {
	h := &OfficeHours{OpenTime: civil.MustTime("08:00"), CloseTime: civil.MustTime("12:00"), Active: true}
	if !h.Covers(civil.MustTime("11:30"), civil.MustTime("12:00")) {
		t.Error("expected last window to be covered")
	}
	if h.Covers(civil.MustTime("11:45"), civil.MustTime("12:15")) {
		t.Error("window past close should not be covered")
	}
	h.Active = false
	if h.Covers(civil.MustTime("09:00"), civil.MustTime("09:30")) {
		t.Error("inactive day covers nothing")
	}
}
