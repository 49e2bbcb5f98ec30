package officehours

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/pkg/civil"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, practitionerID uuid.UUID, weekday Weekday) (*OfficeHours, error) {
	if !weekday.Valid() {
		return nil, apperr.NewValidation("weekday", "must be between 0 (monday) and 6 (sunday)")
	}
	h, err := s.repo.Get(ctx, practitionerID, weekday)
	if err != nil {
		return nil, apperr.Storage("get office hours", err)
	}
	return h, nil
}

// ForDate returns the configuration for the weekday of d, or nil.
func (s *Service) ForDate(ctx context.Context, practitionerID uuid.UUID, d civil.Date) (*OfficeHours, error) {
	return s.Get(ctx, practitionerID, WeekdayOf(d.Weekday()))
}

func (s *Service) ListWeek(ctx context.Context, practitionerID uuid.UUID) ([]*OfficeHours, error) {
	week, err := s.repo.ListWeek(ctx, practitionerID)
	if err != nil {
		return nil, apperr.Storage("list office hours", err)
	}
	return week, nil
}

// UpsertWeek replaces the practitioner's weekly configuration. Nothing is
// written unless all seven entries are valid.
func (s *Service) UpsertWeek(ctx context.Context, practitionerID uuid.UUID, entries []Entry) ([]*OfficeHours, error) {
	if err := ValidateWeek(practitionerID, entries); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	week := make([]*OfficeHours, len(entries))
	for _, e := range entries {
		week[e.Weekday] = &OfficeHours{
			ID:             uuid.New(),
			PractitionerID: practitionerID,
			Weekday:        e.Weekday,
			OpenTime:       e.OpenTime,
			CloseTime:      e.CloseTime,
			VisitMinutes:   e.VisitMinutes,
			Active:         e.Active,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	if err := s.repo.ReplaceWeek(ctx, practitionerID, week); err != nil {
		return nil, apperr.Storage("replace office hours", err)
	}
	return week, nil
}

// ValidateWeek collects every violation across the batch. Inactive days are
// only checked for their weekday.
func ValidateWeek(practitionerID uuid.UUID, entries []Entry) error {
	v := &apperr.ValidationError{}
	if practitionerID == uuid.Nil {
		v.Add("practitioner_id", "is required")
	}
	if len(entries) != 7 {
		v.Add("entries", fmt.Sprintf("expected 7 entries, got %d", len(entries)))
		return v.Err()
	}

	seen := make(map[Weekday]bool, 7)
	for i, e := range entries {
		if !e.Weekday.Valid() {
			v.Add(fmt.Sprintf("entries[%d].weekday", i), "must be between 0 (monday) and 6 (sunday)")
			continue
		}
		if seen[e.Weekday] {
			v.Add(fmt.Sprintf("entries[%d].weekday", i), e.Weekday.String()+" appears more than once")
			continue
		}
		seen[e.Weekday] = true
		if !e.Active {
			continue
		}

		day := e.Weekday.String()
		if !e.OpenTime.Valid() || !e.CloseTime.Valid() {
			v.Add(day+".open_time", "times must fall within the day")
		} else if e.OpenTime >= e.CloseTime {
			v.Add(day+".close_time", "must be after open_time")
		}
		if e.VisitMinutes < MinVisitMinutes || e.VisitMinutes > MaxVisitMinutes {
			v.Add(day+".visit_minutes", fmt.Sprintf("must be between %d and %d", MinVisitMinutes, MaxVisitMinutes))
		}
	}
	return v.Err()
}
