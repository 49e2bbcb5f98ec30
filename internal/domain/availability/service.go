package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/odonto/odonto/internal/domain/officehours"
	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/pkg/civil"
)

var tracer = otel.Tracer("github.com/odonto/odonto/internal/domain/availability")

type HoursSource interface {
	ForDate(ctx context.Context, practitionerID uuid.UUID, d civil.Date) (*officehours.OfficeHours, error)
}

// BusyLister returns the time occupied by active, non-cancelled
// appointments of a practitioner on a date.
type BusyLister interface {
	ListBusy(ctx context.Context, practitionerID uuid.UUID, d civil.Date, exclude uuid.UUID) ([]Interval, error)
}

// Service computes bookable slots. It never writes and is safe for
// concurrent use.
type Service struct {
	hours HoursSource
	busy  BusyLister
	loc   *time.Location
}

func NewService(hours HoursSource, busy BusyLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{hours: hours, busy: busy, loc: loc}
}

func (s *Service) Location() *time.Location { return s.loc }

// ComputeSlots returns the free windows in ascending order. Dates before
// today, unconfigured days and inactive days produce an empty list.
func (s *Service) ComputeSlots(ctx context.Context, req Request) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "availability.ComputeSlots")
	defer span.End()
	span.SetAttributes(
		attribute.String("practitioner.id", req.PractitionerID.String()),
		attribute.String("date", req.Date.String()),
		attribute.Int("duration_minutes", req.DurationMinutes),
	)

	if err := validateRequest(req, true); err != nil {
		return nil, err
	}

	now := req.Now.In(s.loc)
	today := civil.DateOf(now)
	if req.Date.Before(today) {
		return []Slot{}, nil
	}

	grid, err := s.grid(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(grid) == 0 {
		return []Slot{}, nil
	}

	busy, err := s.busy.ListBusy(ctx, req.PractitionerID, req.Date, req.Exclude)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}

	free := make([]Slot, 0, len(grid))
	for _, slot := range grid {
		if req.Date == today && slot.Start.On(req.Date, s.loc).Before(now) {
			continue
		}
		if overlapsAny(slot.Interval(), busy) {
			continue
		}
		free = append(free, slot)
	}
	span.SetAttributes(attribute.Int("slots.free", len(free)))
	return free, nil
}

// Windows returns the office-hours grid for the date without removing busy
// or elapsed windows.
func (s *Service) Windows(ctx context.Context, req Request) ([]Slot, error) {
	if err := validateRequest(req, false); err != nil {
		return nil, err
	}
	grid, err := s.grid(ctx, req)
	if err != nil {
		return nil, err
	}
	if grid == nil {
		grid = []Slot{}
	}
	return grid, nil
}

func (s *Service) grid(ctx context.Context, req Request) ([]Slot, error) {
	hours, err := s.hours.ForDate(ctx, req.PractitionerID, req.Date)
	if err != nil {
		return nil, err
	}
	if hours == nil || !hours.Active {
		return nil, nil
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = hours.VisitMinutes
		if !ValidDuration(duration) {
			return nil, apperr.NewValidation("duration", durationMessage)
		}
	}
	return Partition(hours.OpenTime, hours.CloseTime, duration), nil
}

func validateRequest(req Request, needNow bool) error {
	v := &apperr.ValidationError{}
	if req.PractitionerID == uuid.Nil {
		v.Add("practitioner_id", "is required")
	}
	if req.Date.IsZero() {
		v.Add("date", "is required")
	}
	if needNow && req.Now.IsZero() {
		v.Add("now", "is required")
	}
	if req.DurationMinutes != 0 && !ValidDuration(req.DurationMinutes) {
		v.Add("duration", durationMessage)
	}
	return v.Err()
}

var durationMessage = fmt.Sprintf("must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)

func ValidDuration(minutes int) bool {
	return minutes >= MinDurationMinutes && minutes <= MaxDurationMinutes
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
