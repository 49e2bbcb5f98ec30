// Package rescheduling moves an appointment to a new date and start time
// while keeping the lineage between the original and its replacement.
package rescheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/odonto/odonto/internal/domain/appointment"
	"github.com/odonto/odonto/internal/domain/availability"
	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/pkg/civil"
)

var tracer = otel.Tracer("github.com/odonto/odonto/internal/domain/rescheduling")

type AppointmentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Supersede(ctx context.Context, id uuid.UUID, newDate civil.Date, newStart civil.TimeOfDay) (*appointment.Appointment, error)
}

type SlotSource interface {
	ComputeSlots(ctx context.Context, req availability.Request) ([]availability.Slot, error)
	Windows(ctx context.Context, req availability.Request) ([]availability.Slot, error)
}

type Service struct {
	store AppointmentStore
	slots SlotSource
	loc   *time.Location
	now   func() time.Time
}

func NewService(store AppointmentStore, slots SlotSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, slots: slots, loc: loc, now: time.Now}
}

// Reschedule supersedes the appointment with a new one at newDate/newStart.
// The replacement keeps the original duration; the original becomes
// inactive.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate civil.Date, newStart civil.TimeOfDay) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "rescheduling.Reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.id", id.String()),
		attribute.String("date", newDate.String()),
		attribute.String("start_time", newStart.String()),
	)

	v := &apperr.ValidationError{}
	if newDate.IsZero() {
		v.Add("date", "is required")
	}
	if !newStart.Valid() || newStart.Minutes() >= civil.MinutesPerDay {
		v.Add("start_time", "must be a time of day between 00:00 and 23:59")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	orig, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	today := civil.DateOf(now)
	if orig.StartsAt(s.loc).Before(now) {
		return nil, &apperr.PastDateError{Message: "cannot reschedule an appointment that has already started"}
	}
	if newDate.Before(today) {
		return nil, &apperr.PastDateError{Message: "new date " + newDate.String() + " is in the past"}
	}
	if newDate == orig.Date && newStart == orig.StartTime {
		return nil, apperr.NewValidation("", "no changes requested")
	}
	if !orig.Active {
		return nil, &apperr.StateError{Current: string(orig.Status), Requested: string(appointment.StatusRescheduled),
			Reason: "appointment has already been rescheduled"}
	}
	if !orig.Status.Reschedulable() {
		return nil, &apperr.StateError{Current: string(orig.Status), Requested: string(appointment.StatusRescheduled)}
	}

	req := availability.Request{
		PractitionerID:  orig.PractitionerID,
		Date:            newDate,
		DurationMinutes: orig.DurationMinutes,
		Now:             now,
		Exclude:         orig.ID,
	}
	windows, err := s.slots.Windows(ctx, req)
	if err != nil {
		return nil, err
	}
	if !containsStart(windows, newStart) {
		return nil, apperr.NewValidation("start_time",
			newStart.String()+" is not a bookable slot start on "+newDate.String())
	}
	free, err := s.slots.ComputeSlots(ctx, req)
	if err != nil {
		return nil, err
	}
	if !containsStart(free, newStart) {
		if newStart.On(newDate, s.loc).Before(now) {
			return nil, &apperr.PastDateError{Message: "new start time has already passed"}
		}
		return nil, &apperr.ConflictError{Message: newDate.String() + " " + newStart.String() + " is no longer available"}
	}

	next, err := s.store.Supersede(ctx, id, newDate, newStart)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("appointment_id", orig.ID.String()).
		Str("replacement_id", next.ID.String()).
		Str("date", newDate.String()).
		Str("start_time", newStart.String()).
		Msg("appointment rescheduled")
	return next, nil
}

func containsStart(slots []availability.Slot, start civil.TimeOfDay) bool {
	for _, sl := range slots {
		if sl.Start == start {
			return true
		}
	}
	return false
}
