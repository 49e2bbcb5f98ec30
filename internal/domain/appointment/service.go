package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/odonto/odonto/internal/domain/availability"
	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/events"
	"github.com/odonto/odonto/pkg/civil"
)

var tracer = otel.Tracer("github.com/odonto/odonto/internal/domain/appointment")

type Service struct {
	repo      Repository
	hours     availability.HoursSource
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces the wall clock used for past-date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, hours availability.HoursSource, publisher events.Publisher, loc *time.Location, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Service{repo: repo, hours: hours, publisher: publisher, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// Now returns the service clock in the practice's location.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Create books a new appointment. Field checks run before any storage access;
// the overlap check is repeated under the practitioner lock.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.Create")
	defer span.End()

	if err := validateInput(in); err != nil {
		return nil, err
	}

	hours, err := s.hours.ForDate(ctx, in.PractitionerID, in.Date)
	if err != nil {
		return nil, apperr.Storage("get office hours", err)
	}
	if hours == nil || !hours.Active {
		return nil, apperr.NewValidation("date", "practitioner has no office hours on "+in.Date.Weekday().String())
	}

	duration := in.DurationMinutes
	if duration == 0 {
		duration = hours.VisitMinutes
		if !availability.ValidDuration(duration) {
			return nil, apperr.NewValidation("duration_minutes", durationMessage)
		}
	}
	if !in.OverrideDuration && duration != hours.VisitMinutes {
		return nil, apperr.NewValidation("duration_minutes",
			fmt.Sprintf("must match the configured visit duration of %d minutes", hours.VisitMinutes))
	}
	end := in.StartTime.Add(duration)
	if !hours.Covers(in.StartTime, end) {
		return nil, apperr.NewValidation("start_time",
			fmt.Sprintf("%s-%s is outside office hours %s-%s", in.StartTime, end, hours.OpenTime, hours.CloseTime))
	}

	now := s.Now()
	if in.StartTime.On(in.Date, s.loc).Before(now) {
		return nil, &apperr.PastDateError{Message: "appointment start is in the past"}
	}

	utc := now.UTC()
	a := &Appointment{
		ID:              uuid.New(),
		PatientID:       in.PatientID,
		PractitionerID:  in.PractitionerID,
		Date:            in.Date,
		StartTime:       in.StartTime,
		EndTime:         end,
		DurationMinutes: duration,
		ConsultType:     in.ConsultType,
		Status:          StatusScheduled,
		Reason:          strings.TrimSpace(in.Reason),
		Notes:           strings.TrimSpace(in.Notes),
		Active:          true,
		CreatedAt:       utc,
		UpdatedAt:       utc,
	}
	span.SetAttributes(attribute.String("appointment.id", a.ID.String()))

	err = s.repo.WithPractitionerLock(ctx, a.PractitionerID, func(ctx context.Context) error {
		if err := s.checkOverlap(ctx, a, uuid.Nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, apperr.Storage("create appointment", err)
	}

	s.publish(ctx, events.AppointmentCreated, a, nil)
	return a, nil
}

func validateInput(in CreateInput) error {
	v := &apperr.ValidationError{}
	if in.PatientID == uuid.Nil {
		v.Add("patient_id", "is required")
	}
	if in.PractitionerID == uuid.Nil {
		v.Add("practitioner_id", "is required")
	}
	if in.Date.IsZero() {
		v.Add("date", "is required")
	}
	if !in.StartTime.Valid() || in.StartTime.Minutes() >= civil.MinutesPerDay {
		v.Add("start_time", "must be a time of day between 00:00 and 23:59")
	}
	if !in.ConsultType.Valid() {
		v.Add("consult_type", fmt.Sprintf("unknown consult type %q", in.ConsultType))
	}
	if in.DurationMinutes != 0 && !availability.ValidDuration(in.DurationMinutes) {
		v.Add("duration_minutes", durationMessage)
	}
	return v.Err()
}

var durationMessage = fmt.Sprintf("must be between %d and %d minutes",
	availability.MinDurationMinutes, availability.MaxDurationMinutes)

// checkOverlap must run under the practitioner lock.
func (s *Service) checkOverlap(ctx context.Context, a *Appointment, exclude uuid.UUID) error {
	busy, err := s.repo.ListOccupying(ctx, a.PractitionerID, a.Date)
	if err != nil {
		return err
	}
	for _, other := range busy {
		if other.ID == a.ID || other.ID == exclude {
			continue
		}
		if other.Interval().Overlaps(a.Interval()) {
			return &apperr.ConflictError{Message: fmt.Sprintf(
				"%s %s-%s overlaps appointment %s", a.Date, a.StartTime, a.EndTime, other.ID)}
		}
	}
	return nil
}

// ChangeStatus moves an appointment along the lifecycle. Cancelling requires
// a non-empty reason.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target Status, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.ChangeStatus")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()), attribute.String("status.target", string(target)))

	if !target.Valid() {
		return nil, apperr.NewValidation("status", fmt.Sprintf("unknown status %q", target))
	}
	reason = strings.TrimSpace(reason)
	if target == StatusCancelled && reason == "" {
		return nil, apperr.NewValidation("reason", "is required to cancel an appointment")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get appointment", err)
	}

	var updated *Appointment
	var from Status
	err = s.repo.WithPractitionerLock(ctx, current.PractitionerID, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status
		if !a.Active {
			return &apperr.StateError{Current: string(a.Status), Requested: string(target),
				Reason: "appointment has been rescheduled"}
		}
		if err := checkTransition(a.Status, target); err != nil {
			return err
		}
		a.Status = target
		if target == StatusCancelled {
			a.CancellationReason = reason
		}
		a.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("change appointment status", err)
	}

	eventType := events.AppointmentStatusChanged
	if target == StatusCancelled {
		eventType = events.AppointmentCancelled
	}
	s.publish(ctx, eventType, updated, map[string]string{
		"from":   string(from),
		"to":     string(target),
		"reason": reason,
	})
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.ChangeStatus(ctx, id, StatusCancelled, reason)
}

// Delete removes an appointment regardless of status.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperr.Storage("get appointment", err)
	}
	err = s.repo.WithPractitionerLock(ctx, a.PractitionerID, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return apperr.Storage("delete appointment", err)
	}
	s.publish(ctx, events.AppointmentDeleted, a, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get appointment", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, apperr.NewValidation("to", "must not be before from")
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Storage("list appointments", err)
	}
	return items, total, nil
}

// ListBusy implements availability.BusyLister.
func (s *Service) ListBusy(ctx context.Context, practitionerID uuid.UUID, d civil.Date, exclude uuid.UUID) ([]availability.Interval, error) {
	occupying, err := s.repo.ListOccupying(ctx, practitionerID, d)
	if err != nil {
		return nil, apperr.Storage("list occupying appointments", err)
	}
	busy := make([]availability.Interval, 0, len(occupying))
	for _, a := range occupying {
		if a.ID == exclude {
			continue
		}
		busy = append(busy, a.Interval())
	}
	return busy, nil
}

// Supersede deactivates the appointment and inserts its replacement at the
// new date and start in one unit of work. The replacement keeps the original
// duration and starts as RESCHEDULED.
func (s *Service) Supersede(ctx context.Context, id uuid.UUID, newDate civil.Date, newStart civil.TimeOfDay) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.Supersede")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get appointment", err)
	}

	var original, replacement *Appointment
	err = s.repo.WithPractitionerLock(ctx, current.PractitionerID, func(ctx context.Context) error {
		orig, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !orig.Active {
			return &apperr.StateError{Current: string(orig.Status), Requested: string(StatusRescheduled),
				Reason: "appointment has already been rescheduled"}
		}
		if !orig.Status.Reschedulable() {
			return &apperr.StateError{Current: string(orig.Status), Requested: string(StatusRescheduled)}
		}

		now := s.now().UTC()
		next := &Appointment{
			ID:              uuid.New(),
			PatientID:       orig.PatientID,
			PractitionerID:  orig.PractitionerID,
			Date:            newDate,
			StartTime:       newStart,
			EndTime:         newStart.Add(orig.DurationMinutes),
			DurationMinutes: orig.DurationMinutes,
			ConsultType:     orig.ConsultType,
			Status:          StatusRescheduled,
			Reason:          orig.Reason,
			Notes:           orig.Notes,
			Active:          true,
			RescheduledFrom: &orig.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.checkOverlap(ctx, next, orig.ID); err != nil {
			return err
		}

		orig.Active = false
		orig.SupersededBy = &next.ID
		orig.UpdatedAt = now
		if err := s.repo.Update(ctx, orig); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, next); err != nil {
			return err
		}
		original, replacement = orig, next
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("reschedule appointment", err)
	}

	s.publish(ctx, events.AppointmentRescheduled, replacement, map[string]string{
		"rescheduled_from": original.ID.String(),
		"previous_date":    original.Date.String(),
		"previous_start":   original.StartTime.String(),
	})
	return replacement, nil
}

// publish runs after commit. A delivery failure is logged and dropped.
func (s *Service) publish(ctx context.Context, eventType string, a *Appointment, data interface{}) {
	ev := events.Event{
		ID:             uuid.New(),
		Type:           eventType,
		AppointmentID:  a.ID,
		PractitionerID: a.PractitionerID,
		OccurredAt:     s.now().UTC(),
		Data:           data,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", a.ID.String()).
			Msg("failed to publish appointment event")
	}
}
