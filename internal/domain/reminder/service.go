// Package reminder keeps the append-only log of reminder dispatch attempts
// and sends reminders through the notification channel.
package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odonto/odonto/internal/domain/appointment"
	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/events"
	"github.com/odonto/odonto/internal/platform/notification"
)

// AppointmentReader resolves the appointment a reminder refers to.
type AppointmentReader interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// Service is the reminder tracker. Delivery failures are stored as data and
// never returned as errors.
type Service struct {
	repo         Repository
	appointments AppointmentReader
	publisher    events.Publisher
	now          func() time.Time
}

// NewService builds the tracker. appointments may be nil, in which case
// records are stored without a practitioner and only count towards global
// stats.
func NewService(repo Repository, appointments AppointmentReader, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{repo: repo, appointments: appointments, publisher: publisher, now: time.Now}
}

func (s *Service) Record(ctx context.Context, appointmentID uuid.UUID, recipient Recipient, outcome Outcome) (*Record, error) {
	v := &apperr.ValidationError{}
	if appointmentID == uuid.Nil {
		v.Add("appointment_id", "is required")
	}
	if !recipient.Valid() {
		v.Add("recipient", "must be PATIENT, PRACTITIONER or BOTH")
	}
	if outcome.Channel == "" {
		outcome.Channel = notification.ChannelEmail
	}
	if !outcome.Channel.Valid() {
		v.Add("channel", "only EMAIL is supported")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Recipient:     recipient,
		Channel:       outcome.Channel,
		DispatchedAt:  outcome.DispatchedAt.UTC(),
		Success:       outcome.Success,
	}
	if outcome.DispatchedAt.IsZero() {
		rec.DispatchedAt = s.now().UTC()
	}
	if !outcome.Success {
		rec.Error = strings.TrimSpace(outcome.Error)
		if rec.Error == "" {
			rec.Error = "delivery failed"
		}
	}

	if s.appointments != nil {
		a, err := s.appointments.Get(ctx, appointmentID)
		if err != nil {
			return nil, err
		}
		rec.PractitionerID = &a.PractitionerID
	}

	if err := s.repo.Append(ctx, rec); err != nil {
		return nil, apperr.Storage("append reminder record", err)
	}

	ev := events.Event{
		ID:            uuid.New(),
		Type:          events.ReminderRecorded,
		AppointmentID: appointmentID,
		OccurredAt:    rec.DispatchedAt,
		Data:          rec,
	}
	if rec.PractitionerID != nil {
		ev.PractitionerID = *rec.PractitionerID
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("appointment_id", appointmentID.String()).
			Msg("failed to publish reminder event")
	}
	return rec, nil
}

func (s *Service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Record, error) {
	records, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperr.Storage("list reminder records", err)
	}
	if records == nil {
		records = []*Record{}
	}
	return records, nil
}

// Stats aggregates globally when practitionerID is nil.
func (s *Service) Stats(ctx context.Context, practitionerID *uuid.UUID) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, practitionerID)
	if err != nil {
		return nil, apperr.Storage("reminder stats", err)
	}
	return stats, nil
}
