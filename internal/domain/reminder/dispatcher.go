package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odonto/odonto/internal/domain/appointment"
	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/directory"
	"github.com/odonto/odonto/internal/platform/notification"
)

// Dispatcher sends a reminder for one appointment and records the attempt.
type Dispatcher struct {
	appointments AppointmentReader
	people       directory.Lookup
	templates    *notification.TemplateEngine
	sender       notification.Sender
	tracker      *Service
	loc          *time.Location
	logger       zerolog.Logger
}

func NewDispatcher(appointments AppointmentReader, people directory.Lookup, templates *notification.TemplateEngine,
	sender notification.Sender, tracker *Service, loc *time.Location, logger zerolog.Logger) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{
		appointments: appointments,
		people:       people,
		templates:    templates,
		sender:       sender,
		tracker:      tracker,
		loc:          loc,
		logger:       logger.With().Str("component", "reminder_dispatcher").Logger(),
	}
}

// Dispatch returns the stored record. A failed delivery yields a record with
// Success false and a nil error.
func (d *Dispatcher) Dispatch(ctx context.Context, appointmentID uuid.UUID, recipient Recipient) (*Record, error) {
	if !recipient.Valid() {
		return nil, apperr.NewValidation("recipient", "must be PATIENT, PRACTITIONER or BOTH")
	}
	a, err := d.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !a.Occupies() || a.Status.Terminal() {
		return nil, apperr.NewValidation("appointment_id",
			fmt.Sprintf("cannot remind about an appointment that is %s", describe(a)))
	}

	patient := d.person(ctx, a.PatientID, "patient")
	practitioner := d.person(ctx, a.PractitionerID, "practitioner")
	data := map[string]string{
		"patient_name":      patient.DisplayName,
		"practitioner_name": practitioner.DisplayName,
		"consult_type":      string(a.ConsultType),
		"date":              a.Date.String(),
		"time":              a.StartTime.String(),
		"end_time":          a.EndTime.String(),
		"reason":            a.Reason,
	}

	var failures []string
	send := func(templateID string, to directory.Person, attach bool) {
		payload, err := d.templates.Render(templateID, data)
		if err == nil {
			if attach {
				payload.Attachment = calendarAttachment(a, d.loc)
			}
			err = d.sender.Send(ctx, notification.ChannelEmail, to.Email, payload)
		}
		if err != nil {
			failures = append(failures, to.DisplayName+": "+err.Error())
		}
	}
	if recipient == RecipientPatient || recipient == RecipientBoth {
		send(notification.TemplatePatientReminder, patient, true)
	}
	if recipient == RecipientPractitioner || recipient == RecipientBoth {
		send(notification.TemplatePractitionerReminder, practitioner, false)
	}

	outcome := Outcome{Success: len(failures) == 0, Channel: notification.ChannelEmail}
	if !outcome.Success {
		outcome.Error = strings.Join(failures, "; ")
		d.logger.Warn().Str("appointment_id", a.ID.String()).Str("recipient", string(recipient)).
			Str("error", outcome.Error).Msg("reminder delivery failed")
	}
	return d.tracker.Record(ctx, a.ID, recipient, outcome)
}

// person falls back to a placeholder without contact details when the
// directory has no entry or cannot be reached.
func (d *Dispatcher) person(ctx context.Context, id uuid.UUID, role string) directory.Person {
	p, err := d.people.Lookup(ctx, id)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn().Err(err).Str("id", id.String()).Str("role", role).Msg("directory lookup failed")
	}
	if p == nil {
		return directory.Person{ID: id, DisplayName: role + " " + id.String()[:8]}
	}
	return *p
}

func describe(a *appointment.Appointment) string {
	if !a.Active {
		return "superseded"
	}
	return strings.ToLower(string(a.Status))
}

// calendarAttachment renders a minimal iCalendar event for the appointment.
func calendarAttachment(a *appointment.Appointment, loc *time.Location) *notification.Attachment {
	const stamp = "20060102T150405Z"
	start := a.StartsAt(loc).UTC()
	end := a.EndTime.On(a.Date, loc).UTC()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//odonto//appointments//EN",
		"BEGIN:VEVENT",
		"UID:" + a.ID.String(),
		"DTSTAMP:" + a.UpdatedAt.UTC().Format(stamp),
		"DTSTART:" + start.Format(stamp),
		"DTEND:" + end.Format(stamp),
		"SUMMARY:Dental appointment (" + string(a.ConsultType) + ")",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return &notification.Attachment{
		Name: "appointment.ics",
		Data: []byte(strings.Join(lines, "\r\n") + "\r\n"),
	}
}
