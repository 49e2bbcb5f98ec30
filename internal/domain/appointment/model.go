package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/odonto/odonto/internal/domain/availability"
	"github.com/odonto/odonto/pkg/civil"
)

type ConsultType string

const (
	ConsultFirstVisit       ConsultType = "first-visit"
	ConsultFollowUp         ConsultType = "follow-up"
	ConsultEmergency        ConsultType = "emergency"
	ConsultCleaning         ConsultType = "cleaning"
	ConsultOrthodontics     ConsultType = "orthodontics"
	ConsultEndodontics      ConsultType = "endodontics"
	ConsultSurgery          ConsultType = "surgery"
	ConsultProsthesis       ConsultType = "prosthesis"
	ConsultTreatmentSession ConsultType = "treatment-session"
	ConsultOther            ConsultType = "other"
)

var consultTypes = map[ConsultType]bool{
	ConsultFirstVisit: true, ConsultFollowUp: true, ConsultEmergency: true,
	ConsultCleaning: true, ConsultOrthodontics: true, ConsultEndodontics: true,
	ConsultSurgery: true, ConsultProsthesis: true, ConsultTreatmentSession: true,
	ConsultOther: true,
}

func (c ConsultType) Valid() bool { return consultTypes[c] }

type Appointment struct {
	ID                 uuid.UUID       `json:"id"`
	PatientID          uuid.UUID       `json:"patient_id"`
	PractitionerID     uuid.UUID       `json:"practitioner_id"`
	Date               civil.Date      `json:"date"`
	StartTime          civil.TimeOfDay `json:"start_time"`
	EndTime            civil.TimeOfDay `json:"end_time"`
	DurationMinutes    int             `json:"duration_minutes"`
	ConsultType        ConsultType     `json:"consult_type"`
	Status             Status          `json:"status"`
	Reason             string          `json:"reason"`
	Notes              string          `json:"notes"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	Active             bool            `json:"active"`
	RescheduledFrom    *uuid.UUID      `json:"rescheduled_from,omitempty"`
	SupersededBy       *uuid.UUID      `json:"superseded_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Occupies reports whether the appointment blocks its time range.
func (a *Appointment) Occupies() bool {
	return a.Active && a.Status != StatusCancelled
}

func (a *Appointment) Interval() availability.Interval {
	return availability.Interval{Start: a.StartTime, End: a.EndTime}
}

// StartsAt is the start instant in the practice's location.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.StartTime.On(a.Date, loc)
}

type CreateInput struct {
	PatientID      uuid.UUID       `json:"patient_id"`
	PractitionerID uuid.UUID       `json:"practitioner_id"`
	Date           civil.Date      `json:"date"`
	StartTime      civil.TimeOfDay `json:"start_time"`
	// DurationMinutes of zero takes the day's configured visit duration.
	DurationMinutes  int         `json:"duration_minutes"`
	ConsultType      ConsultType `json:"consult_type"`
	Reason           string      `json:"reason"`
	Notes            string      `json:"notes"`
	OverrideDuration bool        `json:"override_duration"`
}

// Filter narrows List. Nil fields do not filter.
type Filter struct {
	PractitionerID  *uuid.UUID
	PatientID       *uuid.UUID
	From            *civil.Date
	To              *civil.Date
	Status          *Status
	IncludeInactive bool
	Limit           int
	Offset          int
}
