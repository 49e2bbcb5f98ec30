package reminder

import (
	"time"

	"github.com/google/uuid"

	"github.com/odonto/odonto/internal/platform/notification"
)

type Recipient string

const (
	RecipientPatient      Recipient = "PATIENT"
	RecipientPractitioner Recipient = "PRACTITIONER"
	// RecipientBoth is one logical attempt addressed to both parties.
	RecipientBoth Recipient = "BOTH"
)

func Recipients() []Recipient {
	return []Recipient{RecipientPatient, RecipientPractitioner, RecipientBoth}
}

func (r Recipient) Valid() bool {
	switch r {
	case RecipientPatient, RecipientPractitioner, RecipientBoth:
		return true
	}
	return false
}

// Record is one reminder dispatch attempt. Records are never modified.
type Record struct {
	ID             uuid.UUID            `json:"id"`
	AppointmentID  uuid.UUID            `json:"appointment_id"`
	PractitionerID *uuid.UUID           `json:"practitioner_id,omitempty"`
	Recipient      Recipient            `json:"recipient"`
	Channel        notification.Channel `json:"channel"`
	DispatchedAt   time.Time            `json:"dispatched_at"`
	Success        bool                 `json:"success"`
	Error          string               `json:"error,omitempty"`
}

// Outcome is the result reported by the delivery channel. Channel defaults
// to email and DispatchedAt to the time of recording.
type Outcome struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	Channel      notification.Channel `json:"channel,omitempty"`
	DispatchedAt time.Time            `json:"dispatched_at,omitempty"`
}

// Stats aggregates attempts. TotalSent and ByRecipient count successful
// attempts only.
type Stats struct {
	TotalSent   int               `json:"total_sent"`
	TotalFailed int               `json:"total_failed"`
	ByRecipient map[Recipient]int `json:"by_recipient"`
}

func emptyStats() *Stats {
	s := &Stats{ByRecipient: make(map[Recipient]int, 3)}
	for _, r := range Recipients() {
		s.ByRecipient[r] = 0
	}
	return s
}

func (s *Stats) add(r Recipient, success bool, n int) {
	if !success {
		s.TotalFailed += n
		return
	}
	s.TotalSent += n
	s.ByRecipient[r] += n
}
