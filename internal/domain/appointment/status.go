package appointment

import (
	"github.com/odonto/odonto/internal/platform/apperr"
)

type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusAttended    Status = "ATTENDED"
	StatusNotAttended Status = "NOT_ATTENDED"
	StatusCancelled   Status = "CANCELLED"
	// StatusRescheduled is the initial status of a replacement created by a
	// reschedule. It accepts the same transitions as StatusScheduled.
	StatusRescheduled Status = "RESCHEDULED"
)

// transitions is the only definition of the lifecycle. A status missing from
// a row's targets cannot be reached from it.
var transitions = map[Status][]Status{
	StatusScheduled:   {StatusConfirmed, StatusCancelled},
	StatusRescheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:   {StatusInProgress, StatusNotAttended, StatusCancelled},
	StatusInProgress:  {StatusAttended, StatusNotAttended, StatusCancelled},
	StatusAttended:    nil,
	StatusNotAttended: nil,
	StatusCancelled:   nil,
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusScheduled, StatusRescheduled, StatusConfirmed, StatusInProgress,
		StatusAttended, StatusNotAttended, StatusCancelled,
	}
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Reschedulable reports whether an appointment in s may be moved.
func (s Status) Reschedulable() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusConfirmed:
		return true
	}
	return false
}

func checkTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return &apperr.StateError{Current: string(from), Requested: string(to)}
	}
	return nil
}
