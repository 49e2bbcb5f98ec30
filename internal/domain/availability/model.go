package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/odonto/odonto/pkg/civil"
)

const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 120
)

// Slot is a bookable window on a practitioner's day.
type Slot struct {
	Start civil.TimeOfDay `json:"start"`
	End   civil.TimeOfDay `json:"end"`
}

// Interval is a half-open [Start, End) range of wall-clock time.
type Interval struct {
	Start civil.TimeOfDay
	End   civil.TimeOfDay
}

func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func (s Slot) Interval() Interval { return Interval{Start: s.Start, End: s.End} }

// Request asks for the free slots of one practitioner on one date.
// DurationMinutes of zero selects the day's configured visit duration.
type Request struct {
	PractitionerID  uuid.UUID
	Date            civil.Date
	DurationMinutes int
	Now             time.Time
	// Exclude ignores one appointment when computing busy time, so that an
	// appointment being moved does not block its own neighbourhood.
	Exclude uuid.UUID
}

// Partition splits [open, close) into consecutive windows of exactly
// duration minutes. A trailing remainder shorter than duration is dropped.
func Partition(open, close civil.TimeOfDay, duration int) []Slot {
	if duration <= 0 || open >= close {
		return nil
	}
	slots := make([]Slot, 0, (close-open).Minutes()/duration)
	for start := open; start.Add(duration) <= close; start = start.Add(duration) {
		slots = append(slots, Slot{Start: start, End: start.Add(duration)})
	}
	return slots
}
