package officehours

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odonto/odonto/pkg/civil"
)

const (
	MinVisitMinutes = 15
	MaxVisitMinutes = 480
)

// Weekday numbers the practice week from Monday (0) to Sunday (6).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// WeekdayOf converts Go's Sunday-first numbering.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

func ParseWeekday(s string) (Weekday, error) {
	for i, name := range weekdayNames {
		if strings.EqualFold(s, name) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// OfficeHours is one practitioner's schedule for one weekday.
type OfficeHours struct {
	ID             uuid.UUID       `json:"id"`
	PractitionerID uuid.UUID       `json:"practitioner_id"`
	Weekday        Weekday         `json:"weekday"`
	OpenTime       civil.TimeOfDay `json:"open_time"`
	CloseTime      civil.TimeOfDay `json:"close_time"`
	VisitMinutes   int             `json:"visit_minutes"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Covers reports whether [start, end) lies inside the open window.
func (h *OfficeHours) Covers(start, end civil.TimeOfDay) bool {
	return h.Active && start >= h.OpenTime && end <= h.CloseTime
}

// Entry is one day of a weekly configuration submitted by an administrator.
type Entry struct {
	Weekday      Weekday         `json:"weekday"`
	OpenTime     civil.TimeOfDay `json:"open_time"`
	CloseTime    civil.TimeOfDay `json:"close_time"`
	VisitMinutes int             `json:"visit_minutes"`
	Active       bool            `json:"active"`
}
