package officehours

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Get returns nil without error when the day was never configured.
	Get(ctx context.Context, practitionerID uuid.UUID, weekday Weekday) (*OfficeHours, error)
	ListWeek(ctx context.Context, practitionerID uuid.UUID) ([]*OfficeHours, error)
	// ReplaceWeek upserts all entries in one transaction.
	ReplaceWeek(ctx context.Context, practitionerID uuid.UUID, week []*OfficeHours) error
}
