package reminder

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, r *Record) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Record, error)
	// Stats aggregates every record, or only those of one practitioner when
	// practitionerID is non-nil.
	Stats(ctx context.Context, practitionerID *uuid.UUID) (*Stats, error)
}
