package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/odonto/odonto/pkg/civil"
)

type Repository interface {
	// WithPractitionerLock runs fn atomically with every other write for the
	// same practitioner excluded. Repository calls made with the ctx passed to
	// fn join the same unit of work.
	WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error
	// Create and Update return a ConflictError when the row would overlap an
	// occupying appointment of the same practitioner.
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
	// GetByID returns a NotFoundError when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListOccupying returns the active, non-cancelled appointments of a
	// practitioner on a date, ordered by start time.
	ListOccupying(ctx context.Context, practitionerID uuid.UUID, d civil.Date) ([]*Appointment, error)
	List(ctx context.Context, f Filter) ([]*Appointment, int, error)
}
