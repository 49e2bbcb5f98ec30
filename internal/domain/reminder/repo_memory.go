package reminder

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type repoMemory struct {
	mu      sync.RWMutex
	records []Record
}

func NewRepoMemory() Repository {
	return &repoMemory{}
}

func (r *repoMemory) Append(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *repoMemory) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Record
	for _, rec := range r.records {
		if rec.AppointmentID == appointmentID {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DispatchedAt.Before(out[j].DispatchedAt) })
	return out, nil
}

func (r *repoMemory) Stats(ctx context.Context, practitionerID *uuid.UUID) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := emptyStats()
	for _, rec := range r.records {
		if practitionerID != nil && (rec.PractitionerID == nil || *rec.PractitionerID != *practitionerID) {
			continue
		}
		stats.add(rec.Recipient, rec.Success, 1)
	}
	return stats, nil
}
