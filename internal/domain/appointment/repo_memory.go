package appointment

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/pkg/civil"
)

type repoMemory struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]Appointment

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewRepoMemory returns a process-local repository for STORAGE=memory and
// tests. Writes for one practitioner are serialized by a mutex, and a failed
// WithPractitionerLock body is rolled back from a snapshot.
func NewRepoMemory() Repository {
	return &repoMemory{
		appts: make(map[uuid.UUID]Appointment),
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *repoMemory) practitionerLock(id uuid.UUID) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

func (r *repoMemory) WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error {
	l := r.practitionerLock(practitionerID)
	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := r.snapshot(practitionerID)
	if err := fn(ctx); err != nil {
		r.restore(practitionerID, snapshot)
		return err
	}
	return nil
}

func (r *repoMemory) snapshot(practitionerID uuid.UUID) map[uuid.UUID]Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[uuid.UUID]Appointment)
	for id, a := range r.appts {
		if a.PractitionerID == practitionerID {
			snap[id] = a
		}
	}
	return snap
}

func (r *repoMemory) restore(practitionerID uuid.UUID, snap map[uuid.UUID]Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.appts {
		if a.PractitionerID == practitionerID {
			delete(r.appts, id)
		}
	}
	for id, a := range snap {
		r.appts[id] = a
	}
}

// overlapsLocked mirrors the exclusion constraint of the relational schema.
func (r *repoMemory) overlapsLocked(a *Appointment) bool {
	if !a.Occupies() {
		return false
	}
	for id, other := range r.appts {
		if id == a.ID || other.PractitionerID != a.PractitionerID || other.Date != a.Date {
			continue
		}
		if other.Occupies() && other.Interval().Overlaps(a.Interval()) {
			return true
		}
	}
	return false
}

func (r *repoMemory) Create(ctx context.Context, a *Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if r.overlapsLocked(a) {
		return &apperr.ConflictError{}
	}
	r.appts[a.ID] = *a
	return nil
}

func (r *repoMemory) Update(ctx context.Context, a *Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[a.ID]; !ok {
		return &apperr.NotFoundError{Resource: "appointment", ID: a.ID.String()}
	}
	if r.overlapsLocked(a) {
		return &apperr.ConflictError{}
	}
	r.appts[a.ID] = *a
	return nil
}

func (r *repoMemory) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, &apperr.NotFoundError{Resource: "appointment", ID: id.String()}
	}
	return &a, nil
}

func (r *repoMemory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[id]; !ok {
		return &apperr.NotFoundError{Resource: "appointment", ID: id.String()}
	}
	delete(r.appts, id)
	for k, a := range r.appts {
		changed := false
		if a.RescheduledFrom != nil && *a.RescheduledFrom == id {
			a.RescheduledFrom = nil
			changed = true
		}
		if a.SupersededBy != nil && *a.SupersededBy == id {
			a.SupersededBy = nil
			changed = true
		}
		if changed {
			r.appts[k] = a
		}
	}
	return nil
}

func (r *repoMemory) ListOccupying(ctx context.Context, practitionerID uuid.UUID, d civil.Date) ([]*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []*Appointment
	for _, a := range r.appts {
		if a.PractitionerID == practitionerID && a.Date == d && a.Occupies() {
			a := a
			items = append(items, &a)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartTime < items[j].StartTime })
	return items, nil
}

func (r *repoMemory) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	var items []*Appointment
	for _, a := range r.appts {
		if matches(&a, f) {
			a := a
			items = append(items, &a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date.Before(items[j].Date)
		}
		if items[i].StartTime != items[j].StartTime {
			return items[i].StartTime < items[j].StartTime
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	total := len(items)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		items = items[start:end]
	}
	return items, total, nil
}

func matches(a *Appointment, f Filter) bool {
	switch {
	case !f.IncludeInactive && !a.Active:
		return false
	case f.PractitionerID != nil && a.PractitionerID != *f.PractitionerID:
		return false
	case f.PatientID != nil && a.PatientID != *f.PatientID:
		return false
	case f.Status != nil && a.Status != *f.Status:
		return false
	case f.From != nil && a.Date.Before(*f.From):
		return false
	case f.To != nil && a.Date.After(*f.To):
		return false
	}
	return true
}
