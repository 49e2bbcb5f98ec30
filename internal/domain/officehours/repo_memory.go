package officehours

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type dayKey struct {
	practitionerID uuid.UUID
	weekday        Weekday
}

type repoMemory struct {
	mu   sync.RWMutex
	days map[dayKey]OfficeHours
}

// NewRepoMemory returns a process-local repository for STORAGE=memory and tests.
func NewRepoMemory() Repository {
	return &repoMemory{days: make(map[dayKey]OfficeHours)}
}

func (r *repoMemory) Get(ctx context.Context, practitionerID uuid.UUID, weekday Weekday) (*OfficeHours, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.days[dayKey{practitionerID, weekday}]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *repoMemory) ListWeek(ctx context.Context, practitionerID uuid.UUID) ([]*OfficeHours, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []*OfficeHours
	for k, h := range r.days {
		if k.practitionerID == practitionerID {
			h := h
			items = append(items, &h)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Weekday < items[j].Weekday })
	return items, nil
}

func (r *repoMemory) ReplaceWeek(ctx context.Context, practitionerID uuid.UUID, week []*OfficeHours) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range week {
		k := dayKey{practitionerID, h.Weekday}
		if prev, ok := r.days[k]; ok {
			h.ID = prev.ID
			h.CreatedAt = prev.CreatedAt
		}
		r.days[k] = *h
	}
	return nil
}
