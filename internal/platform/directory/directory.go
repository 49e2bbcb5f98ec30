// Package directory resolves patients and practitioners to display names and
// contact details.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Person struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
}

// Lookup returns the person with id, or nil when the directory does not know
// them.
type Lookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*Person, error)
}

// Static is an in-memory directory.
type Static struct {
	mu     sync.RWMutex
	people map[uuid.UUID]Person
}

func NewStatic(people ...Person) *Static {
	s := &Static{people: make(map[uuid.UUID]Person, len(people))}
	for _, p := range people {
		s.people[p.ID] = p
	}
	return s
}

func (s *Static) Put(p Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.ID] = p
}

func (s *Static) Lookup(ctx context.Context, id uuid.UUID) (*Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ParseSeed reads "id|display name|email|phone" entries separated by ";".
// Email and phone may be empty.
func ParseSeed(raw string) ([]Person, error) {
	var people []Person
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("directory entry %q: expected id|name|email|phone", entry)
		}
		id, err := uuid.Parse(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("directory entry %q: %w", entry, err)
		}
		p := Person{ID: id, DisplayName: strings.TrimSpace(parts[1])}
		if len(parts) > 2 {
			p.Email = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			p.Phone = strings.TrimSpace(parts[3])
		}
		people = append(people, p)
	}
	return people, nil
}
