package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process ledger for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	appts map[string]Appointment
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{appts: make(map[string]Appointment)}
}

// Get returns a copy of the record, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &appt, nil
}

// Create stores a new record.
func (s *MemoryStore) Create(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appts[appt.ID] = *appt
	return nil
}

// Update replaces an existing record, or returns ErrNotFound.
func (s *MemoryStore) Update(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appts[appt.ID]; !ok {
		return ErrNotFound
	}
	s.appts[appt.ID] = *appt
	return nil
}

// Remove deletes and returns the record, or ErrNotFound.
func (s *MemoryStore) Remove(_ context.Context, id string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.appts, id)
	return &appt, nil
}

// List returns all records ordered by id.
func (s *MemoryStore) List(_ context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0, len(s.appts))
	for _, appt := range s.appts {
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
