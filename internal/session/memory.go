package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process session store for tests and redis-less
// development.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Load returns a copy of the stored state, or an empty state.
func (s *MemoryStore) Load(_ context.Context, conversationID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.states[conversationID]
	return &state, nil
}

// Save stores a copy of the state; an empty state clears the entry.
func (s *MemoryStore) Save(_ context.Context, conversationID string, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == nil || state.IsEmpty() {
		delete(s.states, conversationID)
		return nil
	}
	s.states[conversationID] = *state
	return nil
}

// Clear removes the stored state.
func (s *MemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, conversationID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
