package store

import (
	"context"
	"sync"

	"github.com/atmx/stockquest/internal/model"
)

// MemoryStore implements Journal with an in-memory map. Used for testing
// and when no database is configured (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]model.Transaction // session -> oldest first
}

// NewMemoryStore creates a new in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]model.Transaction),
	}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, tx model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = append(s.entries[sessionID], tx)
	return nil
}

func (s *MemoryStore) List(_ context.Context, sessionID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[sessionID]
	result := make([]model.Transaction, len(entries))
	for i, tx := range entries {
		result[len(entries)-1-i] = tx
	}
	return result, nil
}
