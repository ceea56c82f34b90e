package conversation

import (
	"context"
	"sync"
)

// LocalMemoryStore is an in-process MemoryStore for tests and single-node
// development runs.
type LocalMemoryStore struct {
	mu      sync.RWMutex
	history map[string][]MemoryEntry
}

func NewLocalMemoryStore() *LocalMemoryStore {
	return &LocalMemoryStore{history: make(map[string][]MemoryEntry)}
}

func (s *LocalMemoryStore) Get(_ context.Context, conversationID string) ([]MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.history[conversationID]
	out := make([]MemoryEntry, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *LocalMemoryStore) Append(_ context.Context, conversationID string, entries ...MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[conversationID] = append(s.history[conversationID], entries...)
	return nil
}

func (s *LocalMemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, conversationID)
	return nil
}
