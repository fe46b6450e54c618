package repository

import (
	"context"
	"strings"
	"sync"
)

// SelectionStore persists the last wallet the user selected so the dashboard
// can reselect it on the next start. Load returns "" when nothing is stored.
type SelectionStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, method string) error
}

// MemorySelectionStore keeps the selection for the life of the process.
type MemorySelectionStore struct {
	mu     sync.Mutex
	method string
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{}
}

func (s *MemorySelectionStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method, nil
}

func (s *MemorySelectionStore) Save(ctx context.Context, method string) error {
	s.mu.Lock()
	s.method = strings.ToLower(method)
	s.mu.Unlock()
	return nil
}
