// Package snapshot persists the state manager's last published snapshot.
package snapshot

import (
	"context"
	"sync"

	"creditbridge/internal/state"
	"creditbridge/pkg/platform/sentinel"
)

// InMemoryStore keeps the last snapshot in process memory. Test and
// single-process use; production wiring uses the Redis store.
type InMemoryStore struct {
	mu   sync.RWMutex
	snap *state.Snapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, snap *state.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) (*state.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, sentinel.ErrNotFound
	}
	return s.snap.Clone(), nil
}
