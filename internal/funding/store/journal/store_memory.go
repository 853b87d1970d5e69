// Package journal provides asset-lock journal stores. The in-memory store
// backs tests and development; the postgres store is the durable option.
package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
	"creditbridge/pkg/platform/sentinel"
)

// InMemoryStore keeps asset locks in a map for tests/dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	locks map[string]*domain.AssetLock
}

// NewInMemoryStore constructs an empty in-memory journal.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{locks: make(map[string]*domain.AssetLock)}
}

func (s *InMemoryStore) Append(_ context.Context, lock *domain.AssetLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[lock.ID]; ok {
		return fmt.Errorf("asset lock %s already journaled: %w", lock.ID, sentinel.ErrConflict)
	}
	cp := *lock
	s.locks[lock.ID] = &cp
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, lockID string) (*domain.AssetLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[lockID]
	if !ok {
		return nil, fmt.Errorf("asset lock %s: %w", lockID, sentinel.ErrNotFound)
	}
	cp := *lock
	return &cp, nil
}

func (s *InMemoryStore) MarkConsumed(_ context.Context, lockID string, identityID id.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[lockID]
	if !ok {
		return fmt.Errorf("asset lock %s: %w", lockID, sentinel.ErrNotFound)
	}
	if lock.Consumed {
		return fmt.Errorf("asset lock %s: %w", lockID, sentinel.ErrAlreadyConsumed)
	}
	lock.Consumed = true
	lock.IdentityID = identityID
	return nil
}

func (s *InMemoryStore) ListUnconsumed(_ context.Context) ([]*domain.AssetLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.AssetLock
	for _, lock := range s.locks {
		if lock.Consumed {
			continue
		}
		cp := *lock
		out = append(out, &cp)
	}
	// ULIDs sort lexicographically by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
