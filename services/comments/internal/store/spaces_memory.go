package store

import (
	"context"
	"sync"
	"time"
)

type membershipKey struct {
	spaceID int64
	userID  int64
}

// InMemorySpaceStore is a development-only in-memory implementation.
type InMemorySpaceStore struct {
	mu        sync.RWMutex
	elevated  map[membershipKey]bool
	lastVisit map[membershipKey]time.Time
}

func NewInMemorySpaceStore() *InMemorySpaceStore {
	return &InMemorySpaceStore{
		elevated:  make(map[membershipKey]bool),
		lastVisit: make(map[membershipKey]time.Time),
	}
}

// GrantElevatedRole marks the user as admin/moderator of the space.
func (s *InMemorySpaceStore) GrantElevatedRole(spaceID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elevated[membershipKey{spaceID, userID}] = true
}

func (s *InMemorySpaceStore) HasElevatedRole(_ context.Context, userID, spaceID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elevated[membershipKey{spaceID, userID}], nil
}

func (s *InMemorySpaceStore) TouchLastVisit(_ context.Context, spaceID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVisit[membershipKey{spaceID, userID}] = time.Now().UTC()
	return nil
}

// LastVisit exposes the recorded marker for tests.
func (s *InMemorySpaceStore) LastVisit(spaceID, userID int64) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.lastVisit[membershipKey{spaceID, userID}]
	return t, ok
}
