package store

import (
	"context"
	"sync"
)

// InMemoryFileStore records attachments for development and tests.
type InMemoryFileStore struct {
	mu       sync.Mutex
	attached map[int64][]string
}

func NewInMemoryFileStore() *InMemoryFileStore {
	return &InMemoryFileStore{attached: make(map[int64][]string)}
}

func (s *InMemoryFileStore) AttachPending(_ context.Context, commentID int64, fileListToken string) error {
	guids := splitFileList(fileListToken)
	if len(guids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached[commentID] = append(s.attached[commentID], guids...)
	return nil
}

// Attached exposes recorded guids for tests.
func (s *InMemoryFileStore) Attached(commentID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached[commentID]
}
