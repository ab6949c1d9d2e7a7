package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/comment-platform/services/comments/internal/target"
)

// ContentRecord is one commentable entity held by the in-memory source.
type ContentRecord struct {
	ID         int64
	SpaceID    *int64
	Visibility int16
	CreatedBy  int64
	UpdatedAt  time.Time
}

// InMemoryContentSource is a development-only target source.
type InMemoryContentSource struct {
	mu       sync.RWMutex
	typeName string
	records  map[int64]ContentRecord
}

func NewInMemoryContentSource(typeName string) *InMemoryContentSource {
	return &InMemoryContentSource{typeName: typeName, records: make(map[int64]ContentRecord)}
}

func (s *InMemoryContentSource) Put(rec ContentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *InMemoryContentSource) Load(_ context.Context, id int64) (target.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, target.ErrNotFound
	}
	return &contentTarget{
		typeName:   s.typeName,
		id:         rec.ID,
		spaceID:    rec.SpaceID,
		visibility: rec.Visibility,
		createdBy:  rec.CreatedBy,
	}, nil
}

func (s *InMemoryContentSource) Touch(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return target.ErrNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

// Record exposes the stored row for tests.
func (s *InMemoryContentSource) Record(id int64) (ContentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}
