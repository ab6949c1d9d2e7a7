package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	nextID   int64
	comments map[int64]Comment
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{comments: make(map[int64]Comment)}
}

func (s *InMemoryCommentStore) Create(_ context.Context, c Comment) (Comment, error) {
	if strings.TrimSpace(c.Message) == "" {
		return Comment{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c.ID = s.nextID
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) FindByID(_ context.Context, id int64) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemoryCommentStore) ListByTarget(_ context.Context, targetType string, targetID int64, limit int, beforeID int64) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byTarget(targetType, targetID)
	if beforeID > 0 {
		n := sort.Search(len(all), func(i int) bool { return all[i].ID >= beforeID })
		all = all[:n]
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *InMemoryCommentStore) ListSince(_ context.Context, targetType string, targetID, afterID int64, limit int) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.byTarget(targetType, targetID) {
		if c.ID > afterID {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryCommentStore) CountByTarget(_ context.Context, targetType string, targetID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byTarget(targetType, targetID)), nil
}

func (s *InMemoryCommentStore) UpdateMessage(_ context.Context, id int64, message string) (Comment, error) {
	if strings.TrimSpace(message) == "" {
		return Comment{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	c.Message = message
	c.UpdatedAt = time.Now().UTC()
	s.comments[id] = c
	return c, nil
}

func (s *InMemoryCommentStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

// byTarget returns a target's comments in ascending id order.
// Caller must hold the lock.
func (s *InMemoryCommentStore) byTarget(targetType string, targetID int64) []Comment {
	var out []Comment
	for _, c := range s.comments {
		if c.TargetType == targetType && c.TargetID == targetID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
