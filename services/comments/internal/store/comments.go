package store

import (
	"context"
	"errors"
	"time"
)

// Comment represents a single comment row.
type Comment struct {
	ID         int64     `json:"id"`
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	AuthorID   int64     `json:"author_id"`
	SpaceID    *int64    `json:"space_id,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CommentStore defines the contract for comment persistence.
//
// The target pair and author of a comment are fixed at creation;
// UpdateMessage is the only mutation besides Delete.
type CommentStore interface {
	Create(ctx context.Context, c Comment) (Comment, error)
	FindByID(ctx context.Context, id int64) (Comment, error)
	// ListByTarget returns the most recent `limit` comments for a
	// target, oldest-first within the window. limit <= 0 returns all;
	// beforeID > 0 restricts the window to comments older than it.
	ListByTarget(ctx context.Context, targetType string, targetID int64, limit int, beforeID int64) ([]Comment, error)
	// ListSince returns up to `limit` comments newer than afterID,
	// oldest-first, for incremental polling.
	ListSince(ctx context.Context, targetType string, targetID, afterID int64, limit int) ([]Comment, error)
	// CountByTarget is the authoritative total for a target. It backs
	// the counting endpoint only, never the pagination window.
	CountByTarget(ctx context.Context, targetType string, targetID int64) (int, error)
	// UpdateMessage persists a new message and returns the refreshed
	// row with its post-update timestamp.
	UpdateMessage(ctx context.Context, id int64, message string) (Comment, error)
	Delete(ctx context.Context, id int64) error
}

// Sentinel errors
var (
	ErrNotFound     = errors.New("comment not found")
	ErrEmptyMessage = errors.New("comment message must not be empty")
)
