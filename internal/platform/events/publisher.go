// Package events provides a fire-and-forget NATS publisher for comment
// activity events. Consumers (notification fan-out, activity streams)
// live outside this repository.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject constants for every comment event type.
const (
	SubjectCommentCreated = "comments.comment.created"
	SubjectCommentUpdated = "comments.comment.updated"
	SubjectCommentDeleted = "comments.comment.deleted"
)

// Event is the canonical envelope sent to all comments.* subjects.
type Event struct {
	EventID    string    `json:"event_id"`
	EventName  string    `json:"event_name"`
	UserID     int64     `json:"user_id,omitempty"`
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	CommentID  int64     `json:"comment_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes comment events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and deployments without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	return &Publisher{js: js, log: log}
}

// Publish sends a comment event asynchronously (fire-and-forget).
// Failures are logged as warnings and never surface to the caller.
// The publisher is safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName string, userID int64, targetType string, targetID, commentID int64) {
	if p == nil || p.js == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		UserID:     userID,
		TargetType: targetType,
		TargetID:   targetID,
		CommentID:  commentID,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
