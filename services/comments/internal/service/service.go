// Package service orchestrates target resolution, permission checks,
// comment persistence and the visibility cache behind the comment
// use cases. It is the only place with business logic; handlers stay
// thin and stores stay dumb.
package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/services/comments/internal/access"
	"github.com/example/comment-platform/services/comments/internal/store"
	"github.com/example/comment-platform/services/comments/internal/target"
	"github.com/example/comment-platform/services/comments/internal/visibility"
)

// ErrAccessDenied is returned when a capability check on a comment
// fails: non-author edit, unauthorized delete, or a cross-target
// delete attempt.
var ErrAccessDenied = errors.New("comment access denied")

// DefaultSincePageSize bounds the incremental polling endpoint.
const DefaultSincePageSize = 5

// ShowResult is the comment list plus the pagination state echoed back
// to the caller for the next request.
type ShowResult struct {
	Comments   []store.Comment `json:"comments"`
	IsLimited  bool            `json:"is_limited"`
	ShownCount int             `json:"shown_count"`
}

// Service implements the comment use cases. Spaces, Files, Policy and
// Events are optional collaborators; a nil value disables the
// corresponding side work.
type Service struct {
	Comments store.CommentStore
	Spaces   store.SpaceStore
	Files    store.FileStore
	Policy   access.PolicyOracle
	Cache    visibility.Cache
	Events   *events.Publisher
	Log      *zap.Logger
}

func New(comments store.CommentStore, cache visibility.Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Comments: comments, Cache: cache, Log: log}
}

// Show lists a target's comments: the shownCount most recent ones when
// limited, all of them otherwise. Pure read; flags are echoed back
// unchanged and nothing is written to the cache.
func (s *Service) Show(ctx context.Context, r *target.Resolver, typeName string, targetID, userID int64, limited bool, shownCount int) (ShowResult, error) {
	if _, err := r.Resolve(ctx, typeName, targetID, userID); err != nil {
		return ShowResult{}, err
	}

	if shownCount <= 0 {
		shownCount = visibility.DefaultShownCount
	}
	limit := 0
	if limited {
		limit = shownCount
	}

	comments, err := s.Comments.ListByTarget(ctx, typeName, targetID, limit, 0)
	if err != nil {
		return ShowResult{}, err
	}
	if comments == nil {
		comments = []store.Comment{}
	}
	return ShowResult{Comments: comments, IsLimited: limited, ShownCount: shownCount}, nil
}

// Post creates a comment and returns the refreshed thread. A blank
// message is not an error: the thread is simply re-shown with the
// current cached state. Space bookkeeping and file attachment are
// best-effort; their failures are logged and never abort the post.
func (s *Service) Post(ctx context.Context, r *target.Resolver, typeName string, targetID, userID int64, message, fileListToken string, limitedDefault bool) (ShowResult, error) {
	t, err := r.Resolve(ctx, typeName, targetID, userID)
	if err != nil {
		return ShowResult{}, err
	}

	st := s.Cache.State(ctx, typeName, targetID, limitedDefault)

	message = normalizeMessage(message)
	if message == "" {
		// Empty submit means "just refresh".
		return s.Show(ctx, r, typeName, targetID, userID, st.IsLimited, st.ShownCount)
	}

	c := store.Comment{
		TargetType: typeName,
		TargetID:   targetID,
		AuthorID:   userID,
		Message:    message,
	}
	if sid, ok := t.SpaceID(); ok {
		c.SpaceID = &sid
	}

	created, err := s.Comments.Create(ctx, c)
	if err != nil {
		return ShowResult{}, err
	}

	if err := r.Touch(ctx, t); err != nil {
		s.Log.Warn("post: target touch failed",
			zap.String("target_type", typeName), zap.Int64("target_id", targetID), zap.Error(err))
	}
	s.touchSpaceMembership(ctx, created, userID)
	s.attachFiles(ctx, created.ID, fileListToken)

	// Cache write strictly after the authoritative store write.
	shown := s.Cache.IncrementShown(ctx, typeName, targetID)

	s.Events.Publish(events.SubjectCommentCreated, "comment.created", userID, typeName, targetID, created.ID)

	return s.Show(ctx, r, typeName, targetID, userID, st.IsLimited, shown)
}

// Edit updates a comment's message. Only the author may edit; the
// refreshed row (post-update timestamp) is returned for re-rendering.
func (s *Service) Edit(ctx context.Context, commentID, userID int64, message string) (store.Comment, error) {
	c, err := s.Comments.FindByID(ctx, commentID)
	if err != nil {
		return store.Comment{}, err
	}
	if !access.CanWrite(c, userID) {
		return store.Comment{}, ErrAccessDenied
	}

	message = normalizeMessage(message)
	if message == "" {
		return store.Comment{}, store.ErrEmptyMessage
	}

	updated, err := s.Comments.UpdateMessage(ctx, commentID, message)
	if err != nil {
		return store.Comment{}, err
	}
	s.Events.Publish(events.SubjectCommentUpdated, "comment.updated", userID, c.TargetType, c.TargetID, c.ID)
	return updated, nil
}

// Delete removes a comment and returns the refreshed thread. The
// comment must belong to the resolved target; a mismatch is treated as
// an access violation regardless of ownership. The shown-count hint is
// deliberately left stale (the authoritative count lives in the store).
func (s *Service) Delete(ctx context.Context, r *target.Resolver, typeName string, targetID, commentID, userID int64, limitedDefault bool) (ShowResult, error) {
	t, err := r.Resolve(ctx, typeName, targetID, userID)
	if err != nil {
		return ShowResult{}, err
	}

	c, err := s.Comments.FindByID(ctx, commentID)
	if err != nil {
		return ShowResult{}, err
	}

	// Cross-target guard: a valid comment id under a different target
	// is a forged request, not a not-found.
	if c.TargetType != t.TypeName() || c.TargetID != t.ID() {
		return ShowResult{}, ErrAccessDenied
	}

	ok, err := access.CanDelete(ctx, s.Policy, c, userID)
	if err != nil {
		s.Log.Warn("delete: policy check failed, denying",
			zap.Int64("comment_id", commentID), zap.Int64("user_id", userID), zap.Error(err))
		return ShowResult{}, ErrAccessDenied
	}
	if !ok {
		return ShowResult{}, ErrAccessDenied
	}

	if err := s.Comments.Delete(ctx, commentID); err != nil {
		return ShowResult{}, err
	}

	s.Events.Publish(events.SubjectCommentDeleted, "comment.deleted", userID, typeName, targetID, commentID)

	st := s.Cache.State(ctx, typeName, targetID, limitedDefault)
	return s.Show(ctx, r, typeName, targetID, userID, st.IsLimited, st.ShownCount)
}

// Count returns the authoritative comment total for a target.
func (s *Service) Count(ctx context.Context, r *target.Resolver, typeName string, targetID, userID int64) (int, error) {
	if _, err := r.Resolve(ctx, typeName, targetID, userID); err != nil {
		return 0, err
	}
	return s.Comments.CountByTarget(ctx, typeName, targetID)
}

// ListSince returns up to pageSize comments newer than afterID, for
// incremental client polling.
func (s *Service) ListSince(ctx context.Context, r *target.Resolver, typeName string, targetID, userID, afterID int64, pageSize int) ([]store.Comment, error) {
	if _, err := r.Resolve(ctx, typeName, targetID, userID); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultSincePageSize
	}
	comments, err := s.Comments.ListSince(ctx, typeName, targetID, afterID, pageSize)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []store.Comment{}
	}
	return comments, nil
}

func (s *Service) touchSpaceMembership(ctx context.Context, c store.Comment, userID int64) {
	if s.Spaces == nil || c.SpaceID == nil || userID == 0 {
		return
	}
	if err := s.Spaces.TouchLastVisit(ctx, *c.SpaceID, userID); err != nil {
		s.Log.Warn("post: space last-visit touch failed",
			zap.Int64("space_id", *c.SpaceID), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *Service) attachFiles(ctx context.Context, commentID int64, fileListToken string) {
	if s.Files == nil || strings.TrimSpace(fileListToken) == "" {
		return
	}
	if err := s.Files.AttachPending(ctx, commentID, fileListToken); err != nil {
		s.Log.Warn("post: file attach failed",
			zap.Int64("comment_id", commentID), zap.Error(err))
	}
}

// normalizeMessage strips control characters (keeping newlines and
// tabs) and trims surrounding whitespace.
func normalizeMessage(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}
