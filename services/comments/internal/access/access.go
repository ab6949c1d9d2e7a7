// Package access holds the permission predicates for the comment
// workflow. Predicates are evaluated at the point of use and never
// cached across requests; permissions may change between requests.
package access

import (
	"context"

	"github.com/example/comment-platform/services/comments/internal/store"
	"github.com/example/comment-platform/services/comments/internal/target"
)

// PolicyOracle answers elevated-role questions for space-scoped
// moderation. The actual policy lives outside this service.
type PolicyOracle interface {
	HasElevatedRole(ctx context.Context, userID, spaceID int64) (bool, error)
}

// CanRead delegates to the target's own capability.
func CanRead(t target.Target, userID int64) bool {
	return t.CanRead(userID)
}

// CanWrite allows only the author to edit a comment.
func CanWrite(c store.Comment, userID int64) bool {
	return userID != 0 && c.AuthorID == userID
}

// CanDelete allows the author, or a user holding an elevated role over
// the comment's space. Comments without a space fall back to the
// ownership rule alone.
func CanDelete(ctx context.Context, oracle PolicyOracle, c store.Comment, userID int64) (bool, error) {
	if CanWrite(c, userID) {
		return true, nil
	}
	if userID == 0 || c.SpaceID == nil || oracle == nil {
		return false, nil
	}
	return oracle.HasElevatedRole(ctx, userID, *c.SpaceID)
}
