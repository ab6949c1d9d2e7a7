package store

import "context"

// SpaceStore covers the auxiliary space bookkeeping around comments:
// the elevated-role policy lookup for deletion, and the best-effort
// last-visit touch when a member posts into a space.
type SpaceStore interface {
	// HasElevatedRole reports whether the user holds an admin or
	// moderator membership in the space.
	HasElevatedRole(ctx context.Context, userID, spaceID int64) (bool, error)
	// TouchLastVisit bumps the member's last_visit marker. Missing
	// membership is not an error; there is simply nothing to touch.
	TouchLastVisit(ctx context.Context, spaceID, userID int64) error
}
