// Package visibility maintains the cached per-target pagination state:
// an is-limited flag and a shown-comment counter. Both are display
// hints; the authoritative comment set lives in the store, and every
// operation here degrades to defaults instead of failing.
package visibility

import "context"

const (
	// DefaultShownCount is the collapsed-window size used when no
	// counter is cached.
	DefaultShownCount = 2
	// MaxShownCount bounds counter growth; beyond this the thread is
	// effectively expanded anyway.
	MaxShownCount = 500
)

// Cache key prefixes, shared with the legacy widget layer.
const (
	isLimitedKeyPrefix  = "is_limited_"
	shownCountKeyPrefix = "shown_comment_count_"
)

// State is the cached visibility hint for one target.
type State struct {
	IsLimited  bool `json:"is_limited"`
	ShownCount int  `json:"shown_count"`
}

// Cache reads and advances visibility state. Implementations must
// never propagate backend failures: State falls back to defaults and
// IncrementShown to baseline+1.
type Cache interface {
	// State returns the cached hint, with limitedDefault and the
	// configured shown-count default filling any gaps.
	State(ctx context.Context, targetType string, targetID int64, limitedDefault bool) State
	// IncrementShown atomically advances the shown counter and
	// returns the new value, refreshing the entry TTL.
	IncrementShown(ctx context.Context, targetType string, targetID int64) int
}

// clampShown keeps the counter inside [0, MaxShownCount]; corrupt or
// negative values fall back to the baseline.
func clampShown(n, baseline int) int {
	if n < 0 {
		return baseline
	}
	if n > MaxShownCount {
		return MaxShownCount
	}
	return n
}
