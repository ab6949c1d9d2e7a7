package visibility

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	limited    bool
	limitedSet bool
	count      int
	countSet   bool
	expires    time.Time
}

// MemoryCache is a development-only in-process implementation.
// WARNING: not suitable for production. State is lost on restart and
// does not work across multiple instances.
type MemoryCache struct {
	mu           sync.Mutex
	ttl          time.Duration
	defaultShown int
	entries      map[string]entry
	now          func() time.Time
}

func NewMemoryCache(ttl time.Duration, defaultShown int) *MemoryCache {
	if defaultShown <= 0 {
		defaultShown = DefaultShownCount
	}
	return &MemoryCache{
		ttl:          ttl,
		defaultShown: defaultShown,
		entries:      make(map[string]entry),
		now:          time.Now,
	}
}

func (c *MemoryCache) State(_ context.Context, targetType string, targetID int64, limitedDefault bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{IsLimited: limitedDefault, ShownCount: c.defaultShown}
	e, ok := c.live(targetKey(targetType, targetID))
	if !ok {
		return st
	}
	if e.limitedSet {
		st.IsLimited = e.limited
	}
	if e.countSet {
		st.ShownCount = clampShown(e.count, c.defaultShown)
	}
	return st
}

func (c *MemoryCache) IncrementShown(_ context.Context, targetType string, targetID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := targetKey(targetType, targetID)
	e, ok := c.live(key)
	if !ok || !e.countSet {
		e.count = c.defaultShown
	}
	e.count = clampShown(e.count+1, c.defaultShown)
	if e.count <= c.defaultShown {
		e.count = c.defaultShown + 1
	}
	e.countSet = true
	e.expires = c.now().Add(c.ttl)
	c.entries[key] = e
	return e.count
}

// SetLimited stores the is-limited flag; exposed for the widget layer
// and tests.
func (c *MemoryCache) SetLimited(_ context.Context, targetType string, targetID int64, limited bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := targetKey(targetType, targetID)
	e, _ := c.live(key)
	e.limited = limited
	e.limitedSet = true
	e.expires = c.now().Add(c.ttl)
	c.entries[key] = e
}

// live returns the entry if present and unexpired. Caller holds the lock.
func (c *MemoryCache) live(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

func targetKey(targetType string, targetID int64) string {
	// Both cache values share one entry in process; the external key
	// split only matters for the redis protocol.
	return shownCountKey(targetType, targetID)
}
