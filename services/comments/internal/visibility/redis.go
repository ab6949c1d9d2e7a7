package visibility

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache holds visibility state in Redis with a fixed TTL.
type RedisCache struct {
	client       *redis.Client
	ttl          time.Duration
	defaultShown int
	log          *zap.Logger
}

// NewRedisCache connects to Redis at dsn. Plain host:port values are
// accepted alongside redis:// URLs.
func NewRedisCache(dsn string, ttl time.Duration, defaultShown int, log *zap.Logger) *RedisCache {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		opts = &redis.Options{Addr: dsn}
	}
	if defaultShown <= 0 {
		defaultShown = DefaultShownCount
	}
	return &RedisCache{
		client:       redis.NewClient(opts),
		ttl:          ttl,
		defaultShown: defaultShown,
		log:          log,
	}
}

func (c *RedisCache) State(ctx context.Context, targetType string, targetID int64, limitedDefault bool) State {
	st := State{IsLimited: limitedDefault, ShownCount: c.defaultShown}

	vals, err := c.client.MGet(ctx, isLimitedKey(targetType, targetID), shownCountKey(targetType, targetID)).Result()
	if err != nil {
		c.log.Warn("visibility: state read failed, using defaults",
			zap.String("target_type", targetType), zap.Int64("target_id", targetID), zap.Error(err))
		return st
	}

	if s, ok := vals[0].(string); ok {
		st.IsLimited = s != "0" && s != ""
	}
	if s, ok := vals[1].(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			st.ShownCount = clampShown(n, c.defaultShown)
		}
	}
	return st
}

func (c *RedisCache) IncrementShown(ctx context.Context, targetType string, targetID int64) int {
	key := shownCountKey(targetType, targetID)

	// Native atomic increment; concurrent posts must not lose updates.
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("visibility: increment failed, using baseline",
			zap.String("target_type", targetType), zap.Int64("target_id", targetID), zap.Error(err))
		return c.defaultShown + 1
	}

	n := clampShown(int(incr.Val()), c.defaultShown)
	// A fresh counter starts below the collapsed-window size; never
	// report fewer shown comments than the window already displays.
	if n <= c.defaultShown {
		n = c.defaultShown + 1
		if err := c.client.Set(ctx, key, n, c.ttl).Err(); err != nil {
			c.log.Warn("visibility: counter rebase failed", zap.Error(err))
		}
	}
	return n
}

// Ping verifies connectivity at wiring time.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
