package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/campus-match/internal/config"
)

// CounterTTL is how long an unread counter lives after it was written.
const CounterTTL = time.Hour

// versionTTL outlives any counter written under the version.
const versionTTL = 24 * time.Hour

var errStaleCounter = errors.New("counter invalidated meanwhile")

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForUnreadNotifications generates the Redis key for a user's unread notification count.
func (c *RedisCache) KeyForUnreadNotifications(userID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// GetCounter returns a cached counter. ok is false on a cache miss.
func (c *RedisCache) GetCounter(ctx context.Context, key string) (n int64, ok bool, err error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		// corrupted value, treat as a miss
		return 0, false, nil
	}
	return n, true, nil
}

func versionKey(key string) string { return key + ":v" }

// CounterVersion returns the generation of key. Every Invalidate bumps it.
// Read it before computing the value passed to SetCounterIfCurrent.
func (c *RedisCache) CounterVersion(ctx context.Context, key string) (int64, error) {
	v, err := c.Client.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetCounterIfCurrent stores n only if key was not invalidated since version
// was read. It reports whether the value was written.
func (c *RedisCache) SetCounterIfCurrent(ctx context.Context, key string, version, n int64) (bool, error) {
	vkey := versionKey(key)
	err := c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStaleCounter
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, n, CounterTTL)
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, errStaleCounter) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return err == nil, err
}

// Invalidate drops cached keys and bumps their versions so a value computed
// before the invalidation is never written back.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.Incr(ctx, versionKey(key))
			p.Expire(ctx, versionKey(key), versionTTL)
		}
		p.Del(ctx, keys...)
		return nil
	})
	return err
}
