package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	likeCountKeyPrefix     = "social:likes:"
	followerCountKeyPrefix = "social:followers:"
)

// CounterCache defines Redis operations for caching like and follower counts.
type CounterCache interface {
	GetLikeCount(ctx context.Context, postID string) (int64, bool, error)
	SetLikeCount(ctx context.Context, postID string, count int64) error
	CondIncrLikeCount(ctx context.Context, postID string) error
	CondDecrLikeCount(ctx context.Context, postID string) error
	GetFollowerCount(ctx context.Context, userID string) (int64, bool, error)
	SetFollowerCount(ctx context.Context, userID string, count int64) error
	CondIncrFollowerCount(ctx context.Context, userID string) error
	CondDecrFollowerCount(ctx context.Context, userID string) error
	Close() error
}

// RedisCounterCache implements CounterCache backed by Redis.
type RedisCounterCache struct {
	client *redis.Client
}

// NewRedisCounterCache creates a new Redis-backed counter cache.
func NewRedisCounterCache(address, password string, db int) (*RedisCounterCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCounterCache{client: client}, nil
}

func likeCountKey(postID string) string {
	return likeCountKeyPrefix + postID
}

func followerCountKey(userID string) string {
	return followerCountKeyPrefix + userID
}

// condIncrScript atomically increments the key only if it exists.
// Returns the new value if incremented, 0 if key did not exist.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return redis.call("INCR", key)
end
return 0
`)

// condDecrScript atomically decrements the key only if it exists and result >= 0.
// Returns the new value if decremented, 0 if key did not exist.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return redis.call("DECR", key)
  end
end
return 0
`)

func (c *RedisCounterCache) getCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse count: %w", err)
	}
	return count, true, nil
}

func (c *RedisCounterCache) setCount(ctx context.Context, key string, count int64) error {
	if err := c.client.Set(ctx, key, count, 0).Err(); err != nil {
		return fmt.Errorf("redis set count: %w", err)
	}
	return nil
}

func (c *RedisCounterCache) condIncr(ctx context.Context, key string) error {
	err := condIncrScript.Run(ctx, c.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond incr: %w", err)
	}
	return nil
}

func (c *RedisCounterCache) condDecr(ctx context.Context, key string) error {
	err := condDecrScript.Run(ctx, c.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond decr: %w", err)
	}
	return nil
}

// GetLikeCount returns the cached like count for a post.
// Returns (count, true, nil) on hit, (0, false, nil) on miss, (0, false, err) on error.
func (c *RedisCounterCache) GetLikeCount(ctx context.Context, postID string) (int64, bool, error) {
	return c.getCount(ctx, likeCountKey(postID))
}

// SetLikeCount sets the like count for a post in Redis.
func (c *RedisCounterCache) SetLikeCount(ctx context.Context, postID string, count int64) error {
	return c.setCount(ctx, likeCountKey(postID), count)
}

// CondIncrLikeCount atomically increments the like count only if the key exists.
// This prevents event consumers from initializing a key with a partial count.
func (c *RedisCounterCache) CondIncrLikeCount(ctx context.Context, postID string) error {
	return c.condIncr(ctx, likeCountKey(postID))
}

// CondDecrLikeCount atomically decrements the like count only if the key exists.
func (c *RedisCounterCache) CondDecrLikeCount(ctx context.Context, postID string) error {
	return c.condDecr(ctx, likeCountKey(postID))
}

// GetFollowerCount returns the cached follower count for a user.
func (c *RedisCounterCache) GetFollowerCount(ctx context.Context, userID string) (int64, bool, error) {
	return c.getCount(ctx, followerCountKey(userID))
}

// SetFollowerCount sets the follower count for a user in Redis.
func (c *RedisCounterCache) SetFollowerCount(ctx context.Context, userID string, count int64) error {
	return c.setCount(ctx, followerCountKey(userID), count)
}

// CondIncrFollowerCount atomically increments the follower count only if the key exists.
func (c *RedisCounterCache) CondIncrFollowerCount(ctx context.Context, userID string) error {
	return c.condIncr(ctx, followerCountKey(userID))
}

// CondDecrFollowerCount atomically decrements the follower count only if the key exists.
func (c *RedisCounterCache) CondDecrFollowerCount(ctx context.Context, userID string) error {
	return c.condDecr(ctx, followerCountKey(userID))
}

// Close closes the Redis client.
func (c *RedisCounterCache) Close() error {
	return c.client.Close()
}

var _ CounterCache = (*RedisCounterCache)(nil)
