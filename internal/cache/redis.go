package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisCmdable is the subset of the go-redis client used by Redis.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis stores worksheet values as JSON with a server-side expiry.
type Redis struct {
	rdb    RedisCmdable
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis cache. Keys are stored as prefix+key.
func NewRedis(rdb RedisCmdable, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "retention:sheet:"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get implements Cache.
func (c *Redis) Get(ctx context.Context, key string) ([][]string, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: redis get %s", key)
	}

	var values [][]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, eris.Wrapf(err, "cache: decode %s", key)
	}
	return values, true, nil
}

// Set implements Cache.
func (c *Redis) Set(ctx context.Context, key string, values [][]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return eris.Wrap(err, "cache: encode values")
	}
	return eris.Wrapf(c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(), "cache: redis set %s", key)
}

// Delete implements Cache.
func (c *Redis) Delete(ctx context.Context, key string) error {
	return eris.Wrapf(c.rdb.Del(ctx, c.prefix+key).Err(), "cache: redis del %s", key)
}
