package programs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const listCacheKey = "programs:active"

// ListCache caches the active program listing in Redis. Concurrent cache
// misses collapse into a single repository read via singleflight.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewListCache constructs a ListCache.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ListCache{client: client, ttl: ttl}
}

// Get returns the cached listing, filling it via load on a miss. A nil cache
// or an unreachable Redis degrades to loading directly.
func (c *ListCache) Get(ctx context.Context, load func(context.Context) ([]Program, error)) ([]Program, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	data, err := c.client.Get(ctx, listCacheKey).Bytes()
	if err == nil {
		var cached []Program
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return load(ctx)
	}

	result, err, _ := c.group.Do(listCacheKey, func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(fresh); err == nil {
			c.client.Set(ctx, listCacheKey, encoded, c.ttl)
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Program), nil
}

// Invalidate drops the cached listing after a program or ledger mutation.
func (c *ListCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, listCacheKey)
}
