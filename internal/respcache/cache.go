// Package respcache memoizes per-user GET responses in Redis so repeated
// reads of an unchanged resume skip the document tree load.
package respcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores rendered response bodies keyed by user and request path.
// Every entry is also tracked in a per-user key set so a single write can
// invalidate everything that user might re-read.
type Cache struct {
	client *redis.Client
	ttl    time.Duration

	// mu serializes population so concurrent misses for the same key do
	// not both recompute and race on the tracked set.
	mu sync.Mutex
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func entryKey(userID int64, path string) string {
	return fmt.Sprintf("response:%d:%s", userID, path)
}

func trackKey(userID int64) string {
	return fmt.Sprintf("response-keys:%d", userID)
}

// Get returns the cached body for the user and path, or ok=false on a miss.
func (c *Cache) Get(ctx context.Context, userID int64, path string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, entryKey(userID, path)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return body, true, nil
}

// Put stores a response body and records its key in the user's tracked set.
func (c *Cache) Put(ctx context.Context, userID int64, path string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey(userID, path)
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	track := trackKey(userID)
	if err := c.client.SAdd(ctx, track, key).Err(); err != nil {
		return fmt.Errorf("cache track: %w", err)
	}
	// The tracked set outlives its entries slightly so invalidation can
	// still find expired keys.
	if err := c.client.Expire(ctx, track, c.ttl+time.Minute).Err(); err != nil {
		return fmt.Errorf("cache track expire: %w", err)
	}
	return nil
}

// Invalidate drops every cached response for the user.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	track := trackKey(userID)
	keys, err := c.client.SMembers(ctx, track).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache invalidate entries: %w", err)
		}
	}
	if err := c.client.Del(ctx, track).Err(); err != nil {
		return fmt.Errorf("cache invalidate tracker: %w", err)
	}
	return nil
}
