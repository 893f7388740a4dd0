// Package cache holds the advisory idempotency caches.  A hit lets a
// retried booking skip the ledger lookup; a miss, an error or a stale
// entry only costs that lookup, because the unique index on
// (restaurant_id, idempotency_key) is what actually prevents duplicates.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a token mapping stays cached.
const DefaultTTL = 24 * time.Hour

func entryKey(prefix string, restaurantID uint64, token string) string {
	return fmt.Sprintf("%s:%d:%s", prefix, restaurantID, token)
}

// RedisIdempotency shares token mappings between instances through Redis.
type RedisIdempotency struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisIdempotency returns a Redis backed cache.  A non-positive ttl
// falls back to DefaultTTL.
func NewRedisIdempotency(rdb *redis.Client, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisIdempotency{rdb: rdb, ttl: ttl, prefix: "idem"}
}

// Get returns the booking ID cached for the token.
func (c *RedisIdempotency) Get(ctx context.Context, restaurantID uint64, token string) (uint64, bool, error) {
	v, err := c.rdb.Get(ctx, entryKey(c.prefix, restaurantID, token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cached booking id %q: %w", v, err)
	}
	return id, true, nil
}

// Put records the booking ID for the token.  An existing mapping is kept.
func (c *RedisIdempotency) Put(ctx context.Context, restaurantID uint64, token string, bookingID uint64) error {
	return c.rdb.SetNX(ctx, entryKey(c.prefix, restaurantID, token), strconv.FormatUint(bookingID, 10), c.ttl).Err()
}

// MemoryIdempotency keeps token mappings in process.  Used when Redis is
// not reachable at start-up.
type MemoryIdempotency struct {
	c *gocache.Cache
}

// NewMemoryIdempotency returns an in-process cache with entries expiring
// after ttl.
func NewMemoryIdempotency(ttl time.Duration) *MemoryIdempotency {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryIdempotency{c: gocache.New(ttl, 10*time.Minute)}
}

func (m *MemoryIdempotency) Get(_ context.Context, restaurantID uint64, token string) (uint64, bool, error) {
	v, ok := m.c.Get(entryKey("idem", restaurantID, token))
	if !ok {
		return 0, false, nil
	}
	return v.(uint64), true, nil
}

func (m *MemoryIdempotency) Put(_ context.Context, restaurantID uint64, token string, bookingID uint64) error {
	// Add fails when the key exists, which keeps the first mapping.
	_ = m.c.Add(entryKey("idem", restaurantID, token), bookingID, gocache.DefaultExpiration)
	return nil
}
