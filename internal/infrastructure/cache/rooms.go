// Package cache holds in-process caches in front of slow stores.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/corepass/hallpass/internal/api/metrics"
	"github.com/corepass/hallpass/internal/core/ports"
)

const (
	defaultRoomCacheSize = 16
	defaultRoomCacheTTL  = 5 * time.Minute
	roomsKey             = "rooms"
)

// RoomCache serves the room list from memory for ttl before going back to
// the wrapped store. Each API instance keeps its own copy.
type RoomCache struct {
	next  ports.RoomStore
	cache *expirable.LRU[string, []string]
}

// NewRoomCache wraps next. Non-positive size or ttl fall back to defaults.
func NewRoomCache(next ports.RoomStore, size int, ttl time.Duration) *RoomCache {
	if size <= 0 {
		size = defaultRoomCacheSize
	}
	if ttl <= 0 {
		ttl = defaultRoomCacheTTL
	}
	return &RoomCache{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

// ListNames returns the cached room names or loads them from the store.
// Failed loads are not cached.
func (c *RoomCache) ListNames(ctx context.Context) ([]string, error) {
	if names, ok := c.cache.Get(roomsKey); ok {
		metrics.RoomCacheLookupsTotal.WithLabelValues("hit").Inc()
		return clone(names), nil
	}
	metrics.RoomCacheLookupsTotal.WithLabelValues("miss").Inc()

	names, err := c.next.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(roomsKey, clone(names))
	return names, nil
}

func clone(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}
