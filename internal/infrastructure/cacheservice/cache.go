package cacheservice

import (
	"time"

	"chainfolio/internal/app/port"
	"chainfolio/internal/pkg/metrics"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps an in-memory TTL cache behind port.SummaryCache. Expired
// entries are evicted lazily on read and swept in the background at the
// cleanup interval.
type Cache struct {
	store  *gocache.Cache
	logger port.Logger
}

// New creates a derived-payload cache with the given default TTL.
func New(defaultTTL, cleanupInterval time.Duration, logger port.Logger) *Cache {
	store := gocache.New(defaultTTL, cleanupInterval)
	store.OnEvicted(func(key string, _ any) {
		logger.Debug("Cache entry evicted", "key", key)
	})
	return &Cache{
		store:  store,
		logger: logger,
	}
}

// Get returns a cached value when present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	value, found := c.store.Get(key)
	if found {
		metrics.CacheOpsTotal.WithLabelValues("hit").Inc()
		return value, true
	}
	metrics.CacheOpsTotal.WithLabelValues("miss").Inc()
	return nil, false
}

// Set stores a value under the key. A non-positive TTL falls back to the
// cache default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.store.SetDefault(key, value)
		return
	}
	c.store.Set(key, value, ttl)
}

// Delete removes a key if present.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}
