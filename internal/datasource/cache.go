package datasource

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// ResponseCache keeps raw provider responses for a TTL so repeated runs for
// the same date do not spend rate-limited quota.
type ResponseCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewResponseCache creates a cache. A non-positive ttl uses 24 hours.
func NewResponseCache(ttl time.Duration, maxSize int) *ResponseCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ResponseCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Key builds a cache key from provider, endpoint and query parameters. The
// api key parameter is dropped so secrets never end up in keys.
func Key(provider, endpoint string, params url.Values) string {
	clean := url.Values{}
	for k, v := range params {
		if k == "apiKey" || k == "api_key" {
			continue
		}
		clean[k] = v
	}
	sum := sha256.Sum256([]byte(clean.Encode()))
	return provider + ":" + endpoint + ":" + hex.EncodeToString(sum[:8])
}

// Get returns a cached body.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if v, found := c.cache.Get(key); found {
		if body, ok := v.([]byte); ok {
			c.hitCount.Add(1)
			return body, true
		}
	}
	c.missCount.Add(1)
	return nil, false
}

// Set stores a body under key.
func (c *ResponseCache) Set(key string, body []byte) {
	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			return
		}
	}
	c.cache.Set(key, body, c.ttl)
}

// Clear flushes the cache and resets statistics.
func (c *ResponseCache) Clear() {
	c.cache.Flush()
	c.hitCount.Store(0)
	c.missCount.Store(0)
}

// Stats returns cache statistics
func (c *ResponseCache) Stats() (hits, misses uint64, ratio float64) {
	hits = c.hitCount.Load()
	misses = c.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (c *ResponseCache) ItemCount() int {
	return c.cache.ItemCount()
}
