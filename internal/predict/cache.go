package predict

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/features"
)

// CacheKey represents a unique key for caching predictions
type CacheKey struct {
	ModelVersion string
	Fingerprint  string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return k.ModelVersion + ":" + k.Fingerprint
}

// KeyFor fingerprints a vector for version. Identical vectors share a key.
func KeyFor(version string, v features.FeatureVector) (CacheKey, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return CacheKey{}, err
	}
	sum := sha256.Sum256(data)
	return CacheKey{ModelVersion: version, Fingerprint: hex.EncodeToString(sum[:16])}, nil
}

// PredictionCache provides in-memory caching for predictions
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction
func (pc *PredictionCache) Get(key CacheKey) (float64, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if v, found := pc.cache.Get(key.String()); found {
		if p, ok := v.(float64); ok {
			pc.hitCount++
			pc.updateMetrics()
			CacheLookupsTotal.WithLabelValues("hit").Inc()
			return p, true
		}
	}
	pc.missCount++
	pc.updateMetrics()
	CacheLookupsTotal.WithLabelValues("miss").Inc()
	return 0, false
}

// Set stores a prediction in cache
func (pc *PredictionCache) Set(key CacheKey, p float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return
		}
	}
	pc.cache.Set(key.String(), p, pc.ttl)
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Flush()
	pc.hitCount = 0
	pc.missCount = 0
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.stats()
}

func (pc *PredictionCache) stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount
	misses = pc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.stats()
	CacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}

// CachedModel wraps a Model with prediction caching
type CachedModel struct {
	model  Model
	cache  *PredictionCache
	logger *logrus.Logger
}

// NewCachedModel creates a new cached model
func NewCachedModel(model Model, cache *PredictionCache, logger *logrus.Logger) *CachedModel {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedModel{model: model, cache: cache, logger: logger}
}

// Predict retrieves a prediction with caching
func (c *CachedModel) Predict(ctx context.Context, v features.FeatureVector) (float64, error) {
	key, err := KeyFor(c.model.Version(), v)
	if err != nil {
		return c.model.Predict(ctx, v)
	}

	if p, ok := c.cache.Get(key); ok {
		c.logger.WithField("cache_key", key.String()).Debug("Cache hit for prediction")
		return p, nil
	}

	p, err := c.model.Predict(ctx, v)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, p)
	return p, nil
}

// Version returns the wrapped model's version
func (c *CachedModel) Version() string {
	return c.model.Version()
}

// GetCacheStats returns cache statistics
func (c *CachedModel) GetCacheStats() (hits, misses uint64, hitRatio float64) {
	return c.cache.Stats()
}
