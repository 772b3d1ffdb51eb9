package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pharmaco-risk-server/internal/domain"
	"github.com/pharmaco-risk-server/internal/metrics"
)

const (
	defaultCacheTTL        = 15 * time.Minute
	defaultMemoryCacheSize = 1000
	predictionKeyPrefix    = "prediction"
)

// PredictionCache stores model predictions keyed by feature set.
type PredictionCache interface {
	Get(ctx context.Context, key string) (*domain.Prediction, bool)
	Set(ctx context.Context, key string, prediction *domain.Prediction)
}

// CachedPrediction represents a cached prediction with metadata
type CachedPrediction struct {
	Data      *domain.Prediction `json:"data"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (c CachedPrediction) expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// PredictionKey derives a stable cache key from the model inputs.
func PredictionKey(features domain.RiskFeatures, drugName, modelType string) string {
	data, _ := json.Marshal(struct {
		Features  domain.RiskFeatures `json:"f"`
		Drug      string              `json:"d"`
		ModelType string              `json:"m"`
	}{features, drugName, modelType})

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%x", predictionKeyPrefix, modelType, hash[:16])
}

// MemoryCache is the in-process LRU tier.
type MemoryCache struct {
	entries *lru.Cache[string, CachedPrediction]
	ttl     time.Duration
}

// NewMemoryCache creates an LRU cache holding up to size predictions.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		size = defaultMemoryCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	entries, err := lru.New[string, CachedPrediction](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{entries: entries, ttl: ttl}, nil
}

// Get implements PredictionCache.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.Prediction, bool) {
	cached, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	if cached.expired(time.Now()) {
		m.entries.Remove(key)
		return nil, false
	}
	p := *cached.Data
	return &p, true
}

// Set implements PredictionCache.
func (m *MemoryCache) Set(_ context.Context, key string, prediction *domain.Prediction) {
	if prediction == nil {
		return
	}
	now := time.Now()
	p := *prediction
	m.entries.Add(key, CachedPrediction{Data: &p, CachedAt: now, ExpiresAt: now.Add(m.ttl)})
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	return m.entries.Len()
}

// RedisCache is the distributed tier shared by server replicas.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCacheFromClient(client, config.TTL, logger), nil
}

func newRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{redis: client, defaultTTL: ttl, logger: logger}
}

// Get implements PredictionCache. Redis errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.Prediction, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to read prediction cache")
		return nil, false
	}

	var cached CachedPrediction
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false
	}

	if cached.expired(time.Now()) {
		c.redis.Del(ctx, key)
		return nil, false
	}

	return cached.Data, true
}

// Set implements PredictionCache.
func (c *RedisCache) Set(ctx context.Context, key string, prediction *domain.Prediction) {
	if prediction == nil {
		return
	}
	now := time.Now()
	cached := CachedPrediction{
		Data:      prediction,
		CachedAt:  now,
		ExpiresAt: now.Add(c.defaultTTL),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal prediction cache entry")
		return
	}

	if err := c.redis.Set(ctx, key, jsonData, c.defaultTTL).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write prediction cache")
	}
}

// Health implements domain.HealthChecker.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

// TieredCache checks the memory tier first, then Redis, and back-fills the
// memory tier on a Redis hit. Either tier may be nil.
type TieredCache struct {
	memory *MemoryCache
	redis  *RedisCache
}

// NewTieredCache combines the two tiers.
func NewTieredCache(memory *MemoryCache, redisCache *RedisCache) *TieredCache {
	return &TieredCache{memory: memory, redis: redisCache}
}

// Get implements PredictionCache.
func (t *TieredCache) Get(ctx context.Context, key string) (*domain.Prediction, bool) {
	if t.memory != nil {
		if p, ok := t.memory.Get(ctx, key); ok {
			metrics.PredictionCacheEvents.WithLabelValues("memory", "hit").Inc()
			return p, true
		}
		metrics.PredictionCacheEvents.WithLabelValues("memory", "miss").Inc()
	}

	if t.redis != nil {
		if p, ok := t.redis.Get(ctx, key); ok {
			metrics.PredictionCacheEvents.WithLabelValues("redis", "hit").Inc()
			if t.memory != nil {
				t.memory.Set(ctx, key, p)
			}
			return p, true
		}
		metrics.PredictionCacheEvents.WithLabelValues("redis", "miss").Inc()
	}

	return nil, false
}

// Set implements PredictionCache.
func (t *TieredCache) Set(ctx context.Context, key string, prediction *domain.Prediction) {
	if t.memory != nil {
		t.memory.Set(ctx, key, prediction)
	}
	if t.redis != nil {
		t.redis.Set(ctx, key, prediction)
	}
}

// Close releases the Redis tier, if any.
func (t *TieredCache) Close() error {
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}
