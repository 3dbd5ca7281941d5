// Package cache provides the optional Redis-backed response cache for
// serve mode. Every anonymize request is keyed by a digest of its
// canonical body; identical requests within the TTL are answered from the
// cached response without re-running the engine.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ResultCache handles Redis-based caching of anonymization responses
type ResultCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   int64
	misses int64
}

// NewResultCache creates a new Redis-based result cache
func NewResultCache(config *Config, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	cache := &ResultCache{
		client: client,
		config: config,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// Key derives the cache key for a canonical request body.
func Key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for key, or (nil, false) on a miss.
// Lookup failures count as misses so the caller always recomputes.
func (rc *ResultCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := rc.client.Get(ctx, rc.prefixed(key)).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}
	if err != nil {
		atomic.AddInt64(&rc.misses, 1)
		rc.logger.Error("Cache lookup failed", zap.Error(err))
		return nil, false
	}

	atomic.AddInt64(&rc.hits, 1)
	rc.logger.Debug("Cache hit", zap.String("key", key))
	return data, true
}

// Set stores a response under key with the configured TTL. Failures are
// logged and swallowed; caching is best-effort.
func (rc *ResultCache) Set(ctx context.Context, key string, payload []byte) {
	if err := rc.client.Set(ctx, rc.prefixed(key), payload, rc.config.DefaultTTL).Err(); err != nil {
		rc.logger.Error("Cache store failed", zap.Error(err))
	}
}

// Stats returns cache performance statistics
func (rc *ResultCache) Stats() Stats {
	hits := atomic.LoadInt64(&rc.hits)
	misses := atomic.LoadInt64(&rc.misses)

	stats := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Close closes the Redis connection
func (rc *ResultCache) Close() error {
	return rc.client.Close()
}

func (rc *ResultCache) prefixed(key string) string {
	if rc.config.KeyPrefix == "" {
		return "response:" + key
	}
	return rc.config.KeyPrefix + ":response:" + key
}

// maskRedisURL hides credentials in the URL for logging
func maskRedisURL(url string) string {
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
