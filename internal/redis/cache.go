package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T; each instance holds a Redis client and an
// optional TTL (pass 0 for keys that should not expire).
type ViewCache[T any] struct {
	client  *goredis.Client
	ttl     time.Duration
	name    string
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
// name labels the cache in logs and metrics.
func NewViewCache[T any](client *goredis.Client, name string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{
		client:  client,
		ttl:     ttl,
		name:    name,
		metrics: metrics.NoOpCollector{},
		logger:  logging.L().Named("cache").With(zap.String("cache", name)),
	}
}

// WithMetrics reports hits and misses to collector.
func (c *ViewCache[T]) WithMetrics(collector metrics.MetricsCollector) *ViewCache[T] {
	if collector != nil {
		c.metrics = collector
	}
	return c
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.RecordCacheGet(c.name, false)
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		c.metrics.RecordCacheGet(c.name, false)
		return nil, false
	}
	c.metrics.RecordCacheGet(c.name, true)
	return &v, true
}

// Set marshals value and stores it in Redis under key.
// Errors are logged rather than returned: a failed cache write is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePattern removes every key matching pattern.
func (c *ViewCache[T]) DeletePattern(ctx context.Context, pattern string) {
	if _, err := DeletePattern(ctx, c.client, pattern); err != nil {
		c.logger.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
