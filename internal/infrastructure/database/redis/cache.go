package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = apperrors.New(apperrors.CodeNotFound, "cache miss")

// Serializer converts cached values to and from bytes.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Cache is the platform cache contract.  Values are serialized JSON.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet fills dest from the cache, or runs loader, stores its result
	// and fills dest from it.  Concurrent misses on the same key share one
	// loader call.
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
		loader func(ctx context.Context) (interface{}, error)) error

	Ping(ctx context.Context) error
}

type redisCache struct {
	client     redis.Cmdable
	logger     logging.Logger
	metrics    *prometheus.AppMetrics
	name       string
	prefix     string
	defaultTTL time.Duration
	serializer Serializer
	group      singleflight.Group
}

// CacheOption customizes a cache instance.
type CacheOption func(*redisCache)

// WithPrefix namespaces every key ("prefix:key").
func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithDefaultTTL sets the TTL used when Set receives ttl 0.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithSerializer replaces the JSON serializer.
func WithSerializer(s Serializer) CacheOption {
	return func(c *redisCache) { c.serializer = s }
}

// WithName labels the cache in metrics.
func WithName(name string) CacheOption {
	return func(c *redisCache) { c.name = name }
}

// NewCache builds a Cache over an existing Redis client.
func NewCache(client redis.Cmdable, logger logging.Logger, metrics *prometheus.AppMetrics, opts ...CacheOption) Cache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	c := &redisCache{
		client:     client,
		logger:     logger.Named("cache"),
		metrics:    metrics,
		name:       "default",
		defaultTTL: 24 * time.Hour,
		serializer: jsonSerializer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return ErrCacheMiss
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "cache get failed")
	}
	c.metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "cached value malformed")
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "cache value not serializable")
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "cache set failed")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "cache delete failed")
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.fullKey(key)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeCacheError, "cache exists failed")
	}
	return n > 0, nil
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
	loader func(ctx context.Context) (interface{}, error)) error {

	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !apperrors.IsNotFound(err) {
		c.logger.Warn("cache read failed, falling through to loader",
			logging.String("key", key), logging.Err(err))
	}

	data, err, _ := c.group.Do(c.fullKey(key), func() (interface{}, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, value, ttl); err != nil {
			// A write failure degrades to cacheless operation.
			c.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
		}
		return c.serializer.Marshal(value)
	})
	if err != nil {
		return err
	}
	return c.serializer.Unmarshal(data.([]byte), dest)
}

func (c *redisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "redis unavailable")
	}
	return nil
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
