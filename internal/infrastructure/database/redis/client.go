// Package redis provides the Redis client and the platform cache used for
// analysis results.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "redis ping failed")
	}
	return client, nil
}
