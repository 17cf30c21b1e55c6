package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"object-paint-agent/internal/config"
	"object-paint-agent/internal/core"
)

const redisKeyPrefix = "mask:"

// RedisCache shares masks between server replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (core.Mask, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Mask{}, false, nil
		}
		return core.Mask{}, false, err
	}
	mask, err := decodeMask(data)
	if err != nil {
		return core.Mask{}, false, err
	}
	return mask, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, mask core.Mask) error {
	data, err := encodeMask(mask)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
