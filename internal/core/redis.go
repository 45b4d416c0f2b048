// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/eventhub/internal/config"
)

type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

// Cache is a string cache that never fails the caller. Redis errors are
// logged and treated as misses.
type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewCache(client redis.Cmdable, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, k string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}

	val, err := c.client.Get(ctx, c.key(k)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("cache get failed", "key", c.key(k), "error", err)
		return "", false
	}

	return val, true
}

func (c *Cache) Set(ctx context.Context, k, value string) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Set(ctx, c.key(k), value, c.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", c.key(k), "error", err)
	}
}

func (c *Cache) Delete(ctx context.Context, k string) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, c.key(k)).Err(); err != nil {
		slog.Warn("cache delete failed", "key", c.key(k), "error", err)
	}
}
