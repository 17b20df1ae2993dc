package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ledger/internal/log"
)

// RedisCache stores byte payloads in Redis so several API replicas share
// rendered responses. Keys are namespaced with prefix.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

var _ Cache[[]byte] = (*RedisCache)(nil)

func NewRedisCache(addr, prefix string, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client:  rdb,
		prefix:  prefix,
		ttl:     ttl,
		timeout: 2 * time.Second,
	}
}

// Ping checks connectivity; callers fall back to the in-process cache on error.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis get failed", log.FieldComponent, log.ComponentCache, "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(key string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		slog.Warn("Redis set failed", log.FieldComponent, log.ComponentCache, "key", key, "error", err)
	}
}

func (r *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		slog.Warn("Redis delete failed", log.FieldComponent, log.ComponentCache, "key", key, "error", err)
	}
}

// Size returns the number of keys in the selected Redis database, which may
// include keys outside prefix.
func (r *RedisCache) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
