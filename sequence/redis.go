// ABOUTME: Redis-backed allocator shared across processes
// ABOUTME: Counters are Redis integers advanced with INCR
package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAllocator keeps counters as Redis integers and relies on INCR for
// atomicity across processes.
type RedisAllocator struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisAllocator creates an allocator storing counters under "counter:<name>".
func NewRedisAllocator(client redis.Cmdable) *RedisAllocator {
	return &RedisAllocator{client: client, keyPrefix: "counter:"}
}

// DialRedis parses url, connects and pings. The caller owns the returned client.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Next increments the counter and returns its new value.
func (a *RedisAllocator) Next(ctx context.Context, counter string) (int64, error) {
	n, err := a.client.Incr(ctx, a.keyPrefix+counter).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", counter, err)
	}
	return n, nil
}
