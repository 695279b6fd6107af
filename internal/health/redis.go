// Package health adapts external dependencies to the readiness probe.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker pings the rate-limit Redis.
type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
