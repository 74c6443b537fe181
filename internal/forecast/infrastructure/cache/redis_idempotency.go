// Package cache provides caching infrastructure for the
// resource-forecasting service.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gdralph/rfot/internal/forecast/application/ports"
)

// RedisIdempotencyConfig holds Redis connection configuration.
type RedisIdempotencyConfig struct {
	Address      string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	KeyPrefix    string
}

// DefaultRedisIdempotencyConfig returns default Redis configuration.
func DefaultRedisIdempotencyConfig() RedisIdempotencyConfig {
	return RedisIdempotencyConfig{
		Address:      "localhost:6379",
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		KeyPrefix:    "forecast:idempotency:",
	}
}

// RedisIdempotencyCache implements ports.IdempotencyCache using Redis's
// SetNX for the Reserve race and a plain key/TTL pair for the stored
// result, the same Redis client and Options wiring the rest of the pack
// uses for caching.
type RedisIdempotencyCache struct {
	client *redis.Client
	config RedisIdempotencyConfig
}

// NewRedisIdempotencyCache creates a new Redis-backed idempotency cache
// and verifies connectivity.
func NewRedisIdempotencyCache(config RedisIdempotencyConfig) (*RedisIdempotencyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyCache{client: client, config: config}, nil
}

func (c *RedisIdempotencyCache) reservationKey(key string) string {
	return c.config.KeyPrefix + key + ":reserved"
}

func (c *RedisIdempotencyCache) resultKey(key string) string {
	return c.config.KeyPrefix + key + ":result"
}

// Reserve claims key via SETNX, the atomic primitive that makes the first
// caller the winner under concurrent generate_bulk/clear_predicted retries.
func (c *RedisIdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	won, err := c.client.SetNX(ctx, c.reservationKey(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return won, nil
}

// Store records the winning call's result.
func (c *RedisIdempotencyCache) Store(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.resultKey(key), result, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

// Get retrieves a previously stored result.
func (c *RedisIdempotencyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.resultKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get idempotency result: %w", err)
	}
	return data, true, nil
}

// Release drops the reservation so a retry after a failed in-flight call
// is not permanently wedged.
func (c *RedisIdempotencyCache) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.reservationKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *RedisIdempotencyCache) Close() error {
	return c.client.Close()
}

var _ ports.IdempotencyCache = (*RedisIdempotencyCache)(nil)
