//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/gdralph/rfot/pkg/testing/containers"
	"github.com/gdralph/rfot/pkg/testing/helpers"
)

// Exercises RedisIdempotencyCache against a real Redis instance, the same
// live-container approach the teacher's pkg/database integration tests use
// instead of stubbing the go-redis client.

func setupIdempotencyCache(t *testing.T) *RedisIdempotencyCache {
	t.Helper()
	helpers.SkipIfShort(t)

	ctx, cancel := helpers.DefaultTestContext()
	defer cancel()

	rc, err := containers.NewRedisContainer(ctx, containers.RedisContainerConfig{DB: 1})
	helpers.AssertNoError(t, err)
	t.Cleanup(func() { rc.Client.Close() })

	cache, err := NewRedisIdempotencyCache(RedisIdempotencyConfig{
		Address:   rc.Host + ":" + rc.Port,
		Password:  rc.Password,
		DB:        1,
		KeyPrefix: "forecast:idempotency:test:" + helpers.GenerateRandomString(8) + ":",
	})
	helpers.AssertNoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestRedisIdempotencyCache_ReserveIsExclusive(t *testing.T) {
	cache := setupIdempotencyCache(t)
	ctx := context.Background()

	won, err := cache.Reserve(ctx, "generate_bulk:req-1", time.Minute)
	helpers.AssertNoError(t, err)
	helpers.AssertTrue(t, won, "first reservation should win")

	wonAgain, err := cache.Reserve(ctx, "generate_bulk:req-1", time.Minute)
	helpers.AssertNoError(t, err)
	helpers.AssertFalse(t, wonAgain, "a second reservation for the same key must lose")
}

func TestRedisIdempotencyCache_StoreThenGet(t *testing.T) {
	cache := setupIdempotencyCache(t)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "clear_predicted:req-2")
	helpers.AssertNoError(t, err)
	helpers.AssertFalse(t, found)

	payload := []byte(`{"cleared":7}`)
	helpers.AssertNoError(t, cache.Store(ctx, "clear_predicted:req-2", payload, time.Minute))

	got, found, err := cache.Get(ctx, "clear_predicted:req-2")
	helpers.AssertNoError(t, err)
	helpers.AssertTrue(t, found)
	helpers.AssertEqual(t, string(payload), string(got))
}

func TestRedisIdempotencyCache_ReleaseAllowsRetry(t *testing.T) {
	cache := setupIdempotencyCache(t)
	ctx := context.Background()

	won, err := cache.Reserve(ctx, "generate_bulk:req-3", time.Minute)
	helpers.AssertNoError(t, err)
	helpers.AssertTrue(t, won)

	helpers.AssertNoError(t, cache.Release(ctx, "generate_bulk:req-3"))

	wonAfterRelease, err := cache.Reserve(ctx, "generate_bulk:req-3", time.Minute)
	helpers.AssertNoError(t, err)
	helpers.AssertTrue(t, wonAfterRelease, "a retry after release must be able to win the reservation again")
}
