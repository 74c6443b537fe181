// Package ports declares the outbound interfaces the forecast usecases
// depend on but do not implement: event publishing and the idempotency
// cache backing generate_bulk and clear_predicted.
package ports

import (
	"context"
	"time"
)

// ============================================================================
// Event Publisher Port
// ============================================================================

// EventPublisher defines the interface for publishing domain events. The
// forecast core emits forecast.timeline.generated after compute_timeline and
// forecast.bulk_generation.completed after generate_bulk finishes (§5);
// publish failures are logged and never fail the originating request.
type EventPublisher interface {
	// Publish publishes a single event to the event bus.
	Publish(ctx context.Context, event Event) error

	// PublishBatch publishes multiple events to the event bus.
	PublishBatch(ctx context.Context, events []Event) error
}

// Event represents a domain event to be published.
type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	AggregateID   string                 `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	Payload       map[string]interface{} `json:"payload"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// ============================================================================
// Idempotency Cache Port
// ============================================================================

// IdempotencyCache gives generate_bulk and clear_predicted a way to dedupe
// concurrent or retried calls carrying the same idempotency key (§5's
// concurrency model: bulk generation runs a worker pool against a shared
// portfolio, so a second caller with the same key must observe the first
// call's result rather than re-running the walk).
type IdempotencyCache interface {
	// Reserve atomically claims key for ttl and reports whether the
	// reservation was won. A losing caller should fetch the winner's
	// recorded result with Get instead of redoing the work.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Store records the JSON-encoded result of the call that won Reserve.
	Store(ctx context.Context, key string, result []byte, ttl time.Duration) error

	// Get retrieves a previously stored result, or ok=false if none exists
	// yet (the winning call may still be in flight).
	Get(ctx context.Context, key string) (result []byte, ok bool, err error)

	// Release drops the reservation, used when the winning call fails
	// before it can Store a result so a later retry is not wedged.
	Release(ctx context.Context, key string) error
}
