//go:build integration

package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gdralph/rfot/internal/forecast/application/ports"
	"github.com/gdralph/rfot/pkg/logger"
	"github.com/gdralph/rfot/pkg/testing/containers"
	"github.com/gdralph/rfot/pkg/testing/helpers"
)

// Verifies RabbitMQPublisher actually lands a message on a bound queue,
// using the same live-broker container approach the teacher's integration
// tests use elsewhere rather than stubbing amqp091-go.

func TestRabbitMQPublisher_PublishIsConsumable(t *testing.T) {
	helpers.SkipIfShort(t)

	ctx, cancel := helpers.DefaultTestContext()
	defer cancel()

	exchange := "forecast.events.test." + helpers.GenerateRandomString(6)

	consumer, err := containers.NewRabbitMQContainer(ctx, containers.RabbitMQContainerConfig{
		User:         "guest",
		Password:     "guest",
		VHost:        "/",
		Exchange:     exchange,
		ExchangeType: "topic",
	})
	helpers.AssertNoError(t, err)
	defer consumer.Close()

	helpers.AssertNoError(t, consumer.DeclareQueue("forecast.events.test.queue", "forecast.timeline.generated"))

	publisher, err := NewRabbitMQPublisher(RabbitMQConfig{
		URL:               consumer.ConnectionURL(),
		Exchange:          exchange,
		ExchangeType:      "topic",
		Durable:           true,
		ContentType:       "application/json",
		DeliveryMode:      2,
		ReconnectDelay:    time.Second,
		MaxReconnectTries: 1,
	}, logger.New(logger.Config{Level: "error", Format: "console"}))
	helpers.AssertNoError(t, err)
	defer publisher.Close()

	event := ports.Event{
		ID:            "evt-1",
		Type:          "forecast.timeline.generated",
		AggregateType: "opportunity",
		AggregateID:   "opp-1",
		OccurredAt:    time.Now().UTC(),
		Payload:       map[string]interface{}{"opportunity_id": "opp-1"},
	}
	helpers.AssertNoError(t, publisher.Publish(context.Background(), event))

	delivery, err := consumer.ConsumeOne(ctx, "forecast.events.test.queue", 5*time.Second)
	helpers.AssertNoError(t, err)

	var got ports.Event
	helpers.AssertNoError(t, json.Unmarshal(delivery.Body, &got))
	helpers.AssertEqual(t, event.ID, got.ID)
	helpers.AssertEqual(t, event.AggregateID, got.AggregateID)
}
