// Package messaging provides messaging infrastructure for the
// resource-forecasting service.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gdralph/rfot/internal/forecast/application/ports"
	"github.com/gdralph/rfot/pkg/logger"
	"github.com/gdralph/rfot/pkg/resilience"
)

// ============================================================================
// Constants
// ============================================================================

const (
	ForecastEventsExchange = "forecast.events"

	TimelineGeneratedQueue        = "forecast.timeline.generated"
	BulkGenerationCompletedQueue  = "forecast.bulk_generation.completed"
)

// ============================================================================
// Configuration
// ============================================================================

// RabbitMQConfig holds RabbitMQ configuration.
type RabbitMQConfig struct {
	URL               string
	Exchange          string
	ExchangeType      string
	Durable           bool
	AutoDelete        bool
	DeliveryMode      uint8
	ContentType       string
	ReconnectDelay    time.Duration
	MaxReconnectTries int
}

// DefaultRabbitMQConfig returns default RabbitMQ configuration.
func DefaultRabbitMQConfig() RabbitMQConfig {
	return RabbitMQConfig{
		Exchange:          ForecastEventsExchange,
		ExchangeType:      "topic",
		Durable:           true,
		AutoDelete:        false,
		DeliveryMode:      amqp.Persistent,
		ContentType:       "application/json",
		ReconnectDelay:    5 * time.Second,
		MaxReconnectTries: 10,
	}
}

// ============================================================================
// RabbitMQ Publisher Implementation
// ============================================================================

// RabbitMQPublisher implements ports.EventPublisher using RabbitMQ, wrapping
// every publish in a circuit breaker so a broker outage degrades to logged
// publish failures instead of blocking compute_timeline/generate_bulk (§5:
// publish failures never fail the originating request).
type RabbitMQPublisher struct {
	config      RabbitMQConfig
	conn        *amqp.Connection
	channel     *amqp.Channel
	breaker     *resilience.CircuitBreaker
	log         *logger.Logger
	mu          sync.RWMutex
	closed      bool
	notifyClose chan *amqp.Error
}

// NewRabbitMQPublisher creates a new RabbitMQ event publisher and opens the
// initial connection.
func NewRabbitMQPublisher(config RabbitMQConfig, log *logger.Logger) (*RabbitMQPublisher, error) {
	cbConfig := resilience.DefaultCircuitBreakerConfig("forecast-event-publisher")
	p := &RabbitMQPublisher{
		config:  config,
		breaker: resilience.NewCircuitBreaker(cbConfig),
		log:     log,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := amqp.Dial(p.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.config.Exchange,
		p.config.ExchangeType,
		p.config.Durable,
		p.config.AutoDelete,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	p.conn = conn
	p.channel = ch
	p.notifyClose = make(chan *amqp.Error, 1)
	p.channel.NotifyClose(p.notifyClose)

	go p.handleReconnect()

	return nil
}

func (p *RabbitMQPublisher) handleReconnect() {
	err, ok := <-p.notifyClose
	if !ok || err == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	retryErr := resilience.RetryWithConfig(context.Background(), resilience.RetryConfig{
		MaxAttempts:  p.config.MaxReconnectTries,
		InitialDelay: p.config.ReconnectDelay,
		MaxDelay:     p.config.ReconnectDelay,
		Multiplier:   1,
	}, func(ctx context.Context) error {
		return p.connect()
	})
	if retryErr != nil && p.log != nil {
		p.log.Error().Err(retryErr).Msg("rabbitmq publisher exhausted reconnect attempts")
	}
}

// publishOne marshals and publishes one event under circuit-breaker
// protection.
func (p *RabbitMQPublisher) publishOne(ctx context.Context, event ports.Event) error {
	return p.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		p.mu.RLock()
		defer p.mu.RUnlock()

		if p.closed {
			return fmt.Errorf("publisher is closed")
		}
		if p.channel == nil {
			return fmt.Errorf("channel is not available")
		}

		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %w", err)
		}

		routingKey := event.Type

		msg := amqp.Publishing{
			DeliveryMode: p.config.DeliveryMode,
			ContentType:  p.config.ContentType,
			Body:         body,
			Timestamp:    event.OccurredAt,
			MessageId:    event.ID,
			Headers: amqp.Table{
				"event_type":     event.Type,
				"aggregate_type": event.AggregateType,
				"aggregate_id":   event.AggregateID,
			},
		}

		confirm, err := p.channel.PublishWithDeferredConfirmWithContext(
			ctx,
			p.config.Exchange,
			routingKey,
			false,
			false,
			msg,
		)
		if err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		if !confirm.Wait() {
			return fmt.Errorf("failed to confirm event publication")
		}
		return nil
	})
}

// Publish publishes a single forecast event.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event ports.Event) error {
	return p.publishOne(ctx, event)
}

// PublishBatch publishes multiple events, stopping at the first failure so
// the caller can decide whether to retry the remainder.
func (p *RabbitMQPublisher) PublishBatch(ctx context.Context, events []ports.Event) error {
	for _, event := range events {
		if err := p.publishOne(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
		}
	}
	return nil
}

// Close closes the RabbitMQ connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// IsConnected reports whether the underlying connection is open.
func (p *RabbitMQPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.conn != nil && !p.conn.IsClosed()
}

// DeclareQueues declares the queues and bindings forecast events are
// routed to.
func (p *RabbitMQPublisher) DeclareQueues() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return fmt.Errorf("channel is not available")
	}

	queues := []struct {
		name       string
		routingKey string
	}{
		{TimelineGeneratedQueue, "forecast.timeline.generated"},
		{BulkGenerationCompletedQueue, "forecast.bulk_generation.completed"},
	}

	for _, q := range queues {
		_, err := p.channel.QueueDeclare(q.name, p.config.Durable, p.config.AutoDelete, false, false, nil)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
		if err := p.channel.QueueBind(q.name, q.routingKey, p.config.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q.name, err)
		}
	}
	return nil
}

var _ ports.EventPublisher = (*RabbitMQPublisher)(nil)
