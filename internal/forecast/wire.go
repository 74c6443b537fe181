//go:build wireinject
// +build wireinject

package forecast

import (
	"github.com/google/wire"
	"github.com/jmoiron/sqlx"

	"github.com/gdralph/rfot/internal/forecast/application/ports"
	"github.com/gdralph/rfot/internal/forecast/application/usecase"
	"github.com/gdralph/rfot/internal/forecast/domain"
	"github.com/gdralph/rfot/internal/forecast/infrastructure/cache"
	"github.com/gdralph/rfot/internal/forecast/infrastructure/messaging"
	"github.com/gdralph/rfot/internal/forecast/infrastructure/persistence/postgres"
	forecasthttp "github.com/gdralph/rfot/internal/forecast/interfaces/http"
	"github.com/gdralph/rfot/pkg/logger"
)

// ============================================================================
// Provider Sets
// ============================================================================

// RepositorySet provides the forecast core's single UnitOfWork, which fans
// out into the three scoped repositories instead of binding each
// repository independently the way the sales/customer domains do. The root
// UnitOfWork serves the read verbs without a transaction; Begin yields one
// bound to a transaction for the write paths.
var RepositorySet = wire.NewSet(
	postgres.NewUnitOfWork,
	wire.Bind(new(domain.UnitOfWork), new(*postgres.UnitOfWork)),
)

// MessagingSet provides the RabbitMQ event publisher.
var MessagingSet = wire.NewSet(
	messaging.NewRabbitMQPublisher,
	wire.Bind(new(ports.EventPublisher), new(*messaging.RabbitMQPublisher)),
)

// CacheSet provides the Redis-backed idempotency cache used by
// generate_bulk and clear_predicted.
var CacheSet = wire.NewSet(
	cache.NewRedisIdempotencyCache,
	wire.Bind(new(ports.IdempotencyCache), new(*cache.RedisIdempotencyCache)),
)

// UseCaseSet provides the timeline and portfolio use cases.
var UseCaseSet = wire.NewSet(
	usecase.NewTimelineUseCase,
	usecase.NewPortfolioUseCase,
)

// HTTPSet provides the HTTP handler and router.
var HTTPSet = wire.NewSet(
	forecasthttp.NewHandler,
	forecasthttp.NewRouter,
)

// ============================================================================
// Service Configuration
// ============================================================================

// ServiceConfig holds the configuration InitializeForecastService needs
// beyond the raw infrastructure handles.
type ServiceConfig struct {
	DB              *sqlx.DB
	RabbitMQConfig  messaging.RabbitMQConfig
	RedisConfig     cache.RedisIdempotencyConfig
	MiddlewareConfig forecasthttp.MiddlewareConfig
	BulkConfig      usecase.BulkConfig
	Logger          *logger.Logger
}

// ============================================================================
// Wire Injector
// ============================================================================

// InitializeForecastService creates the fully wired resource-forecasting
// service. The generated wire_gen.go is not checked in; cmd/forecast-service
// wires the same graph by hand.
func InitializeForecastService(config ServiceConfig) (*ForecastService, error) {
	wire.Build(
		RepositorySet,
		MessagingSet,
		CacheSet,
		UseCaseSet,
		HTTPSet,
		wire.Struct(new(forecasthttp.HandlerDependencies), "*"),
		NewForecastService,
	)
	return nil, nil
}

// ============================================================================
// Forecast Service
// ============================================================================

// ForecastService holds the fully wired components of the
// resource-forecasting core.
type ForecastService struct {
	Handler        *forecasthttp.Handler
	EventPublisher *messaging.RabbitMQPublisher
	IdempotencyCache *cache.RedisIdempotencyCache
	UnitOfWork     domain.UnitOfWork
}

// NewForecastService assembles the service struct from its wired parts.
func NewForecastService(
	handler *forecasthttp.Handler,
	publisher *messaging.RabbitMQPublisher,
	idempotencyCache *cache.RedisIdempotencyCache,
	uow domain.UnitOfWork,
) *ForecastService {
	return &ForecastService{
		Handler:          handler,
		EventPublisher:   publisher,
		IdempotencyCache: idempotencyCache,
		UnitOfWork:       uow,
	}
}

// Stop releases the service's long-lived infrastructure connections.
func (s *ForecastService) Stop() error {
	if s.EventPublisher != nil {
		if err := s.EventPublisher.Close(); err != nil {
			return err
		}
	}
	if s.IdempotencyCache != nil {
		return s.IdempotencyCache.Close()
	}
	return nil
}
