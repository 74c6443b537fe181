// Resource Forecasting Service
// ============================
// Computes per-opportunity backward-scheduled resource timelines and
// aggregates them into portfolio-wide concurrent-FTE demand curves.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/gdralph/rfot/internal/forecast/application/usecase"
	"github.com/gdralph/rfot/internal/forecast/infrastructure/cache"
	"github.com/gdralph/rfot/internal/forecast/infrastructure/messaging"
	"github.com/gdralph/rfot/internal/forecast/infrastructure/persistence/postgres"
	forecasthttp "github.com/gdralph/rfot/internal/forecast/interfaces/http"
	"github.com/gdralph/rfot/pkg/config"
	"github.com/gdralph/rfot/pkg/logger"
	"github.com/gdralph/rfot/pkg/response"
)

// Version information (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.App.Name = "forecast-service"

	log := logger.New(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Caller: cfg.Logger.Caller,
	})
	log = log.With().Service(cfg.App.Name).Logger()
	logger.SetGlobal(log)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting resource-forecasting service")

	db, err := sqlx.ConnectContext(context.Background(), "postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)
	defer db.Close()

	publisher, err := messaging.NewRabbitMQPublisher(messaging.RabbitMQConfig{
		URL:               cfg.RabbitMQ.URL,
		Exchange:          cfg.RabbitMQ.Exchange,
		ExchangeType:      cfg.RabbitMQ.ExchangeType,
		Durable:           true,
		AutoDelete:        false,
		ContentType:       "application/json",
		ReconnectDelay:    cfg.RabbitMQ.ReconnectDelay,
		MaxReconnectTries: 10,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	idempotency, err := cache.NewRedisIdempotencyCache(cache.RedisIdempotencyConfig{
		Address:      cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   3,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		KeyPrefix:    "forecast:idempotency:",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer idempotency.Close()

	uow := postgres.NewUnitOfWork(db)

	bulkConfig := usecase.BulkConfig{
		WorkerConcurrency:      cfg.Forecast.BulkWorkerConcurrency,
		OpportunitiesPerSecond: cfg.Forecast.BulkOpportunitiesPerSecond,
		IdempotencyTTL:         24 * time.Hour,
	}

	timelineUC := usecase.NewTimelineUseCase(uow, publisher, idempotency, bulkConfig, log, time.Now)
	portfolioUC := usecase.NewPortfolioUseCase(uow)

	handler := forecasthttp.NewHandler(forecasthttp.HandlerDependencies{
		TimelineUseCase:  timelineUC,
		PortfolioUseCase: portfolioUC,
		MiddlewareConfig: forecasthttp.MiddlewareConfig{
			JWTSecret:   cfg.JWT.Secret,
			JWTIssuer:   cfg.JWT.Issuer,
			JWTAudience: cfg.JWT.Audience,
			SkipAuth:    cfg.IsDevelopment() && cfg.App.Debug,
		},
	})

	router := forecasthttp.NewRouter(handler)

	startTime := time.Now()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]response.HealthCheck)

		if err := db.PingContext(r.Context()); err != nil {
			checks["postgres"] = response.HealthCheck{Status: "unhealthy", Message: err.Error()}
		} else {
			checks["postgres"] = response.HealthCheck{Status: "healthy"}
		}

		status := "healthy"
		for _, check := range checks {
			if check.Status != "healthy" {
				status = "unhealthy"
				break
			}
		}

		response.Health(w, status, Version, time.Since(startTime), checks)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
