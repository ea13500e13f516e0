// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/clock"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/config"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/database"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/handler"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/observability"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/publisher"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/repository"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/service"
	"github.com/Shivanand-hulikatti/ticket-inventory/migrations"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// store is everything the services need from one backend.
type store interface {
	service.InventoryStore
	service.EventStore
	service.TitleLookup
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ticket-inventory: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// ── 1. Logging and tracing ────────────────────────────────────────────
	otelCfg := observability.Config{Endpoint: cfg.OtelEndpoint, AuthHeader: cfg.OtelAuthHeader}
	tp, shutdownTracing, err := observability.SetupTracing(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	shutdownLogging, err := observability.SetupLogging(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("log export: %w", err)
	}
	shutdownOtel := observability.JoinShutdown(shutdownTracing, shutdownLogging)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	logger := observability.NewLogger(cfg.Env)
	if cfg.OtelEndpoint != "" {
		logger = observability.WithOTelBridge(cfg.Env)
	}
	defer func() { _ = logger.Sync() }()

	// ── 2. Storage ────────────────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("store ready", zap.String("driver", cfg.StoreDriver))

	// ── 3. Publisher and rate limiter ─────────────────────────────────────
	pub, err := openPublisher(cfg, tp, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	rdb, err := database.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("redis unavailable, booking rate limit disabled", zap.Error(err))
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// ── 4. Wire up layers ─────────────────────────────────────────────────
	clk := clock.NewSystem()
	locks := service.NewEventLocks()
	emitter := service.NewConfirmationEmitter(st, pub, logger).WithTimeout(cfg.PublishTimeout)
	bookings := service.NewBookingService(st, emitter, locks, clk, logger)
	events := service.NewEventService(st, locks, clk, logger)
	authn := auth.New(cfg.OrganiserPasswordHash, cfg.JWTSecret, cfg.TokenTTL)
	if cfg.OrganiserPasswordHash == "" {
		logger.Warn("ORGANISER_PASSWORD_HASH not set, organiser login disabled")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Events:    events,
		Bookings:  bookings,
		Auth:      authn,
		RateLimit: handler.RateLimit(cfg.RateLimit, rdb, logger),
		Logger:    logger,
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, func(), error) {
	if cfg.StoreDriver == "postgres" {
		pool, err := database.NewPool(ctx, cfg.PostgresDSN(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		ran, err := migrations.Apply(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		if len(ran) > 0 {
			logger.Info("schema migrated", zap.Strings("migrations", ran))
		}
		return repository.NewPostgresStore(pool), pool.Close, nil
	}

	dialect, err := repository.DialectFor(cfg.StoreDriver)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.OpenSQL(ctx, cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	s := repository.NewSQLStore(db, dialect)
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return s, func() { _ = db.Close() }, nil
}

func openPublisher(cfg *config.Config, tp trace.TracerProvider, logger *zap.Logger) (publisher.Publisher, error) {
	switch cfg.Broker {
	case "amqp":
		p, err := publisher.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			return nil, fmt.Errorf("amqp publisher: %w", err)
		}
		return p, nil
	case "kafka":
		p, err := publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, tp)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		return p, nil
	default:
		return publisher.Noop{}, nil
	}
}
