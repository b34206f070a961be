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

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carrental/internal/app"
	"carrental/internal/auth"
	"carrental/internal/config"
	"carrental/internal/handler"
	"carrental/internal/lock"
	"carrental/internal/logger"
	"carrental/internal/metrics"
	"carrental/internal/middleware"
	internalRedis "carrental/internal/redis"
	"carrental/internal/scheduler"
	"carrental/internal/service"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			log.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	stores, err := app.NewStores(ctx, cfg, nrApp)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close(context.Background())
	log.Info("storage ready", zap.String("backend", stores.Backend))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	ids, err := snowflake.NewNode(cfg.IDs.Node)
	if err != nil {
		return fmt.Errorf("create id generator: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("carrental", reg)
	}

	// Wire dependencies.
	server, booking := wireServer(cfg, stores, redisClient, ids, nrApp, m, reg, log)

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.CompleteRentals, booking, cfg.Scheduler.CompleteRentalsTTL, log.Named("scheduler"))
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("server exited")
	return nil
}

// wireServer wires all dependencies and returns the HTTP server and the
// booking service used by background jobs.
func wireServer(
	cfg *config.Config,
	stores *app.Stores,
	redisClient *redis.Client,
	ids *snowflake.Node,
	nrApp *newrelic.Application,
	m *metrics.Metrics,
	reg *prometheus.Registry,
	log *zap.Logger,
) (*http.Server, *service.BookingService) {
	// Booking lock and idempotency cache.
	var locker service.Locker = lock.NewKeyedMutex()
	var responses middleware.ResponseCache
	if redisClient != nil {
		if cfg.Lock.Backend == config.LockRedis {
			locker = internalRedis.NewLockStore(redisClient, cfg.Lock.TTL)
		}
		responses = internalRedis.NewResponseCache(redisClient, idempotencyTTL)
	}

	// Initialize services.
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	resolver := service.NewResolver(stores.Cars, stores.Users, stores.Rentals)
	principals := service.NewPrincipalService(tokens, resolver, stores.Users)
	checker := service.NewAvailabilityChecker(resolver, stores.Rentals)
	booking := service.NewBookingService(resolver, checker, stores.Rentals, locker, ids, cfg.Lock.Wait, m, log.Named("booking"))
	reader := service.NewRentalReader(resolver, stores.Rentals, m, log.Named("listing"))

	// Initialize handlers.
	rentalHandler := handler.NewRentalHandler(checker, booking, reader)
	userHandler := handler.NewUserHandler()

	deps := app.RouterDeps{
		RentalHandler:  rentalHandler,
		UserHandler:    userHandler,
		Authenticator:  principals,
		ResponseCache:  responses,
		NewRelicApp:    nrApp,
		Metrics:        m,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StorageBackend: stores.Backend,
		Logger:         log.Named("http"),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		deps.MetricsPath = cfg.Metrics.Path
	}

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, booking
}
