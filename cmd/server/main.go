package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/application/posting"
	"github.com/ahtrading/backend/internal/infrastructure/auth"
	"github.com/ahtrading/backend/internal/infrastructure/cache"
	"github.com/ahtrading/backend/internal/infrastructure/config"
	"github.com/ahtrading/backend/internal/infrastructure/logger"
	"github.com/ahtrading/backend/internal/infrastructure/persistence"
	"github.com/ahtrading/backend/internal/interfaces/http/handler"
	"github.com/ahtrading/backend/internal/interfaces/http/router"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting POS posting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Idempotency cache: Redis when configured, in-process otherwise. The
	// cache is a fast path only; losing it never loses events.
	var idemCache posting.IdempotencyCache
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("Redis unreachable, falling back to in-memory idempotency cache", zap.Error(err))
			idemCache = cache.NewInMemoryIdempotencyCache()
		} else {
			redisCache := cache.NewRedisIdempotencyCache(redisClient, "")
			defer func() {
				_ = redisCache.Close()
			}()
			idemCache = redisCache
			log.Info("Redis idempotency cache connected")
		}
	} else {
		idemCache = cache.NewInMemoryIdempotencyCache()
	}

	// Repositories and services
	eventRepo := persistence.NewGormOutboxRepository(db.DB)
	deviceRepo := persistence.NewGormDeviceRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db)
	tenantSource := persistence.NewOutboxTenantSource(db.DB)

	poster := posting.NewPoster(uow, log)
	ingest := posting.NewIngestService(eventRepo, idemCache, log)

	dispatcherCfg := posting.DefaultDispatcherConfig()
	if cfg.Outbox.Workers > 0 {
		dispatcherCfg.Workers = cfg.Outbox.Workers
	}
	if cfg.Outbox.PollInterval > 0 {
		dispatcherCfg.PollInterval = cfg.Outbox.PollInterval
	}
	if cfg.Outbox.SweepInterval > 0 {
		dispatcherCfg.SweepInterval = cfg.Outbox.SweepInterval
	}
	if cfg.Outbox.StaleAfter > 0 {
		dispatcherCfg.StaleAfter = cfg.Outbox.StaleAfter
	}
	dispatcher := posting.NewDispatcher(eventRepo, poster, tenantSource, dispatcherCfg, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.New(router.Options{
		Config:     cfg,
		Logger:     log,
		JWTService: jwtService,
		Devices:    deviceRepo,
		Handlers: router.Handlers{
			System:           handler.NewSystemHandler(db, version),
			Outbox:           handler.NewOutboxHandler(ingest, dispatcher, cfg.Outbox.MaxBatchSize),
			Device:           handler.NewDeviceHandler(deviceRepo),
			SupplierInvoices: handler.NewSupplierInvoiceHandler(persistence.NewGormSupplierInvoiceRepository(db.DB)),
		},
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Background dispatcher shares the server's lifetime.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcherDone := make(chan struct{})
	if cfg.Outbox.DispatcherEnabled {
		go func() {
			defer close(dispatcherDone)
			dispatcher.Run(dispatcherCtx)
		}()
		log.Info("Dispatcher started",
			zap.Int("workers", dispatcherCfg.Workers),
			zap.Duration("poll_interval", dispatcherCfg.PollInterval),
		)
	} else {
		close(dispatcherDone)
		log.Info("Dispatcher disabled, events post via the process endpoint only")
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	stopDispatcher()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn("Dispatcher did not stop before shutdown deadline")
	}

	log.Info("Server stopped")
}
