package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/finpost/ledger/internal/adapter/http"
	"github.com/finpost/ledger/internal/adapter/http/handler"
	"github.com/finpost/ledger/internal/adapter/http/middleware"
	postgresRepo "github.com/finpost/ledger/internal/adapter/repository/postgres"
	redisRepo "github.com/finpost/ledger/internal/adapter/repository/redis"
	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/infrastructure/auth"
	"github.com/finpost/ledger/internal/infrastructure/config"
	"github.com/finpost/ledger/internal/infrastructure/logger"
	"github.com/finpost/ledger/internal/infrastructure/metrics"
	"github.com/finpost/ledger/internal/infrastructure/postgres"
	"github.com/finpost/ledger/internal/infrastructure/redis"
	"github.com/finpost/ledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if cfg.DatabaseMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Load the initial rate table
	rateTable := domain.DefaultRateTable()
	if cfg.RateTablePath != "" {
		rateTable, err = config.LoadRateTable(cfg.RateTablePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.RateTablePath).Msg("failed to load rate table")
		}
		log.Info().Str("path", cfg.RateTablePath).Msg("loaded rate table")
	}

	rateStore, err := usecase.NewRateTableStore(rateTable)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rate table")
	}

	// Metrics
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	eventRepo := postgresRepo.NewEventRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(appLogger)

	// Initialize use cases
	postingUC := usecase.NewPostingUseCase(txManager, accountRepo, entryRepo, eventRepo, rateStore, idGen, retrier, m)
	reversalUC := usecase.NewReversalUseCase(txManager, accountRepo, entryRepo, rateStore, idGen, retrier, m)
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen)
	entryUC := usecase.NewEntryUseCase(entryRepo)
	ledgerUC := usecase.NewLedgerUseCase(accountRepo, ledgerRepo)

	// Initialize handlers
	eventHandler := handler.NewEventHandler(postingUC)
	accountHandler := handler.NewAccountHandler(accountUC)
	entryHandler := handler.NewEntryHandler(entryUC)
	ledgerHandler := handler.NewLedgerHandler(reversalUC, ledgerUC)
	configHandler := handler.NewConfigHandler(rateStore)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:   accountHandler,
		EventHandler:     eventHandler,
		EntryHandler:     entryHandler,
		LedgerHandler:    ledgerHandler,
		ConfigHandler:    configHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Logger:           &appLogger,
		MetricsEnabled:   cfg.MetricsEnabled,
	}

	if cfg.AuthEnabled && cfg.JWTSecret != "" {
		routerCfg.JWTManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		log.Info().Msg("authentication enabled")
	}

	if cfg.RateLimitEnabled {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := httpAdapter.NewRouter(routerCfg)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
