package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/newsblog-api/internal/api"
	"github.com/newsblog-api/internal/cache"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/metrics"
	"github.com/newsblog-api/internal/repository"
	"github.com/newsblog-api/internal/service"
	"github.com/newsblog-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting newsblog API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)
	if _, err := repos.Section.EnsureDefault(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure default section")
	}
	if title := cfg.Features.DefaultMediumTitle; title != "" {
		if _, err := repos.Reference.EnsureMedium(context.Background(), title); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure default medium")
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	checks := []api.HealthCheck{{Name: "database", Check: db.HealthCheck}}

	// Facet cache: Redis when configured, otherwise in process
	var store cache.Store
	switch {
	case !cfg.Cache.Enabled:
		log.Info().Msg("Facet cache disabled")
	case cfg.Cache.RedisAddr != "":
		redisStore, err := cache.NewRedis(ctx, cfg.Cache, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer redisStore.Close()
		breaker := cache.NewBreaker(redisStore, uint32(cfg.Cache.BreakerFailures), cfg.Cache.BreakerTimeout, log)
		breaker.OnStateChange(metrics.ObserveBreaker)
		store = breaker
		checks = append(checks, api.HealthCheck{Name: "cache", Check: redisStore.HealthCheck})
	default:
		memory := cache.NewMemoryWithCapacity(cfg.Cache.MemoryCapacity)
		if cfg.Cache.MemoryCleanup > 0 {
			go memory.Run(ctx, cfg.Cache.MemoryCleanup)
		}
		store = memory
	}
	facetCache := cache.New(store, cfg.Cache.KeyPrefix, cfg.Cache.FacetTTL)
	facetCache.OnLookup(metrics.ObserveCache)

	// Initialize services
	services := service.NewServices(repos, cfg, facetCache, log)

	// Initialize router
	router := api.NewRouter(services, cfg, log, checks...)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
