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

	"github.com/joho/godotenv"
	"github.com/rps-arena/internal/api"
	"github.com/rps-arena/internal/config"
	"github.com/rps-arena/internal/service"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/internal/storage/cassandra"
	"github.com/rps-arena/internal/storage/redis"
	"github.com/rps-arena/internal/storage/sqlite"
	"github.com/rps-arena/internal/telemetry"
	"github.com/rps-arena/pkg/logger"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{
		Level:  logger.Level(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	if err := run(cfg, log); err != nil {
		log.Error("Server failed", logger.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Error("Telemetry shutdown failed", logger.Err(err))
		}
	}()

	repo, closeStorage, err := openStorage(cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	gameService := service.NewGameService(repo, log,
		service.WithExhibitionInterval(cfg.ExhibitionInterval()),
		service.WithIdleTimeout(cfg.SessionTTL()),
	)
	defer gameService.Close()

	handler := api.NewHandler(gameService, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.NewRouter(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", logger.F("address", cfg.Address()), logger.F("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}

// openStorage builds the configured session repository and a func that
// releases it
func openStorage(cfg *config.Config, log *logger.Logger) (storage.SessionRepository, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendCassandra:
		client, err := cassandra.NewClient(cfg.Cassandra, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Cassandra: %w", err)
		}
		return cassandra.NewRepository(client, log, cfg.Cassandra.Timeout()), client.Close, nil

	case config.BackendRedis:
		store, err := redis.NewStore(cfg.Redis, cfg.SessionTTL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		log.Info("Connected to Redis", logger.F("addr", cfg.Redis.Addr))
		return store, func() { store.Close() }, nil

	case config.BackendSQLite:
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		log.Info("Opened SQLite database", logger.F("path", cfg.SQLite.Path))
		return store, func() { store.Close() }, nil

	default:
		log.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}
