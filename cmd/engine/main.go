// Command engine runs the personalized heat alert service: it consumes raw
// weather observations from Kafka, computes per-user heat index results,
// advances alert state in Redis, persists results to Postgres, and publishes
// alert events back to Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	httpadapter "github.com/therealdaud/HealthShield/internal/adapter/http"
	kafkaadapter "github.com/therealdaud/HealthShield/internal/adapter/kafka"
	"github.com/therealdaud/HealthShield/internal/config"
	"github.com/therealdaud/HealthShield/internal/engine"
	"github.com/therealdaud/HealthShield/internal/observability"
	"github.com/therealdaud/HealthShield/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	states := store.NewRedisStateStore(redisClient, cfg.AlertStateTTL, cfg.StoreTimeout)
	if err := states.Ping(ctx); err != nil {
		logger.Error("redis unreachable", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if err := pg.Ping(ctx); err != nil {
		logger.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}
	profiles := store.NewCachedProfileSource(pg, cfg.ProfileCacheSize, cfg.ProfileCacheTTL, metrics)
	logger.Info("profile cache enabled", "cache_size", cfg.ProfileCacheSize, "ttl", cfg.ProfileCacheTTL)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	orch := engine.NewOrchestrator(states, cfg.EngineParams(), logger)
	runner := engine.NewRunner(reader, profiles, orch, writer, pg, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, states, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start engine loop.
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("engine error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	pg.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
