// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docent-service/internal/app"
	"docent-service/internal/config"
	"docent-service/internal/logger"
	"docent-service/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	log := logger.New(cfg.AppEnv, cfg.ServiceName+"-worker")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := cfg.ValidateStandaloneWorker(); err != nil {
		log.Fatal().Err(err).
			Str("dispatch_backend", cfg.DispatchBackend).
			Str("status_backend", cfg.StatusBackend).
			Msg("config")
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName+"-worker", cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer a.Close()

	pool, err := a.WorkerPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("worker pool")
	}

	log.Info().
		Int("workers", cfg.Workers).
		Str("redis_addr", cfg.RedisAddr).
		Str("queue_key", cfg.RedisQueueKey).
		Str("processing_key", cfg.RedisProcessingKey).
		Str("database_url", config.RedactDSN(cfg.DatabaseURL)).
		Msg("worker started")
	pool.Run(ctx)

	log.Info().Msg("worker stopped")
}
