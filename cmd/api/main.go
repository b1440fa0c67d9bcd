// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "docent-service/docs"
	"docent-service/internal/app"
	"docent-service/internal/config"
	"docent-service/internal/docent"
	"docent-service/internal/logger"
	"docent-service/internal/service"
	"docent-service/internal/tracing"
	httptransport "docent-service/internal/transport/http"
)

// @title Docent Service API
// @version 1.0
// @description Docent chat and asynchronous image generation.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	log := logger.New(cfg.AppEnv, cfg.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.AppEnv, cfg.OTLPEndpoint)
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

	jobs := service.NewJobService(a.Requests, a.Queue, a.Status, a.Conversations, a.Jobs, cfg.StatusTTL, log)
	chat := service.NewChatService(docent.NewClient(docent.Options{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaModel,
		Timeout: cfg.OllamaTimeout,
		Logger:  log,
	}), a.Conversations, a.Conversations, log)
	gallery := service.NewGalleryService(a.Artifacts)

	h := httptransport.NewHandler(jobs, chat, gallery, cfg.StatusStrictNotFound)

	routeOpts := httptransport.RouteOptions{MediaURL: cfg.MediaURL}
	if cfg.StorageBackend == "filesystem" {
		routeOpts.MediaRoot = cfg.MediaRoot
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httptransport.Routes(h, log, routeOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.EmbeddedWorkers {
		pool, err := a.WorkerPool(gctx)
		if err != nil {
			log.Fatal().Err(err).Msg("worker pool")
		}
		g.Go(func() error {
			pool.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Bool("embedded_workers", cfg.EmbeddedWorkers).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("api exited with error")
		return
	}
	log.Info().Msg("api stopped")
}
