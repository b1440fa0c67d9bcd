// Package app wires the configured backends shared by the api and worker
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"docent-service/internal/comfy"
	"docent-service/internal/config"
	"docent-service/internal/prompt"
	"docent-service/internal/repository/postgresql"
	"docent-service/internal/runner"
	"docent-service/internal/service"
	"docent-service/internal/status"
	"docent-service/internal/storage"
	"docent-service/internal/worker"
	"docent-service/internal/workflow"
)

const artifactPrefix = "generated"

type App struct {
	cfg config.Config
	log zerolog.Logger

	DB    *pgxpool.Pool
	Redis *redis.Client
	NATS  *nats.Conn

	Status   status.Store
	Requests service.RequestStore
	Queue    service.Queue
	Storage  storage.ArtifactStore

	Conversations *postgresql.ConversationRepository
	Artifacts     *postgresql.ArtifactRepository
	Jobs          *postgresql.JobRepository
}

// New connects every configured backend and runs database migrations.
// Close releases them.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	log.Info().Str("database_url", config.RedactDSN(cfg.DatabaseURL)).Msg("connecting to postgres")
	a.DB, err = postgresql.NewPool(ctx, cfg.DatabaseURL, postgresql.PoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("pg: %w", err)
	}
	if err := postgresql.Migrate(ctx, a.DB, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.Conversations = postgresql.NewConversationRepository(a.DB)
	a.Artifacts = postgresql.NewArtifactRepository(a.DB)
	a.Jobs = postgresql.NewJobRepository(a.DB)

	if cfg.NeedsRedis() {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	if a.Status, err = a.openStatus(); err != nil {
		return nil, err
	}

	switch cfg.DispatchBackend {
	case "redis":
		a.Queue = service.NewRedisQueue(a.Redis, cfg.RedisQueueKey, cfg.RedisProcessingKey, cfg.QueueCapacity)
		a.Requests = service.NewRedisRequestStore(a.Redis, cfg.RedisRequestPrefix)
	default:
		a.Queue = service.NewMemoryQueue(cfg.QueueCapacity)
		a.Requests = service.NewMemoryRequestStore(cfg.StatusTTL)
	}

	if a.Storage, err = a.openStorage(ctx); err != nil {
		return nil, err
	}

	log.Info().
		Str("status_backend", cfg.StatusBackend).
		Str("dispatch_backend", cfg.DispatchBackend).
		Str("storage_backend", cfg.StorageBackend).
		Msg("backends ready")
	return a, nil
}

func (a *App) openStatus() (status.Store, error) {
	switch a.cfg.StatusBackend {
	case "redis":
		return status.NewRedisStore(a.Redis), nil
	case "jetstream":
		nc, err := nats.Connect(a.cfg.NATSURL, nats.Name(a.cfg.ServiceName))
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.NATS = nc
		js, err := nc.JetStream()
		if err != nil {
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		return status.NewJetStreamStore(js, a.cfg.NATSStatusBucket, a.cfg.StatusTTL)
	default:
		return status.NewFreeCacheStore(a.cfg.StatusCacheBytes), nil
	}
}

func (a *App) openStorage(ctx context.Context) (storage.ArtifactStore, error) {
	if a.cfg.StorageBackend == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  a.cfg.MinioEndpoint,
			AccessKey: a.cfg.MinioAccessKey,
			SecretKey: a.cfg.MinioSecretKey,
			Bucket:    a.cfg.MinioBucket,
			UseSSL:    a.cfg.MinioUseSSL,
			PublicURL: a.cfg.MinioPublicURL,
			Prefix:    artifactPrefix,
		})
	}
	return storage.NewFileStore(a.cfg.MediaRoot, a.cfg.MediaURL, artifactPrefix)
}

// Templates loads the workflow templates, from WORKFLOW_TEMPLATES_DIR when
// set and the embedded copies otherwise.
func (a *App) Templates() (*workflow.Store, error) {
	if a.cfg.TemplatesDir != "" {
		return workflow.NewStoreFromDir(a.cfg.TemplatesDir)
	}
	return workflow.NewStore()
}

func (a *App) Runner() (*runner.Runner, error) {
	templates, err := a.Templates()
	if err != nil {
		return nil, err
	}
	backend := comfy.NewClient(comfy.Options{
		BaseURL:           a.cfg.ComfyURL,
		SubmitTimeout:     a.cfg.ComfySubmitTimeout,
		RecordTimeout:     a.cfg.ComfyRecordTimeout,
		ArtifactTimeout:   a.cfg.ComfyArtifactTimeout,
		RequestsPerSecond: a.cfg.ComfyRPS,
		Logger:            a.log,
	})
	return runner.New(runner.Config{
		PollInterval: a.cfg.PollInterval,
		MaxAttempts:  a.cfg.PollMaxAttempts,
		StatusTTL:    a.cfg.StatusTTL,
		Checkpoint:   a.cfg.DefaultCheckpoint,
	}, runner.Deps{
		Templates: templates,
		Composer:  prompt.NewComposer(),
		Backend:   backend,
		Status:    a.Status,
		Storage:   a.Storage,
		Artifacts: a.Artifacts,
	}, a.log), nil
}

// WorkerPool builds the job pool and fails jobs orphaned by a previous
// process.
func (a *App) WorkerPool(ctx context.Context) (*worker.Pool, error) {
	r, err := a.Runner()
	if err != nil {
		return nil, err
	}
	proc := worker.NewProcessor(a.Requests, r, a.Status, a.Conversations, a.Jobs, a.cfg.StatusTTL, a.log)
	pool := worker.NewPool(a.Queue, proc, a.cfg.Workers, a.log)
	if _, err := pool.Recover(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error().Err(err).Msg("recover orphaned jobs")
	}
	return pool, nil
}

func (a *App) Close() {
	if a.NATS != nil {
		a.NATS.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
