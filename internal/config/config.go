package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	ServiceName string
	HTTPAddr    string
	DatabaseURL string

	ComfyURL             string
	ComfySubmitTimeout   time.Duration
	ComfyRecordTimeout   time.Duration
	ComfyArtifactTimeout time.Duration
	ComfyRPS             float64
	TemplatesDir         string
	DefaultCheckpoint    string

	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	StatusBackend        string
	StatusTTL            time.Duration
	StatusCacheBytes     int
	StatusStrictNotFound bool

	RedisAddr          string
	RedisPassword      string
	RedisQueueKey      string
	RedisProcessingKey string
	RedisRequestPrefix string

	NATSURL          string
	NATSStatusBucket string

	DispatchBackend string
	QueueCapacity   int
	Workers         int
	EmbeddedWorkers bool
	PollInterval    time.Duration
	PollMaxAttempts int

	StorageBackend string
	MediaRoot      string
	MediaURL       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	OTLPEndpoint string
}

// Load reads .env files (when present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	c := Config{
		AppEnv:      envOr("APP_ENV", "development"),
		ServiceName: envOr("SERVICE_NAME", "docent-service"),
		HTTPAddr:    envOr("HTTP_ADDR", ":8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ComfyURL:             envOr("COMFYUI_URL", "http://127.0.0.1:8188"),
		ComfySubmitTimeout:   envDurationOr("COMFYUI_SUBMIT_TIMEOUT", 300*time.Second),
		ComfyRecordTimeout:   envDurationOr("COMFYUI_RECORD_TIMEOUT", 30*time.Second),
		ComfyArtifactTimeout: envDurationOr("COMFYUI_ARTIFACT_TIMEOUT", 60*time.Second),
		ComfyRPS:             envFloatOr("COMFYUI_RPS", 5),
		TemplatesDir:         os.Getenv("WORKFLOW_TEMPLATES_DIR"),
		DefaultCheckpoint:    envOr("DEFAULT_CHECKPOINT", "sd_xl_base_1.0.safetensors"),

		OllamaURL:     envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:   envOr("OLLAMA_MODEL", "gemma3:latest"),
		OllamaTimeout: envDurationOr("OLLAMA_TIMEOUT", 120*time.Second),

		StatusBackend:        envOr("STATUS_BACKEND", "memory"),
		StatusTTL:            envDurationOr("STATUS_TTL", 600*time.Second),
		StatusCacheBytes:     envIntOr("STATUS_CACHE_BYTES", 32<<20),
		StatusStrictNotFound: envBoolOr("STATUS_STRICT_NOT_FOUND", false),

		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisQueueKey:      envOr("REDIS_QUEUE_KEY", "docent:jobs:queue"),
		RedisProcessingKey: envOr("REDIS_PROCESSING_KEY", "docent:jobs:processing"),
		RedisRequestPrefix: envOr("REDIS_REQUEST_PREFIX", "docent:jobs:request:"),

		NATSURL:          os.Getenv("NATS_URL"),
		NATSStatusBucket: envOr("NATS_STATUS_BUCKET", "job_status"),

		DispatchBackend: envOr("DISPATCH_BACKEND", "memory"),
		QueueCapacity:   envIntOr("QUEUE_CAPACITY", 64),
		Workers:         envIntOr("WORKERS", 4),
		EmbeddedWorkers: envBoolOr("EMBEDDED_WORKERS", true),
		PollInterval:    envDurationOr("POLL_INTERVAL", 2*time.Second),
		PollMaxAttempts: envIntOr("POLL_MAX_ATTEMPTS", 120),

		StorageBackend: envOr("STORAGE_BACKEND", "filesystem"),
		MediaRoot:      envOr("MEDIA_ROOT", "./media"),
		MediaURL:       envOr("MEDIA_URL", "/media/"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    envOr("MINIO_BUCKET", "docent-media"),
		MinioUseSSL:    envBoolOr("MINIO_USE_SSL", false),
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.StatusBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("STATUS_BACKEND=redis needs REDIS_ADDR"))
		}
	case "jetstream":
		if c.NATSURL == "" {
			errs = append(errs, errors.New("STATUS_BACKEND=jetstream needs NATS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STATUS_BACKEND %q", c.StatusBackend))
	}
	switch c.DispatchBackend {
	case "memory":
		if !c.EmbeddedWorkers {
			errs = append(errs, errors.New("DISPATCH_BACKEND=memory needs EMBEDDED_WORKERS=true"))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("DISPATCH_BACKEND=redis needs REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DISPATCH_BACKEND %q", c.DispatchBackend))
	}
	switch c.StorageBackend {
	case "filesystem":
	case "minio":
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, errors.New("STORAGE_BACKEND=minio needs MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if !c.EmbeddedWorkers && c.StatusBackend == "memory" {
		errs = append(errs, errors.New("standalone workers need a shared STATUS_BACKEND (redis or jetstream)"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("WORKERS must be positive"))
	}
	if c.QueueCapacity <= 0 {
		errs = append(errs, errors.New("QUEUE_CAPACITY must be positive"))
	}
	if c.PollInterval <= 0 || c.PollMaxAttempts <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL and POLL_MAX_ATTEMPTS must be positive"))
	}
	if c.StatusTTL < c.PollInterval*time.Duration(c.PollMaxAttempts) {
		errs = append(errs, errors.New("STATUS_TTL must outlive the polling window"))
	}
	return errors.Join(errs...)
}

// ValidateStandaloneWorker checks the extra requirements of the worker
// binary: it only consumes the shared queue and must publish to a store the
// API process can read.
func (c Config) ValidateStandaloneWorker() error {
	var errs []error
	if c.DispatchBackend != "redis" {
		errs = append(errs, fmt.Errorf("standalone worker needs DISPATCH_BACKEND=redis, got %q", c.DispatchBackend))
	}
	if c.StatusBackend == "memory" {
		errs = append(errs, errors.New("standalone worker needs a shared STATUS_BACKEND (redis or jetstream)"))
	}
	return errors.Join(errs...)
}

// NeedsRedis reports whether any backend is on Redis.
func (c Config) NeedsRedis() bool {
	return c.StatusBackend == "redis" || c.DispatchBackend == "redis"
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloatOr(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// envDurationOr accepts Go durations ("90s") and bare seconds ("90").
func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactDSN masks the password: user:pass@ -> user:****@
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}
