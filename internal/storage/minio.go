package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docent-service/internal/tracing"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable bucket root. Defaults to
	// http(s)://<endpoint>/<bucket>.
	PublicURL string
	Prefix    string
}

type MinioStore struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	if cfg.PublicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cfg.PublicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioStore{client: cli, cfg: cfg}, nil
}

func (m *MinioStore) Save(ctx context.Context, name string, data []byte) (Object, error) {
	ctx, span := tracing.Tracer().Start(ctx, "MinIO/Save")
	defer span.End()

	if len(data) == 0 {
		err := fmt.Errorf("%w: empty artifact", ErrStorageWrite)
		tracing.RecordError(span, err)
		return Object{}, err
	}
	key := NewKey(m.cfg.Prefix, name, time.Now())
	_, err := m.client.PutObject(ctx, m.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStorageWrite, err)
		tracing.RecordError(span, err)
		return Object{}, err
	}
	return Object{Key: key, URL: joinURL(m.cfg.PublicURL, key)}, nil
}
