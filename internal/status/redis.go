package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel/attribute"

	"docent-service/internal/entity"
	"docent-service/internal/tracing"
)

// RedisStore shares statuses between API and worker processes.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Set(ctx context.Context, st entity.JobStatus, ttl time.Duration) error {
	ctx, span := tracing.Tracer().Start(ctx, "Redis/SetStatus")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", st.JobID.String()), attribute.String("state", string(st.State)))

	b, err := msgpack.Marshal(st)
	if err != nil {
		err = fmt.Errorf("marshal status %s: %w", st.JobID, err)
		tracing.RecordError(span, err)
		return err
	}
	if err := s.rdb.Set(ctx, key(st.JobID), b, ttl).Err(); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID uuid.UUID) (*entity.JobStatus, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Redis/GetStatus")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID.String()))

	b, err := s.rdb.Get(ctx, key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		tracing.RecordError(span, err)
		return nil, err
	}
	var st entity.JobStatus
	if err := msgpack.Unmarshal(b, &st); err != nil {
		err = fmt.Errorf("unmarshal status %s: %w", jobID, err)
		tracing.RecordError(span, err)
		return nil, err
	}
	return &st, nil
}
