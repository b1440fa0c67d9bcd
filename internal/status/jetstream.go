package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"docent-service/internal/entity"
	"docent-service/internal/tracing"
)

// JetStreamStore keeps statuses in a JetStream key-value bucket. Expiry is
// the bucket's TTL; the ttl passed to Set is not applied per key.
type JetStreamStore struct {
	kv nats.KeyValue
}

// NewJetStreamStore opens bucket, creating it with ttl when missing.
func NewJetStreamStore(js nats.JetStreamContext, bucket string, ttl time.Duration) (*JetStreamStore, error) {
	kv, err := js.KeyValue(bucket)
	if err != nil {
		if !errors.Is(err, nats.ErrBucketNotFound) {
			return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
		}
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "job status records",
			TTL:         ttl,
			History:     1,
			Storage:     nats.MemoryStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("create kv bucket %s: %w", bucket, err)
		}
	}
	return &JetStreamStore{kv: kv}, nil
}

func (s *JetStreamStore) Set(ctx context.Context, st entity.JobStatus, _ time.Duration) error {
	_, span := tracing.Tracer().Start(ctx, "Nats/SetStatus")
	defer span.End()

	b, err := msgpack.Marshal(st)
	if err != nil {
		err = fmt.Errorf("marshal status %s: %w", st.JobID, err)
		tracing.RecordError(span, err)
		return err
	}
	if _, err := s.kv.Put(kvKey(st.JobID), b); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

func (s *JetStreamStore) Get(ctx context.Context, jobID uuid.UUID) (*entity.JobStatus, error) {
	_, span := tracing.Tracer().Start(ctx, "Nats/GetStatus")
	defer span.End()

	entry, err := s.kv.Get(kvKey(jobID))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, nil
		}
		tracing.RecordError(span, err)
		return nil, err
	}
	var st entity.JobStatus
	if err := msgpack.Unmarshal(entry.Value(), &st); err != nil {
		err = fmt.Errorf("unmarshal status %s: %w", jobID, err)
		tracing.RecordError(span, err)
		return nil, err
	}
	return &st, nil
}

// kvKey avoids ':' which is not a valid KV key character.
func kvKey(id uuid.UUID) string {
	return "job_status." + id.String()
}
