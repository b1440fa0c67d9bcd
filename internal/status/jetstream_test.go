package status_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"docent-service/internal/entity"
	"docent-service/internal/status"
)

type memEntry struct {
	nats.KeyValueEntry
	value []byte
}

func (e memEntry) Value() []byte { return e.value }

// memKV keeps bucket contents in a map. Only Put and Get are used.
type memKV struct {
	nats.KeyValue
	mu   sync.Mutex
	data map[string][]byte
}

func (kv *memKV) Put(key string, value []byte) (uint64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = append([]byte(nil), value...)
	return uint64(len(kv.data)), nil
}

func (kv *memKV) Get(key string) (nats.KeyValueEntry, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	return memEntry{value: v}, nil
}

type memJetStream struct {
	nats.JetStreamContext
	buckets map[string]*memKV
	created *nats.KeyValueConfig
	openErr error
}

func (js *memJetStream) KeyValue(bucket string) (nats.KeyValue, error) {
	if js.openErr != nil {
		return nil, js.openErr
	}
	kv, ok := js.buckets[bucket]
	if !ok {
		return nil, nats.ErrBucketNotFound
	}
	return kv, nil
}

func (js *memJetStream) CreateKeyValue(cfg *nats.KeyValueConfig) (nats.KeyValue, error) {
	js.created = cfg
	kv := &memKV{data: map[string][]byte{}}
	js.buckets[cfg.Bucket] = kv
	return kv, nil
}

func TestJetStreamStore_CreatesMissingBucket(t *testing.T) {
	js := &memJetStream{buckets: map[string]*memKV{}}

	s, err := status.NewJetStreamStore(js, "job_status", 10*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, js.created)
	require.Equal(t, "job_status", js.created.Bucket)
	require.Equal(t, 10*time.Minute, js.created.TTL)
	require.Equal(t, uint8(1), js.created.History)
	require.Same(t, js.buckets["job_status"], status.JetStreamKV(s))
}

func TestJetStreamStore_OpensExistingBucket(t *testing.T) {
	existing := &memKV{data: map[string][]byte{}}
	js := &memJetStream{buckets: map[string]*memKV{"job_status": existing}}

	s, err := status.NewJetStreamStore(js, "job_status", time.Minute)
	require.NoError(t, err)
	require.Nil(t, js.created)
	require.Same(t, existing, status.JetStreamKV(s))
}

func TestJetStreamStore_OpenError(t *testing.T) {
	js := &memJetStream{buckets: map[string]*memKV{}, openErr: errors.New("jetstream not enabled")}

	_, err := status.NewJetStreamStore(js, "job_status", time.Minute)
	require.Error(t, err)
	require.Nil(t, js.created)
}

func TestJetStreamStore_SetGet(t *testing.T) {
	ctx := context.Background()
	js := &memJetStream{buckets: map[string]*memKV{}}
	s, err := status.NewJetStreamStore(js, "job_status", time.Minute)
	require.NoError(t, err)

	id := uuid.New()
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got)

	detail := "ComfyUI reported an error"
	require.NoError(t, s.Set(ctx, entity.JobStatus{
		JobID:       id,
		State:       entity.StateFailed,
		Progress:    100,
		ErrorDetail: &detail,
	}, time.Minute))

	_, ok := js.buckets["job_status"].data["job_status."+id.String()]
	require.True(t, ok)

	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, entity.StateFailed, got.State)
	require.Equal(t, detail, *got.ErrorDetail)
	require.Nil(t, got.ArtifactURL)
}
