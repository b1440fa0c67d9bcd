package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"docent-service/internal/entity"
	"docent-service/internal/status"
)

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *status.RedisStore) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return m, status.NewRedisStore(rdb)
}

func TestRedisStore_SetGet(t *testing.T) {
	ctx := context.Background()
	m, s := newRedisStore(t)
	id := uuid.New()
	want := entity.JobStatus{
		JobID:       id,
		State:       entity.StateSucceeded,
		Progress:    100,
		Message:     "done",
		ExecutionID: "p1",
		ArtifactURL: strPtr("/media/generated/a.png"),
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Set(ctx, want, time.Minute))
	require.True(t, m.Exists("job_status:"+id.String()))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.JobID, got.JobID)
	require.Equal(t, want.State, got.State)
	require.Equal(t, want.Progress, got.Progress)
	require.Equal(t, want.ExecutionID, got.ExecutionID)
	require.Equal(t, *want.ArtifactURL, *got.ArtifactURL)
	require.Nil(t, got.ErrorDetail)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestRedisStore_UnknownIsAbsent(t *testing.T) {
	_, s := newRedisStore(t)

	got, err := s.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStore_Expires(t *testing.T) {
	ctx := context.Background()
	m, s := newRedisStore(t)
	id := uuid.New()

	require.NoError(t, s.Set(ctx, entity.PendingStatus(id, "queued"), 10*time.Minute))
	require.Equal(t, 10*time.Minute, m.TTL("job_status:"+id.String()))

	m.FastForward(9 * time.Minute)
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	m.FastForward(2 * time.Minute)
	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStore_OverwriteResetsTTL(t *testing.T) {
	ctx := context.Background()
	m, s := newRedisStore(t)
	id := uuid.New()

	require.NoError(t, s.Set(ctx, entity.PendingStatus(id, "queued"), time.Minute))
	m.FastForward(50 * time.Second)
	require.NoError(t, s.Set(ctx, entity.JobStatus{JobID: id, State: entity.StatePolling, Progress: 40}, time.Minute))
	m.FastForward(50 * time.Second)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, entity.StatePolling, got.State)
	require.Equal(t, 40, got.Progress)
}

func TestRedisStore_BackendError(t *testing.T) {
	ctx := context.Background()
	m, s := newRedisStore(t)
	_, err := s.Get(ctx, uuid.New())
	require.NoError(t, err)

	m.SetError("ERR server unavailable")
	got, err := s.Get(ctx, uuid.New())
	require.Error(t, err)
	require.Nil(t, got)
}
