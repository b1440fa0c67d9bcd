package status_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docent-service/internal/entity"
	"docent-service/internal/status"
)

func strPtr(s string) *string { return &s }

func TestFreeCacheStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := status.NewFreeCacheStore(1 << 20)

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

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.State, got.State)
	require.Equal(t, want.Progress, got.Progress)
	require.Equal(t, *want.ArtifactURL, *got.ArtifactURL)
	require.Nil(t, got.ErrorDetail)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestFreeCacheStore_UnknownIsAbsent(t *testing.T) {
	s := status.NewFreeCacheStore(1 << 20)

	got, err := s.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFreeCacheStore_Expires(t *testing.T) {
	ctx := context.Background()
	s := status.NewFreeCacheStore(1 << 20)
	id := uuid.New()

	require.NoError(t, s.Set(ctx, entity.PendingStatus(id, "queued"), time.Second))
	time.Sleep(2100 * time.Millisecond)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFreeCacheStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := status.NewFreeCacheStore(1 << 20)
	id := uuid.New()

	require.NoError(t, s.Set(ctx, entity.PendingStatus(id, "queued"), time.Minute))
	require.NoError(t, s.Set(ctx, entity.JobStatus{JobID: id, State: entity.StatePolling, Progress: 40}, time.Minute))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, entity.StatePolling, got.State)
	require.Equal(t, 40, got.Progress)
}

func TestFreeCacheStore_RejectsNilID(t *testing.T) {
	s := status.NewFreeCacheStore(1 << 20)

	require.Error(t, s.Set(context.Background(), entity.JobStatus{State: entity.StatePending}, time.Minute))
}

func TestFreeCacheStore_JobsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := status.NewFreeCacheStore(4 << 20)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, s.Set(ctx, entity.PendingStatus(a, "a"), time.Minute))

	var wg sync.WaitGroup
	for i := 0; i <= 100; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_ = s.Set(ctx, entity.JobStatus{JobID: b, State: entity.StatePolling, Progress: p}, time.Minute)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, a)
	require.NoError(t, err)
	require.Equal(t, entity.StatePending, got.State)
	require.Equal(t, "a", got.Message)
	require.Equal(t, 0, got.Progress)
}
