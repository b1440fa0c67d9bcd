package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"docent-service/internal/entity"
	"docent-service/internal/service"
	"docent-service/internal/worker"
)

type orphanQueue struct {
	*service.MemoryQueue
	orphans []string
}

func (q *orphanQueue) Recover(ctx context.Context) ([]string, error) {
	ids := q.orphans
	q.orphans = nil
	return ids, nil
}

func TestPool_RunsQueuedJobs(t *testing.T) {
	f := newFixture(entity.StateSucceeded)
	q := service.NewMemoryQueue(8)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		req := f.stash(t)
		ids = append(ids, req.ID)
		require.NoError(t, q.Enqueue(context.Background(), req.ID.String()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	pool := worker.NewPool(q, f.proc, 3, zerolog.Nop())
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.runner.count() == len(ids) }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not stop")
	}

	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	for _, id := range ids {
		require.Equal(t, entity.StateSucceeded, f.ledger.finished[id])
	}
}

func TestPool_RecoverFailsOrphans(t *testing.T) {
	f := newFixture(entity.StateSucceeded)
	orphan := uuid.New()
	q := &orphanQueue{MemoryQueue: service.NewMemoryQueue(1), orphans: []string{orphan.String(), "garbage"}}

	n, err := worker.NewPool(q, f.proc, 1, zerolog.Nop()).Recover(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	st, err := f.status.Get(context.Background(), orphan)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, entity.StateFailed, st.State)
	require.NotNil(t, st.ErrorDetail)
	require.Equal(t, "worker restarted", *st.ErrorDetail)
}

func TestPool_RunReapsOrphansPeriodically(t *testing.T) {
	f := newFixture(entity.StateSucceeded)
	orphan := uuid.New()
	q := &orphanQueue{MemoryQueue: service.NewMemoryQueue(1), orphans: []string{orphan.String()}}

	pool := worker.NewPool(q, f.proc, 1, zerolog.Nop())
	worker.SetReapInterval(pool, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		st, err := f.status.Get(context.Background(), orphan)
		return err == nil && st != nil && st.State == entity.StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not stop")
	}
}
