package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return m, rdb
}

func TestRedisQueue_CapacityAndOrder(t *testing.T) {
	ctx := context.Background()
	_, rdb := newMiniRedis(t)
	q := newRedisQueue(rdb, "jobs", "jobs:processing", 2, "a", time.Minute)

	require.NoError(t, q.Enqueue(ctx, "1"))
	require.NoError(t, q.Enqueue(ctx, "2"))
	require.ErrorIs(t, q.Enqueue(ctx, "3"), ErrQueueFull)

	for _, want := range []string{"1", "2"} {
		got, err := q.ClaimBlocking(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	claimed, err := rdb.LRange(ctx, "jobs:processing:a", 0, -1).Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, claimed)

	require.NoError(t, q.Ack(ctx, "1"))
	claimed, err = rdb.LRange(ctx, "jobs:processing:a", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, claimed)
}

func TestRedisQueue_ClaimTimeout(t *testing.T) {
	_, rdb := newMiniRedis(t)
	q := newRedisQueue(rdb, "jobs", "jobs:processing", 2, "a", time.Minute)

	_, err := q.ClaimBlocking(context.Background(), 300*time.Millisecond)
	require.True(t, errors.Is(err, ErrQueueEmpty), "got %v", err)
}

func TestRedisQueue_ClaimCancelled(t *testing.T) {
	_, rdb := newMiniRedis(t)
	q := newRedisQueue(rdb, "jobs", "jobs:processing", 2, "a", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.ClaimBlocking(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRedisQueue_RecoverLeavesLivePeersAlone(t *testing.T) {
	ctx := context.Background()
	m, rdb := newMiniRedis(t)
	api := newRedisQueue(rdb, "jobs", "jobs:processing", 8, "api", 30*time.Second)
	wrk := newRedisQueue(rdb, "jobs", "jobs:processing", 8, "worker", 30*time.Second)

	require.NoError(t, api.Enqueue(ctx, "job-live"))
	id, err := api.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "job-live", id)

	// A second process starting up must not take a job its peer still runs.
	ids, err := wrk.Recover(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// The peer keeps renewing while it runs.
	m.FastForward(20 * time.Second)
	_, err = api.Recover(ctx)
	require.NoError(t, err)
	m.FastForward(20 * time.Second)
	ids, err = wrk.Recover(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Once it stops renewing, its claims are handed back exactly once.
	m.FastForward(31 * time.Second)
	ids, err = wrk.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-live"}, ids)

	ids, err = wrk.Recover(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	members, err := rdb.SMembers(ctx, "jobs:processing:instances").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"worker"}, members)
}

func TestRedisQueue_RecoverKeepsOwnClaims(t *testing.T) {
	ctx := context.Background()
	m, rdb := newMiniRedis(t)
	q := newRedisQueue(rdb, "jobs", "jobs:processing", 8, "a", 30*time.Second)

	require.NoError(t, q.Enqueue(ctx, "mine"))
	_, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)

	m.FastForward(time.Hour)
	ids, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestClaimWait(t *testing.T) {
	cases := []struct {
		remain time.Duration
		want   time.Duration
	}{
		{999 * time.Millisecond, time.Second},
		{time.Nanosecond, time.Second},
		{time.Second, time.Second},
		{1500 * time.Millisecond, time.Second},
		{10 * time.Second, time.Second},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, claimWait(c.remain, time.Second), "remain=%s", c.remain)
	}
	assert.Equal(t, 3*time.Second, claimWait(2100*time.Millisecond, 5*time.Second))
}
