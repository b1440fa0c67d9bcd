package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrQueueFull  = errors.New("queue: full")
	ErrQueueEmpty = errors.New("queue: empty")
)

// Queue hands job ids from the API to workers.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	// ClaimBlocking waits up to timeout for an id; timeout <= 0 waits until
	// ctx is done. Returns ErrQueueEmpty when nothing arrived in time.
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
	// Recover returns ids a dead worker process claimed but never acked and
	// removes them from the queue. Jobs claimed by live processes are left
	// alone.
	Recover(ctx context.Context) ([]string, error)
}

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	ch chan string
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{ch: make(chan string, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case id := <-q.ch:
		return id, nil
	case <-expired:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Ack(ctx context.Context, jobID string) error { return nil }

// Recover has nothing to return; in-process ids die with the process.
func (q *MemoryQueue) Recover(ctx context.Context) ([]string, error) { return nil, nil }

func (q *MemoryQueue) Len() int { return len(q.ch) }

// redisQueue is a reliable queue on Redis lists.
// Claim: BRPOPLPUSH queue -> processing:<instance>
// Ack:   LREM processing:<instance>
//
// Every process claims into its own list and keeps a lease key alive while
// it runs. Recover only drains lists whose owner's lease has expired, so a
// restarting process never steals jobs that a live peer is still running.
type redisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
	instance      string
	leaseTTL      time.Duration
	capacity      int64
}

const defaultLeaseTTL = 30 * time.Second

func NewRedisQueue(rdb *redis.Client, queueKey, processingKey string, capacity int) Queue {
	return newRedisQueue(rdb, queueKey, processingKey, capacity, uuid.NewString(), defaultLeaseTTL)
}

func newRedisQueue(rdb *redis.Client, queueKey, processingKey string, capacity int, instance string, leaseTTL time.Duration) *redisQueue {
	return &redisQueue{
		rdb:           rdb,
		queueKey:      queueKey,
		processingKey: processingKey,
		instance:      instance,
		leaseTTL:      leaseTTL,
		capacity:      int64(capacity),
	}
}

func (q *redisQueue) claimKey(instance string) string {
	return q.processingKey + ":" + instance
}

func (q *redisQueue) leaseKey(instance string) string {
	return q.processingKey + ":lease:" + instance
}

func (q *redisQueue) instancesKey() string {
	return q.processingKey + ":instances"
}

// renewLease sets the lease before registering, so a peer never sees a
// registered instance without one.
func (q *redisQueue) renewLease(ctx context.Context) error {
	if err := q.rdb.Set(ctx, q.leaseKey(q.instance), 1, q.leaseTTL).Err(); err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	return q.rdb.SAdd(ctx, q.instancesKey(), q.instance).Err()
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	if q.capacity > 0 {
		n, err := q.rdb.LLen(ctx, q.queueKey).Result()
		if err != nil {
			return err
		}
		if n >= q.capacity {
			return ErrQueueFull
		}
	}
	return q.rdb.LPush(ctx, q.queueKey, jobID).Err()
}

// ClaimBlocking blocks in one-second slots so ctx cancellation is noticed
// promptly.
func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	forever := timeout <= 0
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		wait := time.Second
		if !forever {
			remain := time.Until(deadline)
			if remain <= 0 {
				return "", ErrQueueEmpty
			}
			wait = claimWait(remain, wait)
		}
		if err := q.renewLease(ctx); err != nil {
			return "", err
		}

		id, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.claimKey(q.instance), wait).Result()
		if err == nil {
			return id, nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		return "", err
	}
}

// claimWait caps remain at slot and rounds it up to whole seconds, the
// resolution of BRPOPLPUSH.
func claimWait(remain, slot time.Duration) time.Duration {
	if remain > slot {
		remain = slot
	}
	return time.Duration(math.Ceil(remain.Seconds())) * time.Second
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	return q.rdb.LRem(ctx, q.claimKey(q.instance), 1, jobID).Err()
}

// Recover renews this process's lease and drains the claim lists of
// instances whose lease has expired. It is safe to call repeatedly and from
// several processes at once: each id is popped by exactly one caller.
func (q *redisQueue) Recover(ctx context.Context) ([]string, error) {
	if err := q.renewLease(ctx); err != nil {
		return nil, err
	}
	members, err := q.rdb.SMembers(ctx, q.instancesKey()).Result()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, instance := range members {
		if instance == q.instance {
			continue
		}
		alive, err := q.rdb.Exists(ctx, q.leaseKey(instance)).Result()
		if err != nil {
			return ids, err
		}
		if alive > 0 {
			continue
		}
		for {
			id, err := q.rdb.RPop(ctx, q.claimKey(instance)).Result()
			if errors.Is(err, redis.Nil) {
				break
			}
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
		}
		if err := q.rdb.SRem(ctx, q.instancesKey(), instance).Err(); err != nil {
			return ids, err
		}
	}
	return ids, nil
}
