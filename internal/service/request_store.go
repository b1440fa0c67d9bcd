package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"docent-service/internal/entity"
)

// RequestStore stashes accepted job requests until a worker picks them up.
// Get returns (nil, nil) for unknown or expired ids.
type RequestStore interface {
	Put(ctx context.Context, req entity.JobRequest, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (*entity.JobRequest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MemoryRequestStore struct {
	c *gocache.Cache
}

func NewMemoryRequestStore(defaultTTL time.Duration) *MemoryRequestStore {
	return &MemoryRequestStore{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (s *MemoryRequestStore) Put(ctx context.Context, req entity.JobRequest, ttl time.Duration) error {
	s.c.Set(req.ID.String(), req, ttl)
	return nil
}

func (s *MemoryRequestStore) Get(ctx context.Context, id uuid.UUID) (*entity.JobRequest, error) {
	v, ok := s.c.Get(id.String())
	if !ok {
		return nil, nil
	}
	req, ok := v.(entity.JobRequest)
	if !ok {
		return nil, fmt.Errorf("request %s: unexpected cache value %T", id, v)
	}
	return &req, nil
}

func (s *MemoryRequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.c.Delete(id.String())
	return nil
}

type RedisRequestStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRequestStore(rdb *redis.Client, prefix string) *RedisRequestStore {
	return &RedisRequestStore{rdb: rdb, prefix: prefix}
}

func (s *RedisRequestStore) key(id uuid.UUID) string {
	return s.prefix + id.String()
}

func (s *RedisRequestStore) Put(ctx context.Context, req entity.JobRequest, ttl time.Duration) error {
	b, err := msgpack.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request %s: %w", req.ID, err)
	}
	return s.rdb.Set(ctx, s.key(req.ID), b, ttl).Err()
}

func (s *RedisRequestStore) Get(ctx context.Context, id uuid.UUID) (*entity.JobRequest, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var req entity.JobRequest
	if err := msgpack.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("unmarshal request %s: %w", id, err)
	}
	return &req, nil
}

func (s *RedisRequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}
