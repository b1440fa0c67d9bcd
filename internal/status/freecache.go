package status

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	fc "github.com/coocood/freecache"
	"github.com/google/uuid"

	"docent-service/internal/entity"
)

// FreeCacheStore is the in-process backend. Each Set is a single
// freecache entry write, so readers see it immediately.
type FreeCacheStore struct {
	cache *fc.Cache
}

func NewFreeCacheStore(sizeBytes int) *FreeCacheStore {
	return &FreeCacheStore{cache: fc.NewCache(sizeBytes)}
}

func (s *FreeCacheStore) Set(ctx context.Context, st entity.JobStatus, ttl time.Duration) error {
	if st.JobID == uuid.Nil {
		return fmt.Errorf("job id cannot be empty")
	}
	data, err := encode(st)
	if err != nil {
		return err
	}
	return s.cache.Set([]byte(key(st.JobID)), data, ttlSeconds(ttl))
}

func (s *FreeCacheStore) Get(ctx context.Context, jobID uuid.UUID) (*entity.JobStatus, error) {
	data, err := s.cache.Get([]byte(key(jobID)))
	if err != nil {
		if errors.Is(err, fc.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var st entity.JobStatus
	if err := decode(data, &st); err != nil {
		return nil, fmt.Errorf("decode status %s: %w", jobID, err)
	}
	return &st, nil
}

// ttlSeconds rounds up so a sub-second ttl does not become "no expiry".
func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int((ttl + time.Second - 1) / time.Second)
}

func encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, out any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}
