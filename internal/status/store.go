// Package status keeps the short-lived job status records read by pollers.
package status

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docent-service/internal/entity"
)

// Store maps job ids to their latest status. Get returns (nil, nil) for
// unknown or expired ids.
type Store interface {
	Set(ctx context.Context, st entity.JobStatus, ttl time.Duration) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.JobStatus, error)
}

func key(id uuid.UUID) string {
	return "job_status:" + id.String()
}
