package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docent-service/internal/entity"
)

// JobRepository keeps the durable outcome of each job. It outlives the
// status store TTL, so a missing status can be told apart from a lost job.
type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, req entity.JobRequest) error {
	const q = `
INSERT INTO jobs (id, conversation_id, mode, prompt, state, message)
VALUES ($1, $2, $3, $4, $5, '')
ON CONFLICT (id) DO NOTHING;
`
	_, err := r.pool.Exec(ctx, q, req.ID, req.ConversationID, string(req.EffectiveMode()), req.PositiveText, string(entity.StatePending))
	return err
}

// Finish records a terminal status.
func (r *JobRepository) Finish(ctx context.Context, st entity.JobStatus) error {
	const q = `
UPDATE jobs
SET state = $2, execution_id = NULLIF($3, ''), artifact_url = $4, message = $5, error = $6, updated_at = now()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, q, st.JobID, string(st.State), st.ExecutionID, st.ArtifactURL, st.Message, st.ErrorDetail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStatus rebuilds a JobStatus from the durable row.
func (r *JobRepository) GetStatus(ctx context.Context, id uuid.UUID) (*entity.JobStatus, error) {
	const q = `
SELECT id, state, COALESCE(execution_id, ''), artifact_url, message, error, updated_at
FROM jobs
WHERE id = $1;
`
	var (
		st    entity.JobStatus
		state string
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&st.JobID, &state, &st.ExecutionID, &st.ArtifactURL, &st.Message, &st.ErrorDetail, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	st.State = entity.JobState(state)
	if st.State.Terminal() {
		st.Progress = 100
	}
	return &st, nil
}
