package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docent-service/internal/entity"
)

type ArtifactRepository struct {
	pool *pgxpool.Pool
}

func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{pool: pool}
}

const artifactColumns = `id, job_id, title, description, prompt, style, image_type, storage_key, url, views, likes, is_public, created_at`

func scanArtifact(row pgx.Row) (*entity.GeneratedArtifact, error) {
	var a entity.GeneratedArtifact
	err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.Title,
		&a.Description,
		&a.Prompt,
		&a.Style,
		&a.ImageType,
		&a.StorageKey,
		&a.URL,
		&a.Views,
		&a.Likes,
		&a.Public,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a and fills in its id and creation time.
func (r *ArtifactRepository) Create(ctx context.Context, a *entity.GeneratedArtifact) error {
	const q = `
INSERT INTO generated_images (job_id, title, description, prompt, style, image_type, storage_key, url, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at;
`
	return r.pool.QueryRow(ctx, q,
		a.JobID, a.Title, a.Description, a.Prompt, a.Style, a.ImageType, a.StorageKey, a.URL, a.Public,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *ArtifactRepository) ListPublic(ctx context.Context, limit, offset int) ([]entity.GeneratedArtifact, error) {
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + artifactColumns + `
FROM generated_images
WHERE is_public
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;`

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.GeneratedArtifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// View returns the artifact and counts the view.
func (r *ArtifactRepository) View(ctx context.Context, id int64) (*entity.GeneratedArtifact, error) {
	q := `UPDATE generated_images SET views = views + 1 WHERE id = $1 RETURNING ` + artifactColumns + `;`
	return scanArtifact(r.pool.QueryRow(ctx, q, id))
}

// Like increments the like counter and returns the new value.
func (r *ArtifactRepository) Like(ctx context.Context, id int64) (int, error) {
	var likes int
	err := r.pool.QueryRow(ctx, `UPDATE generated_images SET likes = likes + 1 WHERE id = $1 RETURNING likes;`, id).Scan(&likes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return likes, nil
}

func (r *ArtifactRepository) SetPublic(ctx context.Context, id int64, public bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE generated_images SET is_public = $2 WHERE id = $1;`, id, public)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
