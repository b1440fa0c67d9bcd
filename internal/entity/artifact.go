package entity

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedArtifact is the persisted metadata of an image produced by a
// successful job.
type GeneratedArtifact struct {
	ID          int64     `json:"id"`
	JobID       uuid.UUID `json:"job_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
	Style       string    `json:"style"`
	ImageType   string    `json:"image_type"`
	StorageKey  string    `json:"-"`
	URL         string    `json:"url"`
	Views       int       `json:"views"`
	Likes       int       `json:"likes"`
	Public      bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}
