package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	StatePending     JobState = "PENDING"
	StateSubmitting  JobState = "SUBMITTING"
	StateSubmitted   JobState = "SUBMITTED"
	StatePolling     JobState = "POLLING"
	StateDownloading JobState = "DOWNLOADING"
	StateSucceeded   JobState = "SUCCEEDED"
	StateFailed      JobState = "FAILED"
	StateTimedOut    JobState = "TIMED_OUT"
)

// Terminal reports whether no further transition can follow s.
func (s JobState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut:
		return true
	}
	return false
}

type Mode string

const (
	ModeTextToImage  Mode = "text_to_image"
	ModeImageToImage Mode = "image_to_image"
)

// ParseMode accepts the long names and the t2i/i2i shorthands. Anything else
// falls back to text_to_image.
func ParseMode(s string) Mode {
	switch s {
	case "image_to_image", "i2i", "img2img":
		return ModeImageToImage
	default:
		return ModeTextToImage
	}
}

// ShortName is the t2i/i2i tag stored on generated artifacts.
func (m Mode) ShortName() string {
	if m == ModeImageToImage {
		return "i2i"
	}
	return "t2i"
}

// JobStatus is the record polled by clients. Only the runner that owns
// JobID writes it.
type JobStatus struct {
	JobID       uuid.UUID `json:"job_id" msgpack:"job_id"`
	State       JobState  `json:"state" msgpack:"state"`
	Progress    int       `json:"progress" msgpack:"progress"`
	Message     string    `json:"message" msgpack:"message"`
	ExecutionID string    `json:"execution_id,omitempty" msgpack:"execution_id"`
	ArtifactURL *string   `json:"artifact_url,omitempty" msgpack:"artifact_url"`
	ErrorDetail *string   `json:"error_detail,omitempty" msgpack:"error_detail"`
	UpdatedAt   time.Time `json:"updated_at" msgpack:"updated_at"`
}

// PendingStatus is the body reported for a freshly accepted job, and for ids
// the status store does not know about.
func PendingStatus(id uuid.UUID, msg string) JobStatus {
	return JobStatus{
		JobID:     id,
		State:     StatePending,
		Progress:  0,
		Message:   msg,
		UpdatedAt: time.Now().UTC(),
	}
}

// JobRequest is created once per user action and never modified afterwards.
type JobRequest struct {
	ID                 uuid.UUID `json:"id" msgpack:"id"`
	ConversationID     uuid.UUID `json:"conversation_id" msgpack:"conversation_id"`
	Mode               Mode      `json:"mode" msgpack:"mode"`
	PositiveText       string    `json:"positive_text" msgpack:"positive_text"`
	NegativeText       string    `json:"negative_text" msgpack:"negative_text"`
	PositiveTags       []string  `json:"positive_tags" msgpack:"positive_tags"`
	NegativeTags       []string  `json:"negative_tags" msgpack:"negative_tags"`
	ReferenceImage     []byte    `json:"reference_image,omitempty" msgpack:"reference_image"`
	ReferenceImageName string    `json:"reference_image_name,omitempty" msgpack:"reference_image_name"`
	Width              int       `json:"width" msgpack:"width"`
	Height             int       `json:"height" msgpack:"height"`
	Seed               uint64    `json:"seed,omitempty" msgpack:"seed"`
	CreatedAt          time.Time `json:"created_at" msgpack:"created_at"`
}

// EffectiveMode degrades image_to_image to text_to_image when no reference
// image was supplied.
func (r JobRequest) EffectiveMode() Mode {
	if len(r.ReferenceImage) == 0 {
		return ModeTextToImage
	}
	return ModeImageToImage
}
