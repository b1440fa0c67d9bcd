package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docent-service/internal/entity"
)

const (
	MaxImageBytes = 10 << 20
	MaxDimension  = 2048
)

var ErrInvalidRequest = errors.New("invalid request")

// ConversationLog is the append-only dialogue record
// (implementation: postgresql.ConversationRepository).
type ConversationLog interface {
	AppendMessage(ctx context.Context, sessionID uuid.UUID, sender entity.Sender, text string, imageURL *string) (*entity.Message, error)
}

type StatusStore interface {
	Set(ctx context.Context, st entity.JobStatus, ttl time.Duration) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.JobStatus, error)
}

// JobLedger keeps the durable outcome of each job
// (implementation: postgresql.JobRepository). Optional.
type JobLedger interface {
	Create(ctx context.Context, req entity.JobRequest) error
	Finish(ctx context.Context, st entity.JobStatus) error
	GetStatus(ctx context.Context, id uuid.UUID) (*entity.JobStatus, error)
}

// JobQueue is the enqueue side of Queue.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

type JobService struct {
	requests      RequestStore
	queue         JobQueue
	status        StatusStore
	conversations ConversationLog
	ledger        JobLedger
	statusTTL     time.Duration
	log           zerolog.Logger
}

func NewJobService(requests RequestStore, queue JobQueue, status StatusStore, conversations ConversationLog, ledger JobLedger, statusTTL time.Duration, log zerolog.Logger) *JobService {
	return &JobService{
		requests:      requests,
		queue:         queue,
		status:        status,
		conversations: conversations,
		ledger:        ledger,
		statusTTL:     statusTTL,
		log:           log.With().Str("component", "job_service").Logger(),
	}
}

type SubmitRequest struct {
	SessionID      uuid.UUID
	Mode           string
	Prompt         string
	NegativePrompt string
	PositiveTags   []string
	NegativeTags   []string
	Width          int
	Height         int
	Seed           uint64
	Image          []byte
	ImageName      string
}

type SubmitResult struct {
	JobID          uuid.UUID
	ConversationID uuid.UUID
	Status         entity.JobStatus
}

func validate(req *SubmitRequest) error {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if req.Width == 0 {
		req.Width = 1024
	}
	if req.Height == 0 {
		req.Height = 1024
	}
	if req.Width < 0 || req.Height < 0 || req.Width > MaxDimension || req.Height > MaxDimension {
		return fmt.Errorf("%w: width and height must be between 1 and %d", ErrInvalidRequest, MaxDimension)
	}
	if len(req.Image) > MaxImageBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidRequest, MaxImageBytes)
	}
	return nil
}

// Submit accepts a generation request. On return the job has a PENDING
// status and sits in the queue; nothing waits for it to run.
func (s *JobService) Submit(ctx context.Context, in SubmitRequest) (SubmitResult, error) {
	if err := validate(&in); err != nil {
		return SubmitResult{}, err
	}

	sessionID := in.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	req := entity.JobRequest{
		ID:                 uuid.New(),
		ConversationID:     sessionID,
		Mode:               entity.ParseMode(in.Mode),
		PositiveText:       in.Prompt,
		NegativeText:       strings.TrimSpace(in.NegativePrompt),
		PositiveTags:       in.PositiveTags,
		NegativeTags:       in.NegativeTags,
		ReferenceImage:     in.Image,
		ReferenceImageName: in.ImageName,
		Width:              in.Width,
		Height:             in.Height,
		Seed:               in.Seed,
		CreatedAt:          time.Now().UTC(),
	}
	log := s.log.With().Str("job_id", req.ID.String()).Logger()

	// The user message is written before the job can start.
	if _, err := s.conversations.AppendMessage(ctx, sessionID, entity.SenderUser, req.PositiveText, nil); err != nil {
		return SubmitResult{}, fmt.Errorf("append user message: %w", err)
	}
	if s.ledger != nil {
		if err := s.ledger.Create(ctx, req); err != nil {
			return SubmitResult{}, fmt.Errorf("record job: %w", err)
		}
	}
	if err := s.requests.Put(ctx, req, s.statusTTL); err != nil {
		return SubmitResult{}, fmt.Errorf("stash request: %w", err)
	}

	pending := entity.PendingStatus(req.ID, "image generation queued")
	if err := s.status.Set(ctx, pending, s.statusTTL); err != nil {
		return SubmitResult{}, fmt.Errorf("write status: %w", err)
	}

	if err := s.queue.Enqueue(ctx, req.ID.String()); err != nil {
		s.reject(ctx, req, err)
		if errors.Is(err, ErrQueueFull) {
			return SubmitResult{}, ErrQueueFull
		}
		return SubmitResult{}, fmt.Errorf("enqueue: %w", err)
	}

	log.Info().Str("mode", string(req.EffectiveMode())).Str("session_id", sessionID.String()).Msg("job accepted")
	return SubmitResult{JobID: req.ID, ConversationID: sessionID, Status: pending}, nil
}

// reject replaces the PENDING status of a job that never reached the queue.
func (s *JobService) reject(ctx context.Context, req entity.JobRequest, cause error) {
	st := entity.JobStatus{
		JobID:     req.ID,
		State:     entity.StateFailed,
		Progress:  100,
		Message:   "the server is busy; please try again shortly",
		UpdatedAt: time.Now().UTC(),
	}
	detail := cause.Error()
	st.ErrorDetail = &detail

	ctx = context.WithoutCancel(ctx)
	if err := s.status.Set(ctx, st, s.statusTTL); err != nil {
		s.log.Error().Err(err).Str("job_id", req.ID.String()).Msg("status write failed")
	}
	if s.ledger != nil {
		if err := s.ledger.Finish(ctx, st); err != nil {
			s.log.Error().Err(err).Str("job_id", req.ID.String()).Msg("ledger write failed")
		}
	}
	_ = s.requests.Delete(ctx, req.ID)
	s.log.Warn().Err(cause).Str("job_id", req.ID.String()).Msg("job rejected")
}

// Status returns the latest status of id. found is false when neither the
// status store nor the ledger knows the id.
func (s *JobService) Status(ctx context.Context, id uuid.UUID) (entity.JobStatus, bool, error) {
	st, err := s.status.Get(ctx, id)
	if err != nil {
		return entity.JobStatus{}, false, err
	}
	if st != nil {
		return *st, true, nil
	}
	if s.ledger == nil {
		return entity.JobStatus{}, false, nil
	}
	st, err = s.ledger.GetStatus(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return entity.JobStatus{}, false, nil
		}
		return entity.JobStatus{}, false, err
	}
	return *st, true, nil
}
