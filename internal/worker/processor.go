package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docent-service/internal/entity"
	"docent-service/internal/runner"
	"docent-service/internal/service"
)

var ErrRequestExpired = errors.New("job request expired")

// JobRunner is implemented by runner.Runner.
type JobRunner interface {
	Run(ctx context.Context, req entity.JobRequest) runner.Result
}

const resultText = "Here is the image you asked for."

type Processor struct {
	requests      service.RequestStore
	runner        JobRunner
	status        service.StatusStore
	conversations service.ConversationLog
	ledger        service.JobLedger
	statusTTL     time.Duration
	log           zerolog.Logger
}

func NewProcessor(requests service.RequestStore, r JobRunner, status service.StatusStore, conversations service.ConversationLog, ledger service.JobLedger, statusTTL time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		requests:      requests,
		runner:        r,
		status:        status,
		conversations: conversations,
		ledger:        ledger,
		statusTTL:     statusTTL,
		log:           log.With().Str("component", "worker").Logger(),
	}
}

// Process runs one claimed job to a terminal state and records the outcome
// in the conversation. The returned error is for logging only; the job
// status already reflects it.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	id, err := uuid.Parse(jobID)
	if err != nil {
		p.log.Error().Str("job_id", jobID).Err(err).Msg("bad job id")
		return err
	}
	log := p.log.With().Str("job_id", id.String()).Logger()

	req, err := p.requests.Get(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("load request")
		p.Fail(ctx, id, "job could not be loaded", err)
		return err
	}
	if req == nil {
		p.Fail(ctx, id, "job request expired before it could run", ErrRequestExpired)
		return ErrRequestExpired
	}

	res := p.runner.Run(ctx, *req)

	// The outcome must be recorded even if shutdown cancelled the run.
	wctx := context.WithoutCancel(ctx)
	if p.ledger != nil {
		if err := p.ledger.Finish(wctx, res.Status); err != nil {
			log.Error().Err(err).Msg("ledger write failed")
		}
	}
	if err := p.reply(wctx, req.ConversationID, res); err != nil {
		log.Error().Err(err).Msg("append result message")
	}
	_ = p.requests.Delete(wctx, id)

	log.Info().
		Str("state", string(res.Status.State)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("job finished")

	if res.Status.State != entity.StateSucceeded {
		return fmt.Errorf("job %s: %s", res.Status.State, res.Status.Message)
	}
	return nil
}

func (p *Processor) reply(ctx context.Context, sessionID uuid.UUID, res runner.Result) error {
	if res.Status.State == entity.StateSucceeded && res.Status.ArtifactURL != nil {
		_, err := p.conversations.AppendMessage(ctx, sessionID, entity.SenderAssistant, resultText, res.Status.ArtifactURL)
		return err
	}
	_, err := p.conversations.AppendMessage(ctx, sessionID, entity.SenderAssistant, res.Status.Message, nil)
	return err
}

// Fail marks a job FAILED without running it.
func (p *Processor) Fail(ctx context.Context, id uuid.UUID, msg string, cause error) {
	ctx = context.WithoutCancel(ctx)
	st := entity.JobStatus{
		JobID:     id,
		State:     entity.StateFailed,
		Progress:  100,
		Message:   msg,
		UpdatedAt: time.Now().UTC(),
	}
	if cause != nil {
		detail := cause.Error()
		st.ErrorDetail = &detail
	}
	if err := p.status.Set(ctx, st, p.statusTTL); err != nil {
		p.log.Error().Err(err).Str("job_id", id.String()).Msg("status write failed")
	}
	if p.ledger != nil {
		if err := p.ledger.Finish(ctx, st); err != nil {
			p.log.Error().Err(err).Str("job_id", id.String()).Msg("ledger write failed")
		}
	}
	_ = p.requests.Delete(ctx, id)
}
