package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"docent-service/internal/service"
)

var errWorkerRestarted = errors.New("worker restarted")

type Pool struct {
	queue      service.Queue
	processor  *Processor
	workers    int
	claimDelay time.Duration
	reapEvery  time.Duration
	log        zerolog.Logger
}

func NewPool(queue service.Queue, processor *Processor, workers int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		reapEvery:  10 * time.Second,
		log:        log.With().Str("component", "worker_pool").Logger(),
	}
}

// Recover fails jobs a dead process claimed but never finished. Run keeps
// calling it on a ticker, which also keeps this process's claims leased.
func (p *Pool) Recover(ctx context.Context) (int, error) {
	ids, err := p.queue.Recover(ctx)
	for _, raw := range ids {
		id, perr := uuid.Parse(raw)
		if perr != nil {
			p.log.Warn().Str("job_id", raw).Msg("dropping unparseable orphan")
			continue
		}
		p.processor.Fail(ctx, id, "the worker restarted while this job was running", errWorkerRestarted)
	}
	if len(ids) > 0 {
		p.log.Warn().Int("count", len(ids)).Msg("failed orphaned jobs")
	}
	return len(ids), err
}

// Run claims jobs until ctx is cancelled, then waits for the jobs in flight.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info().Int("workers", p.workers).Msg("worker pool started")

	jobCh := make(chan string)
	var g errgroup.Group

	g.Go(func() error {
		ticker := time.NewTicker(p.reapEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := p.Recover(ctx); err != nil && ctx.Err() == nil {
					p.log.Error().Err(err).Msg("reap orphaned jobs")
				}
			}
		}
	})

	for i := 0; i < p.workers; i++ {
		n := i + 1
		g.Go(func() error {
			for jobID := range jobCh {
				if err := p.processor.Process(ctx, jobID); err != nil {
					p.log.Warn().Int("worker", n).Str("job_id", jobID).Err(err).Msg("job did not succeed")
				}

				// Ack in any case: the job already has a terminal status.
				if err := p.queue.Ack(context.WithoutCancel(ctx), jobID); err != nil {
					p.log.Error().Int("worker", n).Str("job_id", jobID).Err(err).Msg("ack failed")
				}
			}
			return nil
		})
	}

	// Listener: claim from queue and hand off to a free worker.
	for ctx.Err() == nil {
		jobID, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
		if err != nil {
			if !errors.Is(err, service.ErrQueueEmpty) && ctx.Err() == nil {
				p.log.Error().Err(err).Msg("claim failed")
				time.Sleep(time.Second)
			}
			continue
		}
		select {
		case jobCh <- jobID:
		case <-ctx.Done():
			// Claimed but never started; a Redis queue keeps it in this
			// process's claim list until a peer reaps the expired lease.
		}
	}

	close(jobCh)
	_ = g.Wait()
	p.log.Info().Msg("worker pool stopped")
}
