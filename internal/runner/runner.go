// Package runner drives one image-generation job from submission to a
// terminal status.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"docent-service/internal/comfy"
	"docent-service/internal/entity"
	"docent-service/internal/prompt"
	"docent-service/internal/storage"
	"docent-service/internal/tracing"
	"docent-service/internal/workflow"
)

type Templates interface {
	Get(kind workflow.Kind) (workflow.Graph, error)
}

type Composer interface {
	Compose(userText, userNegative string, positiveTags, negativeTags []string) prompt.Composition
}

// Backend is the execution backend. Implemented by comfy.Client.
type Backend interface {
	Submit(ctx context.Context, graph workflow.Graph) (string, error)
	FetchRecord(ctx context.Context, executionID string) (*comfy.Record, error)
	FetchArtifact(ctx context.Context, a comfy.Artifact) ([]byte, error)
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
}

type StatusWriter interface {
	Set(ctx context.Context, st entity.JobStatus, ttl time.Duration) error
}

type ArtifactRecorder interface {
	Create(ctx context.Context, a *entity.GeneratedArtifact) error
}

type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	StatusTTL    time.Duration
	Checkpoint   string
	// Denoise overrides the image_to_image sampler strength; zero keeps the
	// template value.
	Denoise float64
}

type Deps struct {
	Templates Templates
	Composer  Composer
	Backend   Backend
	Status    StatusWriter
	Storage   storage.ArtifactStore
	Artifacts ArtifactRecorder
}

type Runner struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
	now  func() time.Time

	finished metric.Int64Counter
	duration metric.Float64Histogram
}

func New(cfg Config, deps Deps, log zerolog.Logger) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 120
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 10 * time.Minute
	}

	meter := tracing.Meter()
	finished, err := meter.Int64Counter("docent.jobs.finished",
		metric.WithDescription("Jobs that reached a terminal state"))
	if err != nil {
		log.Warn().Err(err).Msg("jobs counter unavailable")
	}
	duration, err := meter.Float64Histogram("docent.jobs.duration",
		metric.WithDescription("Wall time from start to terminal state"), metric.WithUnit("s"))
	if err != nil {
		log.Warn().Err(err).Msg("jobs histogram unavailable")
	}

	return &Runner{
		cfg:      cfg,
		deps:     deps,
		log:      log.With().Str("component", "runner").Logger(),
		now:      time.Now,
		finished: finished,
		duration: duration,
	}
}

// Result is the terminal outcome of Run. Artifact is set only on success.
type Result struct {
	Status   entity.JobStatus
	Artifact *entity.GeneratedArtifact
}

// job is the mutable state of one Run; it is never shared between runs.
type job struct {
	req         entity.JobRequest
	log         zerolog.Logger
	executionID string
	composed    prompt.Composition
}

// Run executes req and returns its terminal status. Every transition is
// written to the status store before the next step starts.
func (r *Runner) Run(ctx context.Context, req entity.JobRequest) Result {
	started := r.now()
	ctx, span := tracing.Tracer().Start(ctx, "Runner/Run")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", req.ID.String()))

	j := &job{req: req, log: r.log.With().Str("job_id", req.ID.String()).Logger()}
	res := r.run(ctx, j)

	span.SetAttributes(attribute.String("state", string(res.Status.State)))
	if res.Status.State != entity.StateSucceeded && res.Status.ErrorDetail != nil {
		tracing.RecordError(span, errors.New(*res.Status.ErrorDetail))
	}
	attrs := metric.WithAttributes(
		attribute.String("state", string(res.Status.State)),
		attribute.String("mode", string(req.EffectiveMode())),
	)
	if r.finished != nil {
		r.finished.Add(context.WithoutCancel(ctx), 1, attrs)
	}
	if r.duration != nil {
		r.duration.Record(context.WithoutCancel(ctx), r.now().Sub(started).Seconds(), attrs)
	}
	return res
}

func (r *Runner) run(ctx context.Context, j *job) Result {
	r.transition(ctx, j, entity.StateSubmitting, 5, "submitting workflow")

	graph, outputNode, err := r.build(ctx, j)
	if err != nil {
		return r.fail(ctx, j, "failed to prepare the workflow", err)
	}

	execID, err := r.deps.Backend.Submit(ctx, graph)
	if err != nil {
		if ctx.Err() != nil {
			return r.interrupted(ctx, j, err)
		}
		return r.fail(ctx, j, "failed to submit the workflow", err)
	}
	j.executionID = execID
	j.log = j.log.With().Str("execution_id", execID).Logger()
	r.transition(ctx, j, entity.StateSubmitted, 10, "workflow queued")

	artifact, res, done := r.poll(ctx, j, outputNode)
	if done {
		return res
	}

	return r.download(ctx, j, artifact)
}

// build clones the template for the request's effective mode and patches it.
func (r *Runner) build(ctx context.Context, j *job) (workflow.Graph, string, error) {
	mode := j.req.EffectiveMode()
	kind := workflow.KindTextToImage
	if mode == entity.ModeImageToImage {
		kind = workflow.KindImageToImage
	}
	if j.req.Mode == entity.ModeImageToImage && mode != j.req.Mode {
		j.log.Info().Msg("no reference image, using text_to_image")
	}

	graph, err := r.deps.Templates.Get(kind)
	if err != nil {
		return nil, "", err
	}

	j.composed = r.deps.Composer.Compose(j.req.PositiveText, j.req.NegativeText, j.req.PositiveTags, j.req.NegativeTags)
	if len(j.composed.Unknown) > 0 {
		j.log.Warn().Strs("tags", j.composed.Unknown).Msg("unknown prompt categories skipped")
	}

	params := workflow.Params{
		PositiveText:   j.composed.Positive,
		NegativeText:   j.composed.Negative,
		Seed:           j.req.Seed,
		Width:          j.req.Width,
		Height:         j.req.Height,
		Checkpoint:     r.cfg.Checkpoint,
		FilenamePrefix: "docent_" + shortID(j.req.ID),
	}
	if kind == workflow.KindImageToImage {
		name := uploadName(j.req)
		ref, err := r.deps.Backend.UploadImage(ctx, name, j.req.ReferenceImage)
		if err != nil {
			return nil, "", err
		}
		params.ReferenceImage = ref
		// The IPAdapter template samples from an empty latent, so the
		// template's full denoise stays unless explicitly overridden.
		params.Denoise = r.cfg.Denoise
	}

	seed, err := graph.Apply(params)
	if err != nil {
		return nil, "", err
	}
	outputNode, _ := graph.Find(workflow.RoleOutput)
	j.log.Debug().Str("template", string(kind)).Uint64("seed", seed).Msg("workflow built")
	return graph, outputNode, nil
}

// poll waits for the execution record to list an artifact. done is true
// when the job already reached a terminal state.
func (r *Runner) poll(ctx context.Context, j *job, outputNode string) (comfy.Artifact, Result, bool) {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := sleep(ctx, r.cfg.PollInterval); err != nil {
			return comfy.Artifact{}, r.interrupted(ctx, j, err), true
		}
		r.transition(ctx, j, entity.StatePolling, pollProgress(attempt, r.cfg.MaxAttempts),
			fmt.Sprintf("generating image (check %d/%d)", attempt, r.cfg.MaxAttempts))

		rec, err := r.deps.Backend.FetchRecord(ctx, j.executionID)
		if err != nil {
			if ctx.Err() != nil {
				return comfy.Artifact{}, r.interrupted(ctx, j, err), true
			}
			j.log.Warn().Err(err).Int("attempt", attempt).Msg("fetch record failed")
			continue
		}
		if rec == nil {
			j.log.Debug().Int("attempt", attempt).Msg("record not available yet")
			continue
		}
		if rec.Failed() {
			return comfy.Artifact{}, r.fail(ctx, j, "image generation failed", errors.New(rec.ErrorMessage())), true
		}
		arts := rec.Artifacts(outputNode)
		if len(arts) == 0 {
			j.log.Debug().Int("attempt", attempt).Msg("record has no artifacts yet")
			continue
		}
		j.log.Info().Int("attempt", attempt).Str("filename", arts[0].Filename).Msg("artifact ready")
		return arts[0], Result{}, false
	}

	waited := time.Duration(r.cfg.MaxAttempts) * r.cfg.PollInterval
	st := r.status(j, entity.StateTimedOut, 100,
		fmt.Sprintf("image generation did not finish within %s; please try again later", waited))
	detail := fmt.Sprintf("no artifact after %d attempts", r.cfg.MaxAttempts)
	st.ErrorDetail = &detail
	r.write(ctx, j, st)
	j.log.Warn().Str("state", string(st.State)).Int("attempt", r.cfg.MaxAttempts).Msg("job timed out")
	return comfy.Artifact{}, Result{Status: st}, true
}

func (r *Runner) download(ctx context.Context, j *job, a comfy.Artifact) Result {
	r.transition(ctx, j, entity.StateDownloading, 95, "saving image")

	data, err := r.deps.Backend.FetchArtifact(ctx, a)
	if err != nil {
		return r.fail(ctx, j, "failed to download the generated image", err)
	}

	obj, err := r.deps.Storage.Save(ctx, a.Filename, data)
	if err != nil {
		return r.fail(ctx, j, "failed to save the generated image", err)
	}

	art := &entity.GeneratedArtifact{
		JobID:       j.req.ID,
		Title:       truncate(j.req.PositiveText, 200),
		Description: j.composed.Positive,
		Prompt:      j.req.PositiveText,
		Style:       truncate(strings.Join(j.req.PositiveTags, ", "), 100),
		ImageType:   j.req.EffectiveMode().ShortName(),
		StorageKey:  obj.Key,
		URL:         obj.URL,
	}
	if err := r.deps.Artifacts.Create(ctx, art); err != nil {
		return r.fail(ctx, j, "failed to record the generated image", err)
	}

	st := r.status(j, entity.StateSucceeded, 100, "image generated")
	st.ArtifactURL = &obj.URL
	r.write(ctx, j, st)
	j.log.Info().Str("state", string(st.State)).Str("url", obj.URL).Msg("job succeeded")
	return Result{Status: st, Artifact: art}
}

func (r *Runner) fail(ctx context.Context, j *job, msg string, err error) Result {
	st := r.status(j, entity.StateFailed, 100, msg)
	detail := err.Error()
	st.ErrorDetail = &detail
	r.write(ctx, j, st)
	j.log.Error().Err(err).Str("state", string(st.State)).Msg(msg)
	return Result{Status: st}
}

func (r *Runner) interrupted(ctx context.Context, j *job, err error) Result {
	return r.fail(ctx, j, "interrupted", err)
}

func (r *Runner) transition(ctx context.Context, j *job, state entity.JobState, progress int, msg string) {
	r.write(ctx, j, r.status(j, state, progress, msg))
	j.log.Debug().Str("state", string(state)).Int("progress", progress).Msg(msg)
}

func (r *Runner) status(j *job, state entity.JobState, progress int, msg string) entity.JobStatus {
	return entity.JobStatus{
		JobID:       j.req.ID,
		State:       state,
		Progress:    progress,
		Message:     msg,
		ExecutionID: j.executionID,
		UpdatedAt:   r.now().UTC(),
	}
}

// write survives cancellation of ctx so a shutdown still records the
// terminal state.
func (r *Runner) write(ctx context.Context, j *job, st entity.JobStatus) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.deps.Status.Set(wctx, st, r.cfg.StatusTTL); err != nil {
		j.log.Error().Err(err).Str("state", string(st.State)).Msg("status write failed")
	}
}

func pollProgress(attempt, total int) int {
	p := 10 + 85*attempt/total
	if p > 95 {
		p = 95
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

func shortID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}

func uploadName(req entity.JobRequest) string {
	ext := strings.ToLower(path.Ext(req.ReferenceImageName))
	if ext == "" {
		ext = ".png"
	}
	return uuid.NewString() + ext
}
