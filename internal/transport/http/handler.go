package httptransport

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docent-service/internal/entity"
	"docent-service/internal/logger"
	"docent-service/internal/prompt"
	"docent-service/internal/service"
)

type Handler struct {
	jobs    *service.JobService
	chat    *service.ChatService
	gallery *service.GalleryService

	// strictNotFound reports unknown job ids as 404 instead of PENDING.
	strictNotFound bool
}

func NewHandler(jobs *service.JobService, chat *service.ChatService, gallery *service.GalleryService, strictNotFound bool) *Handler {
	return &Handler{jobs: jobs, chat: chat, gallery: gallery, strictNotFound: strictNotFound}
}

type generateResp struct {
	JobID          string          `json:"job_id"`
	ConversationID string          `json:"conversation_id"`
	Status         entity.JobState `json:"status"`
	Message        string          `json:"message"`
}

const multipartOverhead = 1 << 20

// GenerateImage godoc
// @Summary Submit an image generation job
// @Description Accepts the request, records the user message and queues the job. Poll the status endpoint for the result.
// @Tags generation
// @Accept multipart/form-data
// @Produce json
// @Param prompt formData string true "user text"
// @Param negative_prompt formData string false "text to avoid"
// @Param mode formData string false "text_to_image (default) or image_to_image"
// @Param positive_categories formData []string false "style tags (repeated or comma-separated)"
// @Param negative_categories formData []string false "negative tags (repeated or comma-separated)"
// @Param width formData int false "image width (default 1024)"
// @Param height formData int false "image height (default 1024)"
// @Param seed formData int false "sampler seed (random when 0)"
// @Param session_id formData string false "conversation to append to"
// @Param input_image formData file false "reference image for image_to_image"
// @Success 202 {object} generateResp
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /api/generate-image [post]
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(service.MaxImageBytes + multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeErr(w, http.StatusBadRequest, "invalid form")
		return
	}

	in := service.SubmitRequest{
		Mode:           r.FormValue("mode"),
		Prompt:         r.FormValue("prompt"),
		NegativePrompt: r.FormValue("negative_prompt"),
		PositiveTags:   prompt.SplitTags(formValues(r, "positive_categories")),
		NegativeTags:   prompt.SplitTags(formValues(r, "negative_categories")),
	}

	var err error
	if in.SessionID, err = optionalUUID(r.FormValue("session_id")); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	if in.Width, err = optionalInt(r.FormValue("width")); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid width")
		return
	}
	if in.Height, err = optionalInt(r.FormValue("height")); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid height")
		return
	}
	if v := r.FormValue("seed"); v != "" {
		if in.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid seed")
			return
		}
	}

	if f, hdr, ferr := r.FormFile("input_image"); ferr == nil {
		defer f.Close()
		in.Image, err = io.ReadAll(io.LimitReader(f, service.MaxImageBytes+1))
		if err != nil {
			writeErr(w, http.StatusBadRequest, "unreadable input_image")
			return
		}
		in.ImageName = hdr.Filename
	} else if !errors.Is(ferr, http.ErrMissingFile) && !errors.Is(ferr, http.ErrNotMultipart) {
		writeErr(w, http.StatusBadRequest, "invalid input_image")
		return
	}

	res, err := h.jobs.Submit(r.Context(), in)
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrQueueFull):
		writeErr(w, http.StatusServiceUnavailable, "the server is busy; please try again shortly")
		return
	case err != nil:
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("submit job")
		writeErr(w, http.StatusInternalServerError, "could not accept the job")
		return
	}

	writeJSON(w, http.StatusAccepted, generateResp{
		JobID:          res.JobID.String(),
		ConversationID: res.ConversationID.String(),
		Status:         res.Status.State,
		Message:        res.Status.Message,
	})
}

// TaskStatus godoc
// @Summary Get job status
// @Description Unknown or malformed ids report PENDING unless strict not-found mode is enabled.
// @Tags generation
// @Produce json
// @Param job_id path string true "job id (uuid)"
// @Success 200 {object} entity.JobStatus
// @Failure 404 {object} apiError
// @Router /api/tasks/{job_id}/status [get]
func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "job_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeUnknownJob(w, raw)
		return
	}

	st, found, err := h.jobs.Status(r.Context(), id)
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("job_id", id.String()).Msg("read status")
		writeErr(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	if !found {
		h.writeUnknownJob(w, id.String())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// unknownJob has the JobStatus shape with the id echoed as given, which may
// not be a uuid.
type unknownJob struct {
	JobID     string          `json:"job_id"`
	State     entity.JobState `json:"state"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *Handler) writeUnknownJob(w http.ResponseWriter, rawID string) {
	if h.strictNotFound {
		writeJSON(w, http.StatusNotFound, apiError{Code: "NOT_FOUND", Message: "job not found"})
		return
	}
	st := entity.PendingStatus(uuid.Nil, "waiting for the job to start")
	writeJSON(w, http.StatusOK, unknownJob{
		JobID:     rawID,
		State:     st.State,
		Progress:  st.Progress,
		Message:   st.Message,
		UpdatedAt: st.UpdatedAt,
	})
}

func formValues(r *http.Request, key string) []string {
	if r.MultipartForm != nil {
		return r.MultipartForm.Value[key]
	}
	return r.Form[key]
}

func optionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
