package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docent-service/internal/entity"
	"docent-service/internal/logger"
	"docent-service/internal/repository/postgresql"
)

type likeResp struct {
	ID    int64 `json:"id"`
	Likes int   `json:"likes"`
}

type publishDTO struct {
	Public *bool `json:"is_public,omitempty"`
}

// Gallery godoc
// @Summary Public generated images, newest first
// @Tags gallery
// @Produce json
// @Param limit query int false "page size (default 20)"
// @Param offset query int false "offset"
// @Success 200 {array} entity.GeneratedArtifact
// @Router /api/gallery [get]
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.gallery.List(r.Context(), queryInt(r, "limit", 20, 100), queryInt(r, "offset", 0, 0))
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("list gallery")
		writeErr(w, http.StatusInternalServerError, "could not list gallery")
		return
	}
	if items == nil {
		items = []entity.GeneratedArtifact{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GalleryItem godoc
// @Summary Get a generated image (counts a view)
// @Tags gallery
// @Produce json
// @Param id path int true "artifact id"
// @Success 200 {object} entity.GeneratedArtifact
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/gallery/{id} [get]
func (h *Handler) GalleryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}
	a, err := h.gallery.Get(r.Context(), id)
	if err != nil {
		h.galleryErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Like godoc
// @Summary Like a generated image
// @Tags gallery
// @Produce json
// @Param id path int true "artifact id"
// @Success 200 {object} likeResp
// @Failure 404 {object} apiError
// @Router /api/gallery/{id}/like [post]
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}
	likes, err := h.gallery.Like(r.Context(), id)
	if err != nil {
		h.galleryErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likeResp{ID: id, Likes: likes})
}

// Publish godoc
// @Summary Show or hide a generated image in the gallery
// @Tags gallery
// @Accept json
// @Param id path int true "artifact id"
// @Param request body publishDTO false "defaults to is_public=true"
// @Success 204
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/gallery/{id}/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}
	var dto publishDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	public := dto.Public == nil || *dto.Public
	if err := h.gallery.Publish(r.Context(), id, public); err != nil {
		h.galleryErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func artifactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) galleryErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, postgresql.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "image not found")
		return
	}
	reqLog := logger.FromContext(r.Context())
	reqLog.Error().Err(err).Msg("gallery")
	writeErr(w, http.StatusInternalServerError, "gallery unavailable")
}
