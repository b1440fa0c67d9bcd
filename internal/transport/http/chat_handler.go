package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docent-service/internal/entity"
	"docent-service/internal/logger"
	"docent-service/internal/repository/postgresql"
	"docent-service/internal/service"
)

type chatDTO struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type chatResp struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Chat godoc
// @Summary Ask the docent
// @Tags chat
// @Accept json
// @Produce json
// @Param request body chatDTO true "visitor message; image_base64 may be a data URL"
// @Success 200 {object} chatResp
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /api/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var dto chatDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, service.MaxImageBytes*2)).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	sessionID, err := optionalUUID(dto.SessionID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid session_id")
		return
	}

	res, err := h.chat.Chat(r.Context(), service.ChatRequest{
		Message:     dto.Message,
		SessionID:   sessionID,
		ImageBase64: dto.ImageBase64,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("chat")
		writeErr(w, http.StatusInternalServerError, "chat failed")
		return
	}
	writeJSON(w, http.StatusOK, chatResp{Response: res.Response, SessionID: res.SessionID.String()})
}

// Conversations godoc
// @Summary List conversations
// @Tags chat
// @Produce json
// @Param limit query int false "max rows (default 50)"
// @Success 200 {array} entity.Conversation
// @Router /api/conversations [get]
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.chat.Conversations(r.Context(), queryInt(r, "limit", 50, 200))
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("list conversations")
		writeErr(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	if list == nil {
		list = []entity.Conversation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Messages godoc
// @Summary Messages of a conversation
// @Tags chat
// @Produce json
// @Param session_id path string true "session id (uuid)"
// @Success 200 {array} entity.Message
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/conversations/{session_id}/messages [get]
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	msgs, err := h.chat.Messages(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, postgresql.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "conversation not found")
			return
		}
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("list messages")
		writeErr(w, http.StatusInternalServerError, "could not list messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
