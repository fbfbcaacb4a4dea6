package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cityscout-ai/event-discovery-platform/internal/middleware"
	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/internal/session"
	"github.com/cityscout-ai/event-discovery-platform/internal/stream"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
)

// MessageHandler handles the blocking (non-streaming) message endpoint.
type MessageHandler struct {
	manager *stream.Manager
	logger  *logger.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(manager *stream.Manager, log *logger.Logger) *MessageHandler {
	return &MessageHandler{manager: manager, logger: log}
}

// Send handles POST /api/v1/sessions/{sessionID}/messages. It blocks until
// the full turn completes and returns the reply in one response.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.manager.SendTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, session.ErrBusy):
			writeError(w, http.StatusConflict, "a message is already being processed for this session")
		default:
			h.logger.Error("turn failed", zap.String("session_id", sessionID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
