package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cityscout-ai/event-discovery-platform/internal/middleware"
	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/internal/stream"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
	"github.com/cityscout-ai/event-discovery-platform/pkg/metrics"
)

// StreamHandler handles the SSE streaming message endpoint.
type StreamHandler struct {
	manager *stream.Manager
	logger  *logger.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(manager *stream.Manager, log *logger.Logger) *StreamHandler {
	return &StreamHandler{manager: manager, logger: log}
}

// Stream handles POST /api/v1/sessions/{sessionID}/messages/stream. Events
// are written as SSE data frames; the stream always ends with a [DONE]
// sentinel after the terminal done event.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.IncrementStreamConnections()
	defer metrics.DecrementStreamConnections()

	events := h.manager.StreamTurn(r.Context(), sessionID, req.Message)
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("failed to marshal stream event", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client went away; the manager sees the context cancel.
			return
		}
		flusher.Flush()
	}

	fmt.Fprintf(w, "data: %s\n\n", model.StreamDoneSentinel)
	flusher.Flush()
}
