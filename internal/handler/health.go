package handler

import (
	"net/http"
	"time"

	"github.com/cityscout-ai/event-discovery-platform/internal/session"
)

// HealthHandler reports service liveness and readiness.
type HealthHandler struct {
	store     session.Store
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(store session.Store, version string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		version:   version,
		startedAt: time.Now(),
	}
}

// Health is a liveness probe. It never touches dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

// Ready is a readiness probe: healthy only when the session backend answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"checks": map[string]string{"session_store": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"checks": map[string]string{"session_store": "ok"},
	})
}
