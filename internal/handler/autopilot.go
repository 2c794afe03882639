package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propsignal/tenant-assistant/internal/autopilot"
	"github.com/propsignal/tenant-assistant/internal/middleware"
	"github.com/propsignal/tenant-assistant/internal/router"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

// AutopilotHandler handles autopilot configuration and manual runs.
type AutopilotHandler struct {
	engine *autopilot.Engine
	router *router.Service
	store  store.ConversationStore
	logger *logger.Logger
}

// NewAutopilotHandler creates a new autopilot handler.
func NewAutopilotHandler(engine *autopilot.Engine, svc *router.Service, st store.ConversationStore, log *logger.Logger) *AutopilotHandler {
	return &AutopilotHandler{engine: engine, router: svc, store: st, logger: log}
}

type setAutopilotRequest struct {
	Enabled bool `json:"enabled"`
}

// Set handles POST /api/v1/conversations/:id/autopilot
func (h *AutopilotHandler) Set(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req setAutopilotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.SetEnabled(r.Context(), conversationID, req.Enabled); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	conv, err := h.store.Get(r.Context(), conversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv.Autopilot)
}

// Run handles POST /api/v1/conversations/:id/autopilot/run — a manual
// gating evaluation. It is not a bypass: the identical gates apply.
func (h *AutopilotHandler) Run(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Get(r.Context(), conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	res := h.router.RunAutopilot(r.Context(), conversationID)

	writeJSON(w, http.StatusOK, map[string]any{
		"replied": res.Replied,
		"status":  res.Status,
	})
}
