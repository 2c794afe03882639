package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/propsignal/tenant-assistant/internal/middleware"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/internal/router"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

// WebhookHandler receives inbound provider payloads and hands them to the
// router. It retains the most recent acknowledgement for inspection.
type WebhookHandler struct {
	router *router.Service
	logger *logger.Logger

	mu      sync.RWMutex
	lastAck *model.WebhookAck
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc *router.Service, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{router: svc, logger: log}
}

// Inbound handles POST /webhook/inbound. The response is always 200 with
// an acknowledgement echoing the routing decision: message intake never
// hard-fails.
func (h *WebhookHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	var msg model.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		ack := &model.WebhookAck{OK: true, Ignored: "malformed_payload"}
		h.remember(ack)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	if err := middleware.ValidateMessageContent(msg.Body); err != nil {
		ack := &model.WebhookAck{OK: true, Ignored: "oversized_message"}
		h.remember(ack)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	ack := h.router.HandleInbound(r.Context(), &msg)
	h.remember(ack)
	writeJSON(w, http.StatusOK, ack)
}

// Status handles GET /webhook/status, returning the last acknowledgement.
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ack := h.lastAck
	h.mu.RUnlock()

	if ack == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no webhook received yet"})
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (h *WebhookHandler) remember(ack *model.WebhookAck) {
	h.mu.Lock()
	h.lastAck = ack
	h.mu.Unlock()
}
