package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/tenant-assistant/internal/autopilot"
	"github.com/propsignal/tenant-assistant/internal/directory"
	"github.com/propsignal/tenant-assistant/internal/draft"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/internal/router"
	"github.com/propsignal/tenant-assistant/internal/scheduler"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/internal/transport"
	"github.com/propsignal/tenant-assistant/internal/triage"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

func newWebhookHandler(t *testing.T) *WebhookHandler {
	t.Helper()
	log := logger.NewNop()
	st := store.NewMemoryStore()

	svc := router.New(
		router.Config{Scheduler: scheduler.Config{IntakeDelay: 5 * time.Minute, ReplyCooldown: time.Hour}},
		directory.New(nil), st,
		triage.NewClassifier(nil, log),
		draft.NewGenerator(nil, log),
		transport.NewRecorder(),
		scheduler.NewMemoryPendingStore(),
		store.NewMemoryCooldownStore(),
		autopilot.NewEngine(st, nil, log),
		nil, log,
	)
	return NewWebhookHandler(svc, log)
}

func postInbound(t *testing.T, h *WebhookHandler, body string) (*httptest.ResponseRecorder, model.WebhookAck) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/inbound", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Inbound(w, req)

	var ack model.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	return w, ack
}

func TestInboundMalformedPayload(t *testing.T) {
	h := newWebhookHandler(t)

	w, ack := postInbound(t, h, "{not json")

	assert.Equal(t, http.StatusOK, w.Code, "webhook intake never hard-fails")
	assert.True(t, ack.OK)
	assert.Equal(t, "malformed_payload", ack.Ignored)
}

func TestInboundOversizedMessage(t *testing.T) {
	h := newWebhookHandler(t)

	payload, err := json.Marshal(model.InboundMessage{
		From: "+19998887777",
		Body: strings.Repeat("x", 10001),
	})
	require.NoError(t, err)

	w, ack := postInbound(t, h, string(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.OK)
	assert.Equal(t, "oversized_message", ack.Ignored)
}

func TestInboundUnknownSender(t *testing.T) {
	h := newWebhookHandler(t)

	w, ack := postInbound(t, h, `{"from":"+19998887777","body":"hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.OK)
	assert.Equal(t, "unknown_sender", ack.Ignored)
}

func TestStatusBeforeAnyWebhook(t *testing.T) {
	h := newWebhookHandler(t)

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/webhook/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no webhook received yet")
}

func TestStatusReturnsLastAck(t *testing.T) {
	h := newWebhookHandler(t)

	postInbound(t, h, `{"from":"+19998887777","body":"hello"}`)
	postInbound(t, h, "{not json")

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/webhook/status", nil))

	var ack model.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "malformed_payload", ack.Ignored, "most recent acknowledgement wins")
}
