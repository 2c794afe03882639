// Package autopilot gates whether a conversation's current draft may be
// auto-sent, recording every decision for audit.
package autopilot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/audit"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/metrics"
)

// Reason identifies what triggered a gating evaluation. Manual runs pass
// the identical gates; only the logged reason differs.
type Reason string

const (
	ReasonTenantMessage Reason = "tenant_message"
	ReasonManualRun     Reason = "manual_run"
	ReasonBatchFlush    Reason = "batch_flush"
)

// Status tokens written by the engine.
const (
	StatusIdle            = "idle"
	StatusEvaluating      = "evaluating"
	StatusBlockedSeverity = "blocked_severity"
	StatusAwaitingDraft   = "awaiting_draft"
	StatusAutoReplied     = "auto_replied"
	StatusDisabled        = "disabled"
)

// Result reports the outcome of one gating evaluation.
type Result struct {
	// Replied is true when every gate passed and the draft was appended
	// as an ai chat entry.
	Replied bool

	// Text is the reply text when Replied is true.
	Text string

	// Status is the status token the evaluation settled on. Empty when
	// autopilot was not enabled (the engine did not run).
	Status string
}

// Engine evaluates the autopilot gates for a conversation.
type Engine struct {
	store  store.ConversationStore
	audit  *audit.Publisher
	logger *logger.Logger
}

// NewEngine creates a decision engine.
func NewEngine(st store.ConversationStore, pub *audit.Publisher, log *logger.Logger) *Engine {
	return &Engine{store: st, audit: pub, logger: log}
}

// Run evaluates the gates for the conversation, short-circuiting at the
// first failing check. Each check produces a distinct decision log entry;
// a disabled autopilot produces none at all.
func (e *Engine) Run(ctx context.Context, conversationID string, reason Reason) Result {
	conv, err := e.store.Get(ctx, conversationID)
	if err != nil {
		e.logger.Warn("autopilot: conversation lookup failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return Result{}
	}

	if !conv.Autopilot.Enabled {
		return Result{}
	}

	e.log(ctx, conv, model.DecisionEntry{
		Type:    model.DecisionSystem,
		Message: "evaluating",
		Status:  StatusEvaluating,
		Meta:    map[string]string{"reason": string(reason)},
	})

	if !conv.Classification.Severity.AutoSendable() {
		e.log(ctx, conv, model.DecisionEntry{
			Type:    model.DecisionSkip,
			Message: fmt.Sprintf("severity %s requires human attention", conv.Classification.Severity),
			Status:  StatusBlockedSeverity,
		})
		return Result{Status: StatusBlockedSeverity}
	}

	last := conv.LastEntry()
	if last == nil || last.Role != model.RoleTenant {
		e.log(ctx, conv, model.DecisionEntry{
			Type:    model.DecisionSkip,
			Message: "tenant is not awaiting a reply",
			Status:  StatusIdle,
		})
		return Result{Status: StatusIdle}
	}

	if conv.Draft.Text == "" {
		e.log(ctx, conv, model.DecisionEntry{
			Type:    model.DecisionSkip,
			Message: "no draft available",
			Status:  StatusAwaitingDraft,
		})
		return Result{Status: StatusAwaitingDraft}
	}

	entry := model.ChatEntry{
		Role:      model.RoleAI,
		Content:   conv.Draft.Text,
		Timestamp: time.Now(),
		Meta:      map[string]string{"reason": string(reason)},
	}
	if _, err := e.store.AppendChat(ctx, conv.ID, entry); err != nil {
		e.log(ctx, conv, model.DecisionEntry{
			Type:    model.DecisionError,
			Message: "failed to append auto-reply: " + err.Error(),
			Status:  StatusIdle,
		})
		return Result{Status: StatusIdle}
	}
	e.audit.ChatAppended(ctx, conv.TenantID, conv.ID, entry)

	if err := e.store.SetReply(ctx, conv.ID, conv.Draft.Text); err != nil {
		e.logger.Warn("autopilot: failed to set reply field",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	e.log(ctx, conv, model.DecisionEntry{
		Type:    model.DecisionAutoReply,
		Message: "auto-replied to tenant",
		Status:  StatusAutoReplied,
		Meta: map[string]string{
			"reason":       string(reason),
			"reply_length": strconv.Itoa(len(conv.Draft.Text)),
		},
	})

	return Result{Replied: true, Text: conv.Draft.Text, Status: StatusAutoReplied}
}

// SetEnabled flips the autopilot flag, always logging a config entry with
// the resulting status regardless of whether a run is triggered.
func (e *Engine) SetEnabled(ctx context.Context, conversationID string, enabled bool) error {
	conv, err := e.store.Get(ctx, conversationID)
	if err != nil {
		return err
	}

	if err := e.store.SetAutopilotEnabled(ctx, conversationID, enabled); err != nil {
		return err
	}

	status := StatusDisabled
	message := "autopilot disabled"
	if enabled {
		status = StatusIdle
		message = "autopilot enabled"
	}

	e.log(ctx, conv, model.DecisionEntry{
		Type:    model.DecisionConfig,
		Message: message,
		Status:  status,
	})
	return nil
}

// log appends a decision entry, mirrors it to the audit stream, and counts
// it. Append failures are logged and swallowed; gating must never abort
// message intake.
func (e *Engine) log(ctx context.Context, conv *model.Conversation, entry model.DecisionEntry) {
	entry.Timestamp = time.Now()

	if _, err := e.store.AppendDecision(ctx, conv.ID, entry); err != nil {
		e.logger.Warn("autopilot: failed to append decision",
			zap.String("conversation_id", conv.ID),
			zap.String("type", string(entry.Type)),
			zap.Error(err))
	}
	e.audit.DecisionAppended(ctx, conv.TenantID, conv.ID, entry)
	metrics.RecordAutopilotDecision(string(entry.Type), entry.Status)
}
