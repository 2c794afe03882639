// Package router classifies every inbound message by sender and
// dispatches it to the correct handling path. Nothing in this package is
// allowed to fail message intake: downstream errors degrade to warnings
// on the acknowledgement.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/audit"
	"github.com/propsignal/tenant-assistant/internal/autopilot"
	"github.com/propsignal/tenant-assistant/internal/directory"
	"github.com/propsignal/tenant-assistant/internal/draft"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/internal/scheduler"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/internal/transport"
	"github.com/propsignal/tenant-assistant/internal/triage"
	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/metrics"
)

// Config holds router-level settings.
type Config struct {
	// AutopilotDefault enables autopilot on newly created conversations
	// even when the tenant has no auto-reply preference set.
	AutopilotDefault bool

	// Scheduler holds the debounce and cooldown timing knobs.
	Scheduler scheduler.Config
}

// Service orchestrates the inbound pipeline: sender classification,
// debounce scheduling, triage, drafting, autopilot gating, delivery and
// landlord alerting.
type Service struct {
	cfg        Config
	dir        *directory.Directory
	store      store.ConversationStore
	classifier *triage.Classifier
	drafts     *draft.Generator
	messenger  transport.Messenger
	engine     *autopilot.Engine
	audit      *audit.Publisher
	sched      *scheduler.Scheduler
	logger     *logger.Logger
}

// New creates the router service and its scheduler. The scheduler's flush
// callback re-enters the service, so they are constructed together.
func New(
	cfg Config,
	dir *directory.Directory,
	st store.ConversationStore,
	classifier *triage.Classifier,
	drafts *draft.Generator,
	messenger transport.Messenger,
	pending scheduler.PendingReplyStore,
	cooldowns store.CooldownStore,
	engine *autopilot.Engine,
	pub *audit.Publisher,
	log *logger.Logger,
) *Service {
	s := &Service{
		cfg:        cfg,
		dir:        dir,
		store:      st,
		classifier: classifier,
		drafts:     drafts,
		messenger:  messenger,
		engine:     engine,
		audit:      pub,
		logger:     log,
	}
	s.sched = scheduler.New(cfg.Scheduler, pending, cooldowns, s.flushBucket, log)
	return s
}

// Scheduler exposes the debounce scheduler, mainly for inspection.
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// HandleInbound routes one inbound message and returns the acknowledgement
// echoing the decision taken. It never returns an error: malformed or
// unroutable input is acknowledged as ignored.
func (s *Service) HandleInbound(ctx context.Context, msg *model.InboundMessage) *model.WebhookAck {
	text := strings.TrimSpace(msg.Body)
	if text == "" {
		if msg.MediaType == "" {
			metrics.InboundMessagesTotal.WithLabelValues("none", "empty").Inc()
			return &model.WebhookAck{OK: true, Ignored: "empty_message"}
		}
		text = "[" + msg.MediaType + " attachment]"
	}

	role, identity := ClassifySender(msg, s.dir)

	var ack *model.WebhookAck
	switch role {
	case RoleSelfEcho:
		ack = &model.WebhookAck{OK: true, Ignored: "self_echo"}
	case RoleGroupNoParticipant:
		ack = &model.WebhookAck{OK: true, Ignored: "no_group_participant"}
	case RoleLandlord:
		ack = s.handleLandlord(ctx, identity, text)
	case RoleTenant:
		ack = s.handleTenant(ctx, s.dir.FindTenantByPhone(identity), text, msg.Group)
	case RoleContractor:
		ack = s.handleContractor(ctx, s.dir.FindContractorByPhone(identity), text)
	default:
		// Never reply to unregistered senders.
		ack = &model.WebhookAck{OK: true, Ignored: "unknown_sender"}
	}

	decision := ack.Route
	if ack.Ignored != "" {
		decision = "ignored:" + ack.Ignored
	}
	metrics.InboundMessagesTotal.WithLabelValues(string(role), decision).Inc()

	return ack
}

// RunAutopilot performs a landlord-triggered gating evaluation. It passes
// the identical gates as a tenant-message run; only the logged reason
// differs. A passing run delivers the draft to the tenant.
func (s *Service) RunAutopilot(ctx context.Context, conversationID string) autopilot.Result {
	res := s.engine.Run(ctx, conversationID, autopilot.ReasonManualRun)
	if !res.Replied {
		return res
	}

	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		s.logger.Warn("manual run: conversation vanished after reply", zap.Error(err))
		return res
	}
	if tenant := s.dir.FindTenantByID(conv.TenantID); tenant != nil {
		s.deliverReply(ctx, tenant, res.Text)
	}
	return res
}

// --- tenant path ---

func (s *Service) handleTenant(ctx context.Context, tenant *model.Tenant, text string, group bool) *model.WebhookAck {
	conv, err := s.store.LatestOpenByTenant(ctx, tenant.ID)
	if err != nil {
		conv = s.newConversation(ctx, tenant)
		if conv == nil {
			// Persistence is down and we could not even build an
			// in-memory thread; acknowledge intake anyway.
			return &model.WebhookAck{OK: true, Route: "tenant", Warning: "analysis_failed"}
		}
	}

	// The tenant message is recorded immediately regardless of delay.
	entry := model.ChatEntry{
		Role:      model.RoleTenant,
		Content:   text,
		Timestamp: time.Now(),
	}
	if group {
		entry.Meta = map[string]string{"group": "true"}
	}
	if _, err := s.store.AppendChat(ctx, conv.ID, entry); err != nil {
		s.logger.Warn("failed to persist tenant message, continuing",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	s.audit.ChatAppended(ctx, tenant.ID, conv.ID, entry)

	cls := s.classifier.Classify(ctx, text, tenantContext(tenant))
	if err := s.store.SetClassification(ctx, conv.ID, cls); err != nil {
		s.logger.Warn("failed to persist classification", zap.Error(err))
	}

	delay := s.sched.Delay(ctx, tenant.ID, text, cls.Severity)

	if delay > 0 {
		s.sched.Enqueue(ctx, tenant.ID, tenant.Phone, group, text, delay)
		return &model.WebhookAck{
			OK:             true,
			Route:          "tenant",
			ConversationID: conv.ID,
			ModelInvoked:   true,
			DelayMs:        delay.Milliseconds(),
		}
	}

	// Bypass: fold any already-buffered fragments into this cycle so the
	// urgent message does not leapfrog earlier ones.
	if bucket, ok := s.sched.Cancel(tenant.ID); ok {
		text = bucket.Combined() + scheduler.Separator + text
	}

	replied := s.processTenant(ctx, conv.ID, tenant, text, cls, autopilot.ReasonTenantMessage)

	return &model.WebhookAck{
		OK:             true,
		Route:          "tenant",
		ConversationID: conv.ID,
		ModelInvoked:   true,
		AutoReplied:    replied,
		DelayMs:        0,
	}
}

// processTenant runs the immediate path: draft, autopilot gate, delivery,
// landlord alert. Classification has already been stored.
func (s *Service) processTenant(ctx context.Context, conversationID string, tenant *model.Tenant, text string, cls model.Classification, reason autopilot.Reason) bool {
	d := s.drafts.Generate(ctx, text, cls, tenant.Name)
	if d.Text != "" {
		if err := s.store.SetDraft(ctx, conversationID, d); err != nil {
			s.logger.Warn("failed to persist draft", zap.Error(err))
		}
	}

	res := s.engine.Run(ctx, conversationID, reason)
	if res.Replied {
		s.deliverReply(ctx, tenant, res.Text)
	}

	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		s.logger.Warn("skipping landlord alert, conversation unavailable", zap.Error(err))
		return res.Replied
	}
	s.alertLandlords(ctx, conv, tenant, text)

	return res.Replied
}

// flushBucket is the scheduler's flush callback. The combined fragments go
// through the same cycle as a zero-delay message; the individual fragments
// were already appended to the chat log on arrival.
func (s *Service) flushBucket(ctx context.Context, b *scheduler.Bucket) {
	tenant := s.dir.FindTenantByID(b.Key)
	if tenant == nil {
		s.logger.Warn("flush for unknown tenant, dropping bucket", zap.String("key", b.Key))
		return
	}

	conv, err := s.store.LatestOpenByTenant(ctx, tenant.ID)
	if err != nil {
		s.logger.Warn("flush with no open conversation, dropping bucket",
			zap.String("tenant_id", tenant.ID), zap.Error(err))
		return
	}

	combined := b.Combined()
	cls := s.classifier.Classify(ctx, combined, tenantContext(tenant))
	if err := s.store.SetClassification(ctx, conv.ID, cls); err != nil {
		s.logger.Warn("failed to persist classification", zap.Error(err))
	}

	s.processTenant(ctx, conv.ID, tenant, combined, cls, autopilot.ReasonBatchFlush)
}

// deliverReply sends an auto-reply to the tenant and stamps the cooldown.
// Send failures are logged, never retried here.
func (s *Service) deliverReply(ctx context.Context, tenant *model.Tenant, text string) {
	if err := s.messenger.Send(ctx, tenant.Phone, text); err != nil {
		s.logger.Error("auto-reply delivery failed",
			zap.String("tenant_id", tenant.ID), zap.Error(err))
		return
	}
	s.sched.RecordReply(ctx, tenant.ID)
}

func (s *Service) newConversation(ctx context.Context, tenant *model.Tenant) *model.Conversation {
	now := time.Now()
	conv := &model.Conversation{
		ID:       uuid.Must(uuid.NewV7()).String(),
		TenantID: tenant.ID,
		Unit:     tenant.Unit,
		Open:     true,
		Autopilot: model.Autopilot{
			Enabled: tenant.AutoReply || s.cfg.AutopilotDefault,
			Status:  autopilot.StatusIdle,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, conv); err != nil {
		s.logger.Warn("failed to create conversation", zap.Error(err))
		return nil
	}
	metrics.ConversationsTotal.Inc()
	return conv
}

// alertLandlords broadcasts the alert to every configured landlord
// destination. Each send is independent; one failure does not block the
// others.
func (s *Service) alertLandlords(ctx context.Context, conv *model.Conversation, tenant *model.Tenant, content string) {
	draftText := conv.Draft.Text
	if draftText == "" {
		draftText = "(no draft yet)"
	}

	alert := fmt.Sprintf("New message from %s (%s)\nUnit: %s\nSeverity: %s\n\n%s\n\nDraft reply:\n%s",
		tenant.Name, tenant.Phone, orDash(conv.Unit), conv.Classification.Severity, content, draftText)

	for _, dest := range s.dir.Landlords() {
		if err := s.messenger.Send(ctx, dest, alert); err != nil {
			s.logger.Error("landlord alert failed",
				zap.String("destination", dest), zap.Error(err))
		}
	}
}

// --- landlord path ---

func (s *Service) handleLandlord(ctx context.Context, from, text string) *model.WebhookAck {
	conv, err := s.store.LatestOpen(ctx)
	if err != nil {
		// No thread to act on; tell the landlord instead of creating one.
		if sendErr := s.messenger.Send(ctx, from, "No active request right now."); sendErr != nil {
			s.logger.Error("landlord notice failed", zap.Error(sendErr))
		}
		return &model.WebhookAck{OK: true, Route: "landlord", Warning: "no_active_request"}
	}

	entry := model.ChatEntry{
		Role:      model.RoleLandlord,
		Content:   text,
		Timestamp: time.Now(),
	}
	if _, err := s.store.AppendChat(ctx, conv.ID, entry); err != nil {
		s.logger.Warn("failed to persist landlord message, continuing", zap.Error(err))
	}
	s.audit.ChatAppended(ctx, conv.TenantID, conv.ID, entry)

	ack := &model.WebhookAck{OK: true, Route: "landlord", ConversationID: conv.ID}

	// Everything past the chat append is best-effort analysis.
	if err := s.analyzeLandlordMessage(ctx, conv, from, text, ack); err != nil {
		s.logger.Error("landlord analysis failed", zap.Error(err))
		ack.Warning = "analysis_failed"
	}
	return ack
}

func (s *Service) analyzeLandlordMessage(ctx context.Context, conv *model.Conversation, from, text string, ack *model.WebhookAck) error {
	tenant := s.dir.FindTenantByID(conv.TenantID)
	tenantName := "the tenant"
	if tenant != nil {
		tenantName = tenant.Name
	}

	wantsDraft := isDraftRequest(text)
	approves := isApproval(text)

	if wantsDraft {
		source := lastTenantText(conv)
		if source == "" {
			source = text
		}
		d := s.drafts.Generate(ctx, source, conv.Classification, tenantName)
		ack.ModelInvoked = true

		if d.Text != "" {
			d.Provenance = "landlord_requested"
			if err := s.store.SetDraft(ctx, conv.ID, d); err != nil {
				return fmt.Errorf("store draft: %w", err)
			}
			conv.Draft = d
		}

		analysis := fmt.Sprintf("Assistant analysis\nSeverity: %s (%s)\n\nSuggested reply to %s:\n%s",
			conv.Classification.Severity, orDash(conv.Classification.Category), tenantName, orNoDraft(d.Text))

		// Assistant output goes back to the landlord only, never to the
		// tenant.
		assistantEntry := model.ChatEntry{
			Role:      model.RoleAI,
			Content:   analysis,
			Timestamp: time.Now(),
			Meta:      map[string]string{"audience": "landlord"},
		}
		if _, err := s.store.AppendChat(ctx, conv.ID, assistantEntry); err != nil {
			return fmt.Errorf("append analysis: %w", err)
		}
		s.audit.ChatAppended(ctx, conv.TenantID, conv.ID, assistantEntry)

		if err := s.messenger.Send(ctx, from, analysis); err != nil {
			return fmt.Errorf("send analysis: %w", err)
		}
	}

	if approves && conv.Draft.Text != "" {
		if tenant == nil {
			return fmt.Errorf("approval with no tenant on conversation %s", conv.ID)
		}

		// Forward the candidate draft's literal text.
		if err := s.messenger.Send(ctx, tenant.Phone, conv.Draft.Text); err != nil {
			return fmt.Errorf("forward approved draft: %w", err)
		}

		forwarded := model.ChatEntry{
			Role:      model.RoleAI,
			Content:   conv.Draft.Text,
			Timestamp: time.Now(),
			Meta:      map[string]string{"forwarded": "landlord_approved"},
		}
		if _, err := s.store.AppendChat(ctx, conv.ID, forwarded); err != nil {
			return fmt.Errorf("append forwarded draft: %w", err)
		}
		s.audit.ChatAppended(ctx, conv.TenantID, conv.ID, forwarded)

		if err := s.store.SetReply(ctx, conv.ID, conv.Draft.Text); err != nil {
			s.logger.Warn("failed to set reply field", zap.Error(err))
		}
		ack.AutoReplied = true
	}

	if !wantsDraft && !approves {
		// Advisory question: answer with the thread's current state.
		summary := fmt.Sprintf("Current request from %s\nSeverity: %s (%s)\nLast tenant message: %s\nDraft ready: %t",
			tenantName, conv.Classification.Severity, orDash(conv.Classification.Category),
			orDash(lastTenantText(conv)), conv.Draft.Text != "")
		if err := s.messenger.Send(ctx, from, summary); err != nil {
			return fmt.Errorf("send summary: %w", err)
		}
	}

	return nil
}

// --- contractor path ---

// handleContractor relays the message verbatim to every landlord
// destination with contractor attribution. No reply goes back to the
// contractor.
func (s *Service) handleContractor(ctx context.Context, contractor *model.Contractor, text string) *model.WebhookAck {
	label := contractor.Name
	if contractor.Trade != "" {
		label += " (" + contractor.Trade + ")"
	}
	relay := fmt.Sprintf("Contractor %s:\n%s", label, text)

	for _, dest := range s.dir.Landlords() {
		if err := s.messenger.Send(ctx, dest, relay); err != nil {
			s.logger.Error("contractor relay failed",
				zap.String("destination", dest), zap.Error(err))
		}
	}

	return &model.WebhookAck{OK: true, Route: "contractor"}
}

// --- helpers ---

func lastTenantText(conv *model.Conversation) string {
	for i := len(conv.ChatLog) - 1; i >= 0; i-- {
		if conv.ChatLog[i].Role == model.RoleTenant {
			return conv.ChatLog[i].Content
		}
	}
	return ""
}

func tenantContext(tenant *model.Tenant) string {
	if tenant.Unit == "" {
		return tenant.Name
	}
	return tenant.Name + ", unit " + tenant.Unit
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orNoDraft(s string) string {
	if s == "" {
		return "(no draft available)"
	}
	return s
}
