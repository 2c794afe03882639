// Package audit mirrors chat and decision log entries to a durable NATS
// JetStream stream. The mirror is best-effort: it is optional at startup
// and publish failures are logged, never propagated.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/model"
	natsclient "github.com/propsignal/tenant-assistant/internal/nats"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "TENANT_MESSAGING"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "tenantmsg"
)

// Publisher writes audit records to JetStream. A nil *Publisher is a
// valid no-op, so call sites never branch on whether NATS is configured.
type Publisher struct {
	client *natsclient.Client
	logger *logger.Logger
}

// NewPublisher creates a publisher over an established NATS client.
func NewPublisher(client *natsclient.Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// EnsureStream ensures the audit stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Append-only mirror of chat and autopilot decision logs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// ChatSubject returns the subject for a chat entry.
func ChatSubject(tenantID, conversationID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, orUnknown(tenantID), conversationID, role)
}

// DecisionSubject returns the subject for a decision entry.
func DecisionSubject(tenantID, conversationID string, t model.DecisionType) string {
	return fmt.Sprintf("%s.%s.%s.decision.%s", SubjectPrefix, orUnknown(tenantID), conversationID, t)
}

func orUnknown(id string) string {
	if id == "" {
		return "unassigned"
	}
	return id
}

// ChatAppended mirrors a chat entry.
func (p *Publisher) ChatAppended(ctx context.Context, tenantID, conversationID string, entry model.ChatEntry) {
	if p == nil {
		return
	}
	p.publish(ctx, ChatSubject(tenantID, conversationID, entry.Role), entry)
}

// DecisionAppended mirrors a decision entry.
func (p *Publisher) DecisionAppended(ctx context.Context, tenantID, conversationID string, entry model.DecisionEntry) {
	if p == nil {
		return
	}
	p.publish(ctx, DecisionSubject(tenantID, conversationID, entry.Type), entry)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("audit marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.logger.Warn("audit publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
