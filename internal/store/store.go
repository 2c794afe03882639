// Package store provides conversation persistence behind a repository
// interface. The memory implementation is the single-instance default;
// call sites treat every operation as optional and continue with
// in-memory values when the store fails.
package store

import (
	"context"
	"errors"

	"github.com/propsignal/tenant-assistant/internal/model"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore persists conversations. Chat and decision logs are
// append-only: implementations must never mutate or remove prior entries.
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	Get(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context, limit, offset int) ([]model.Conversation, int, error)

	// LatestOpenByTenant returns the tenant's most recently updated open
	// conversation, or ErrNotFound.
	LatestOpenByTenant(ctx context.Context, tenantID string) (*model.Conversation, error)

	// LatestOpen returns the most recently updated open conversation
	// regardless of tenant, or ErrNotFound.
	LatestOpen(ctx context.Context) (*model.Conversation, error)

	AppendChat(ctx context.Context, id string, entry model.ChatEntry) (*model.Conversation, error)
	AppendDecision(ctx context.Context, id string, entry model.DecisionEntry) (*model.Conversation, error)

	SetClassification(ctx context.Context, id string, cls model.Classification) error
	SetDraft(ctx context.Context, id string, d model.Draft) error
	SetReply(ctx context.Context, id string, reply string) error
	SetAutopilotEnabled(ctx context.Context, id string, enabled bool) error
	SetAutopilotStatus(ctx context.Context, id string, status string) error
}
