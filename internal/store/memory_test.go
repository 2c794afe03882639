package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/tenant-assistant/internal/model"
)

func newConv(id, tenantID string, open bool) *model.Conversation {
	now := time.Now()
	return &model.Conversation{
		ID:        id,
		TenantID:  tenantID,
		Open:      open,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestGetUnknownConversation(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendChatIsAppendOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newConv("c1", "t1", true)))

	before, err := s.Get(ctx, "c1")
	require.NoError(t, err)

	_, err = s.AppendChat(ctx, "c1", model.ChatEntry{Role: model.RoleTenant, Content: "first"})
	require.NoError(t, err)
	_, err = s.AppendChat(ctx, "c1", model.ChatEntry{Role: model.RoleAI, Content: "second"})
	require.NoError(t, err)

	// Snapshots taken before an append must not see it.
	assert.Empty(t, before.ChatLog)

	after, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, after.ChatLog, 2)
	assert.Equal(t, "first", after.ChatLog[0].Content)
	assert.Equal(t, "second", after.ChatLog[1].Content)
}

func TestAppendDecisionUpdatesStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newConv("c1", "t1", true)))

	_, err := s.AppendDecision(ctx, "c1", model.DecisionEntry{Type: model.DecisionSystem, Status: "evaluating"})
	require.NoError(t, err)
	_, err = s.AppendDecision(ctx, "c1", model.DecisionEntry{Type: model.DecisionSkip, Status: "blocked_severity"})
	require.NoError(t, err)

	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, conv.Autopilot.DecisionLog, 2)
	assert.Equal(t, "blocked_severity", conv.Autopilot.Status)
}

func TestLatestOpenByTenant(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	older := newConv("c1", "t1", true)
	older.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newConv("c2", "t1", true)))
	require.NoError(t, s.Create(ctx, newConv("c3", "t2", true)))

	closed := newConv("c4", "t1", false)
	closed.UpdatedAt = time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, closed))

	conv, err := s.LatestOpenByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "c2", conv.ID)

	_, err = s.LatestOpenByTenant(ctx, "t9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestOpen(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.LatestOpen(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	older := newConv("c1", "t1", true)
	older.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newConv("c2", "t2", true)))

	conv, err := s.LatestOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c2", conv.ID)
}

func TestListPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"c1", "c2", "c3"} {
		conv := newConv(id, "t1", true)
		conv.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, conv))
	}

	page, total, err := s.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c3", page[0].ID, "newest first")
	assert.Equal(t, "c2", page[1].ID)

	page, _, err = s.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c1", page[0].ID)

	page, _, err = s.List(ctx, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSetters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newConv("c1", "t1", true)))

	cls := model.Classification{Severity: model.SeverityHigh, Category: "hvac", UrgencyHours: 4}
	require.NoError(t, s.SetClassification(ctx, "c1", cls))
	require.NoError(t, s.SetDraft(ctx, "c1", model.Draft{Text: "draft", Provenance: "mock"}))
	require.NoError(t, s.SetReply(ctx, "c1", "draft"))
	require.NoError(t, s.SetAutopilotEnabled(ctx, "c1", true))
	require.NoError(t, s.SetAutopilotStatus(ctx, "c1", "idle"))

	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cls, conv.Classification)
	assert.Equal(t, "draft", conv.Draft.Text)
	assert.Equal(t, "draft", conv.Reply)
	assert.True(t, conv.Autopilot.Enabled)
	assert.Equal(t, "idle", conv.Autopilot.Status)

	assert.ErrorIs(t, s.SetReply(ctx, "missing", "x"), ErrNotFound)
}

func TestMemoryCooldownStore(t *testing.T) {
	s := NewMemoryCooldownStore()
	ctx := context.Background()

	last, err := s.LastReply(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	at := time.Now().Truncate(time.Second)
	require.NoError(t, s.RecordReply(ctx, "t1", at))

	last, err = s.LastReply(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, at, last)
}
