package autopilot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/tenant-assistant/internal/autopilot"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

func newEngine(t *testing.T) (*autopilot.Engine, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return autopilot.NewEngine(st, nil, logger.NewNop()), st
}

func seedConversation(t *testing.T, st *store.MemoryStore, conv *model.Conversation) {
	t.Helper()
	if conv.ID == "" {
		conv.ID = "conv-1"
	}
	conv.Open = true
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
		conv.UpdatedAt = conv.CreatedAt
	}
	require.NoError(t, st.Create(context.Background(), conv))
}

func tenantEntry(text string) model.ChatEntry {
	return model.ChatEntry{Role: model.RoleTenant, Content: text, Timestamp: time.Now()}
}

func TestRunDisabledProducesNoLog(t *testing.T) {
	engine, st := newEngine(t)
	seedConversation(t, st, &model.Conversation{
		TenantID:  "t1",
		ChatLog:   []model.ChatEntry{tenantEntry("hello")},
		Draft:     model.Draft{Text: "draft"},
		Autopilot: model.Autopilot{Enabled: false},
	})

	res := engine.Run(context.Background(), "conv-1", autopilot.ReasonTenantMessage)

	assert.False(t, res.Replied)
	assert.Empty(t, res.Status)

	conv, err := st.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, conv.Autopilot.DecisionLog, "disabled autopilot must not log")
	assert.Len(t, conv.ChatLog, 1)
}

func TestRunBlockedBySeverity(t *testing.T) {
	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityCritical} {
		engine, st := newEngine(t)
		seedConversation(t, st, &model.Conversation{
			TenantID:       "t1",
			ChatLog:        []model.ChatEntry{tenantEntry("no heat")},
			Classification: model.Classification{Severity: sev},
			Draft:          model.Draft{Text: "draft"},
			Autopilot:      model.Autopilot{Enabled: true},
		})

		res := engine.Run(context.Background(), "conv-1", autopilot.ReasonTenantMessage)

		assert.False(t, res.Replied)
		assert.Equal(t, autopilot.StatusBlockedSeverity, res.Status)

		conv, err := st.Get(context.Background(), "conv-1")
		require.NoError(t, err)
		require.Len(t, conv.Autopilot.DecisionLog, 2, "evaluating + skip")
		assert.Equal(t, model.DecisionSystem, conv.Autopilot.DecisionLog[0].Type)
		assert.Equal(t, model.DecisionSkip, conv.Autopilot.DecisionLog[1].Type)
		assert.Equal(t, autopilot.StatusBlockedSeverity, conv.Autopilot.Status)
		assert.Len(t, conv.ChatLog, 1, "no reply appended")
	}
}

func TestRunSkipsWhenTenantNotAwaiting(t *testing.T) {
	engine, st := newEngine(t)
	seedConversation(t, st, &model.Conversation{
		TenantID: "t1",
		ChatLog: []model.ChatEntry{
			tenantEntry("the sink drips"),
			{Role: model.RoleAI, Content: "We'll send someone.", Timestamp: time.Now()},
		},
		Classification: model.Classification{Severity: model.SeverityNormal},
		Draft:          model.Draft{Text: "another draft"},
		Autopilot:      model.Autopilot{Enabled: true},
	})

	res := engine.Run(context.Background(), "conv-1", autopilot.ReasonManualRun)

	assert.False(t, res.Replied)
	assert.Equal(t, autopilot.StatusIdle, res.Status)

	conv, err := st.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Len(t, conv.ChatLog, 2, "no second reply")
	last := conv.Autopilot.DecisionLog[len(conv.Autopilot.DecisionLog)-1]
	assert.Equal(t, model.DecisionSkip, last.Type)
	assert.Equal(t, autopilot.StatusIdle, conv.Autopilot.Status)
}

func TestRunSkipsWithoutDraft(t *testing.T) {
	engine, st := newEngine(t)
	seedConversation(t, st, &model.Conversation{
		TenantID:       "t1",
		ChatLog:        []model.ChatEntry{tenantEntry("question about parking")},
		Classification: model.Classification{Severity: model.SeverityLow},
		Autopilot:      model.Autopilot{Enabled: true},
	})

	res := engine.Run(context.Background(), "conv-1", autopilot.ReasonTenantMessage)

	assert.False(t, res.Replied)
	assert.Equal(t, autopilot.StatusAwaitingDraft, res.Status)

	conv, err := st.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Len(t, conv.ChatLog, 1)
	assert.Equal(t, autopilot.StatusAwaitingDraft, conv.Autopilot.Status)
}

func TestRunAutoReplies(t *testing.T) {
	engine, st := newEngine(t)
	seedConversation(t, st, &model.Conversation{
		TenantID:       "t1",
		ChatLog:        []model.ChatEntry{tenantEntry("when is trash day?")},
		Classification: model.Classification{Severity: model.SeverityLow},
		Draft:          model.Draft{Text: "Trash pickup is Tuesday morning.", Provenance: "auto"},
		Autopilot:      model.Autopilot{Enabled: true},
	})

	res := engine.Run(context.Background(), "conv-1", autopilot.ReasonTenantMessage)

	assert.True(t, res.Replied)
	assert.Equal(t, "Trash pickup is Tuesday morning.", res.Text)
	assert.Equal(t, autopilot.StatusAutoReplied, res.Status)

	conv, err := st.Get(context.Background(), "conv-1")
	require.NoError(t, err)

	require.Len(t, conv.ChatLog, 2)
	reply := conv.ChatLog[1]
	assert.Equal(t, model.RoleAI, reply.Role)
	assert.Equal(t, "Trash pickup is Tuesday morning.", reply.Content)
	assert.Equal(t, string(autopilot.ReasonTenantMessage), reply.Meta["reason"])

	assert.Equal(t, "Trash pickup is Tuesday morning.", conv.Reply)
	assert.Equal(t, autopilot.StatusAutoReplied, conv.Autopilot.Status)

	require.Len(t, conv.Autopilot.DecisionLog, 2)
	final := conv.Autopilot.DecisionLog[1]
	assert.Equal(t, model.DecisionAutoReply, final.Type)
	assert.Equal(t, "31", final.Meta["reply_length"])
	assert.Equal(t, string(autopilot.ReasonTenantMessage), final.Meta["reason"])
}

func TestRunDecisionLogIsAppendOnly(t *testing.T) {
	engine, st := newEngine(t)
	seedConversation(t, st, &model.Conversation{
		TenantID:       "t1",
		ChatLog:        []model.ChatEntry{tenantEntry("hi")},
		Classification: model.Classification{Severity: model.SeverityNormal},
		Autopilot:      model.Autopilot{Enabled: true},
	})

	prev := 0
	for i := 0; i < 3; i++ {
		engine.Run(context.Background(), "conv-1", autopilot.ReasonManualRun)

		conv, err := st.Get(context.Background(), "conv-1")
		require.NoError(t, err)
		assert.Greater(t, len(conv.Autopilot.DecisionLog), prev)
		prev = len(conv.Autopilot.DecisionLog)
	}
}

func TestSetEnabledLogsConfigEntry(t *testing.T) {
	engine, st := newEngine(t)
	seedConversation(t, st, &model.Conversation{
		TenantID: "t1",
		ChatLog:  []model.ChatEntry{tenantEntry("hi")},
	})

	require.NoError(t, engine.SetEnabled(context.Background(), "conv-1", true))

	conv, err := st.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.True(t, conv.Autopilot.Enabled)
	assert.Equal(t, autopilot.StatusIdle, conv.Autopilot.Status)
	require.Len(t, conv.Autopilot.DecisionLog, 1)
	assert.Equal(t, model.DecisionConfig, conv.Autopilot.DecisionLog[0].Type)

	require.NoError(t, engine.SetEnabled(context.Background(), "conv-1", false))

	conv, err = st.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.False(t, conv.Autopilot.Enabled)
	assert.Equal(t, autopilot.StatusDisabled, conv.Autopilot.Status)
	require.Len(t, conv.Autopilot.DecisionLog, 2)
	assert.Equal(t, model.DecisionConfig, conv.Autopilot.DecisionLog[1].Type)
}

func TestSetEnabledUnknownConversation(t *testing.T) {
	engine, _ := newEngine(t)
	assert.ErrorIs(t, engine.SetEnabled(context.Background(), "missing", true), store.ErrNotFound)
}
