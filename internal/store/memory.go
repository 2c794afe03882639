package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/propsignal/tenant-assistant/internal/model"
)

// MemoryStore is an in-memory ConversationStore guarded by a RWMutex.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*model.Conversation)}
}

// Create implements ConversationStore.
func (s *MemoryStore) Create(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneConversation(conv)
	s.conversations[conv.ID] = cp
	return nil
}

// Get implements ConversationStore.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

// List implements ConversationStore, newest first.
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]model.Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		all = append(all, conv)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	total := len(all)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]model.Conversation, 0, end-start)
	for _, conv := range all[start:end] {
		out = append(out, *cloneConversation(conv))
	}
	return out, total, nil
}

// LatestOpenByTenant implements ConversationStore.
func (s *MemoryStore) LatestOpenByTenant(ctx context.Context, tenantID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Conversation
	for _, conv := range s.conversations {
		if !conv.Open || conv.TenantID != tenantID {
			continue
		}
		if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return cloneConversation(latest), nil
}

// LatestOpen implements ConversationStore.
func (s *MemoryStore) LatestOpen(ctx context.Context) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Conversation
	for _, conv := range s.conversations {
		if !conv.Open {
			continue
		}
		if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return cloneConversation(latest), nil
}

// AppendChat implements ConversationStore.
func (s *MemoryStore) AppendChat(ctx context.Context, id string, entry model.ChatEntry) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	conv.ChatLog = append(conv.ChatLog, entry)
	conv.UpdatedAt = time.Now()
	return cloneConversation(conv), nil
}

// AppendDecision implements ConversationStore.
func (s *MemoryStore) AppendDecision(ctx context.Context, id string, entry model.DecisionEntry) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	conv.Autopilot.DecisionLog = append(conv.Autopilot.DecisionLog, entry)
	if entry.Status != "" {
		conv.Autopilot.Status = entry.Status
	}
	conv.UpdatedAt = time.Now()
	return cloneConversation(conv), nil
}

// SetClassification implements ConversationStore.
func (s *MemoryStore) SetClassification(ctx context.Context, id string, cls model.Classification) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.Classification = cls
	})
}

// SetDraft implements ConversationStore.
func (s *MemoryStore) SetDraft(ctx context.Context, id string, d model.Draft) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.Draft = d
	})
}

// SetReply implements ConversationStore.
func (s *MemoryStore) SetReply(ctx context.Context, id string, reply string) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.Reply = reply
	})
}

// SetAutopilotEnabled implements ConversationStore.
func (s *MemoryStore) SetAutopilotEnabled(ctx context.Context, id string, enabled bool) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.Autopilot.Enabled = enabled
	})
}

// SetAutopilotStatus implements ConversationStore.
func (s *MemoryStore) SetAutopilotStatus(ctx context.Context, id string, status string) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.Autopilot.Status = status
	})
}

func (s *MemoryStore) update(id string, fn func(*model.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	fn(conv)
	conv.UpdatedAt = time.Now()
	return nil
}

// cloneConversation returns a copy whose log slices cannot alias later
// appends, preserving the append-only contract for readers.
func cloneConversation(conv *model.Conversation) *model.Conversation {
	cp := *conv
	cp.ChatLog = make([]model.ChatEntry, len(conv.ChatLog))
	copy(cp.ChatLog, conv.ChatLog)
	cp.Autopilot.DecisionLog = make([]model.DecisionEntry, len(conv.Autopilot.DecisionLog))
	copy(cp.Autopilot.DecisionLog, conv.Autopilot.DecisionLog)
	return &cp
}
