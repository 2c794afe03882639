package store

import (
	"context"
	"sync"
	"time"
)

// CooldownStore records the last time an auto-reply was actually sent to a
// tenant. The memory driver is the single-instance default; the redis
// driver survives restarts and is shared across instances.
type CooldownStore interface {
	// LastReply returns the last auto-reply time for a tenant. The zero
	// time means no reply has been recorded.
	LastReply(ctx context.Context, tenantID string) (time.Time, error)

	// RecordReply stamps the last auto-reply time for a tenant.
	RecordReply(ctx context.Context, tenantID string, at time.Time) error
}

// MemoryCooldownStore is an in-memory CooldownStore.
type MemoryCooldownStore struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

// NewMemoryCooldownStore creates an empty memory cooldown store.
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{last: make(map[string]time.Time)}
}

// LastReply implements CooldownStore.
func (s *MemoryCooldownStore) LastReply(ctx context.Context, tenantID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last[tenantID], nil
}

// RecordReply implements CooldownStore.
func (s *MemoryCooldownStore) RecordReply(ctx context.Context, tenantID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[tenantID] = at
	return nil
}
