// Package scheduler implements the per-tenant debounce window and reply
// cooldown. Rapid-fire messages from one tenant coalesce into a single
// bucket whose timer resets on every append; urgent messages bypass the
// window entirely.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/metrics"
)

// Separator joins buffered fragments in arrival order at flush time.
const Separator = "\n"

// criticalKeywords force a zero delay on case-insensitive substring match.
var criticalKeywords = []string{
	"fire",
	"water leak",
	"gas leak",
	"gas",
	"no power",
	"no heat",
	"flood",
	"smoke",
}

// ContainsCriticalKeyword reports whether the text matches the bypass list.
func ContainsCriticalKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Bucket is the per-sender debounce state. It lives only in process
// memory; losing it on restart loses at most one pending reply cycle.
type Bucket struct {
	Key         string
	Destination string
	Group       bool
	Fragments   []string
	OpenedAt    time.Time

	timer *time.Timer
}

// Combined returns the buffered fragments joined in arrival order.
func (b *Bucket) Combined() string {
	return strings.Join(b.Fragments, Separator)
}

// FlushFunc processes a flushed bucket. It runs on the timer's goroutine;
// the bucket has already been removed from the store when it is called.
type FlushFunc func(ctx context.Context, b *Bucket)

// PendingReplyStore holds open buckets keyed by sender identity. Buckets
// carry live timer handles, so implementations are process-local.
type PendingReplyStore interface {
	Get(key string) (*Bucket, bool)
	Put(key string, b *Bucket)
	Delete(key string) (*Bucket, bool)
	Len() int
}

// MemoryPendingStore is the map-backed PendingReplyStore.
type MemoryPendingStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// NewMemoryPendingStore creates an empty pending store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{buckets: make(map[string]*Bucket)}
}

// Get implements PendingReplyStore.
func (s *MemoryPendingStore) Get(key string) (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	return b, ok
}

// Put implements PendingReplyStore.
func (s *MemoryPendingStore) Put(key string, b *Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[key] = b
}

// Delete implements PendingReplyStore.
func (s *MemoryPendingStore) Delete(key string) (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if ok {
		delete(s.buckets, key)
	}
	return b, ok
}

// Len implements PendingReplyStore.
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Config holds scheduler timing knobs.
type Config struct {
	// IntakeDelay is the debounce window opened for non-urgent messages.
	IntakeDelay time.Duration

	// ReplyCooldown is the minimum spacing between auto-replies to one
	// tenant.
	ReplyCooldown time.Duration

	// MaxDefer caps the total deferral a bucket can accumulate through
	// timer resets. Zero means unbounded: a tenant who keeps messaging
	// inside the window keeps deferring the flush.
	MaxDefer time.Duration
}

// Scheduler owns the debounce buckets and cooldown bookkeeping.
type Scheduler struct {
	mu        sync.Mutex
	cfg       Config
	pending   PendingReplyStore
	cooldowns store.CooldownStore
	flush     FlushFunc
	logger    *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler. The flush callback is invoked once per bucket,
// after the bucket has been removed from the pending store.
func New(cfg Config, pending PendingReplyStore, cooldowns store.CooldownStore, flush FlushFunc, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		pending:   pending,
		cooldowns: cooldowns,
		flush:     flush,
		logger:    log,
		now:       time.Now,
	}
}

// Delay computes how long to defer processing of a tenant message.
// Severity high/critical or a critical keyword in the raw text bypasses
// the window entirely. Otherwise the delay is the later of the intake
// window and the cooldown floor, measured from now.
func (s *Scheduler) Delay(ctx context.Context, tenantID, text string, severity model.Severity) time.Duration {
	if severity.Urgent() || ContainsCriticalKeyword(text) {
		return 0
	}

	now := s.now()
	deadline := now.Add(s.cfg.IntakeDelay)

	last, err := s.cooldowns.LastReply(ctx, tenantID)
	if err != nil {
		s.logger.Warn("cooldown lookup failed, using intake delay only",
			zap.String("tenant_id", tenantID), zap.Error(err))
	} else if !last.IsZero() {
		if floor := last.Add(s.cfg.ReplyCooldown); floor.After(deadline) {
			deadline = floor
		}
	}

	delay := deadline.Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

// Enqueue buffers a message fragment for the sender. The first fragment
// opens a bucket; every subsequent fragment appends and resets the timer
// to the newly computed delay (last-message-wins). Clearing and replacing
// the timer under the scheduler mutex is the sole mutual exclusion between
// appends and the pending flush.
func (s *Scheduler) Enqueue(ctx context.Context, key, destination string, group bool, text string, delay time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.pending.Get(key)
	if !ok {
		b = &Bucket{
			Key:         key,
			Destination: destination,
			Group:       group,
			OpenedAt:    s.now(),
		}
		s.pending.Put(key, b)
		metrics.PendingBucketsActive.Set(float64(s.pending.Len()))
	}

	b.Fragments = append(b.Fragments, text)

	if b.timer != nil {
		b.timer.Stop()
	}

	if s.cfg.MaxDefer > 0 {
		if remaining := b.OpenedAt.Add(s.cfg.MaxDefer).Sub(s.now()); remaining < delay {
			delay = remaining
			if delay < 0 {
				delay = 0
			}
		}
	}

	b.timer = time.AfterFunc(delay, func() {
		s.fire(key)
	})

	return len(b.Fragments)
}

// Cancel discards a pending bucket, stopping its timer. It returns the
// bucket if one was open.
func (s *Scheduler) Cancel(key string) (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.pending.Delete(key)
	if !ok {
		return nil, false
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	metrics.PendingBucketsActive.Set(float64(s.pending.Len()))
	return b, true
}

// Pending reports whether a bucket is open for the sender, and its current
// fragment count.
func (s *Scheduler) Pending(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.pending.Get(key)
	if !ok {
		return 0, false
	}
	return len(b.Fragments), true
}

// RecordReply stamps the tenant's last auto-reply time for the cooldown
// floor.
func (s *Scheduler) RecordReply(ctx context.Context, tenantID string) {
	if err := s.cooldowns.RecordReply(ctx, tenantID, s.now()); err != nil {
		s.logger.Warn("cooldown record failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// fire flushes a bucket whose timer elapsed. The bucket is removed before
// the flush callback runs, so a message arriving mid-flush opens a fresh
// bucket instead of racing the in-flight one.
func (s *Scheduler) fire(key string) {
	s.mu.Lock()
	b, ok := s.pending.Delete(key)
	metrics.PendingBucketsActive.Set(float64(s.pending.Len()))
	s.mu.Unlock()

	if !ok {
		return
	}

	metrics.DebounceFlushesTotal.WithLabelValues("false").Inc()
	s.flush(context.Background(), b)
}
