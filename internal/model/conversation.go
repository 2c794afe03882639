// Package model defines data structures for the messaging assistant.
package model

import (
	"time"
)

// Role represents the author of a chat log entry.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAI       Role = "ai"
)

// Severity is the urgency tier assigned by the classifier.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityNormal   Severity = "normal"
	SeverityLow      Severity = "low"
)

// AutoSendable reports whether the severity is safe for autopilot.
func (s Severity) AutoSendable() bool {
	return s == SeverityLow || s == SeverityNormal
}

// Urgent reports whether the severity bypasses the intake delay.
func (s Severity) Urgent() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// ChatEntry is one entry in a conversation's append-only chat log.
type ChatEntry struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Classification is the latest triage result for a conversation.
type Classification struct {
	Severity     Severity `json:"severity"`
	Category     string   `json:"category"`
	UrgencyHours int      `json:"urgency_hours"`
}

// Draft is the latest candidate tenant-facing reply.
type Draft struct {
	Text       string `json:"text"`
	Provenance string `json:"provenance"`
}

// DecisionType categorizes autopilot decision log entries.
type DecisionType string

const (
	DecisionSystem    DecisionType = "system"
	DecisionConfig    DecisionType = "config"
	DecisionAutoReply DecisionType = "auto_reply"
	DecisionSkip      DecisionType = "skip"
	DecisionError     DecisionType = "error"
)

// DecisionEntry is one entry in the append-only autopilot decision log.
type DecisionEntry struct {
	Type      DecisionType      `json:"type"`
	Message   string            `json:"message"`
	Status    string            `json:"status,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Autopilot holds the per-conversation autopilot state. Status is only
// written by the decision engine's gating evaluation or explicit
// enable/disable.
type Autopilot struct {
	Enabled     bool            `json:"enabled"`
	Status      string          `json:"status"`
	DecisionLog []DecisionEntry `json:"decision_log"`
}

// Conversation represents a tenant's maintenance/request thread.
type Conversation struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id,omitempty"`
	Unit           string         `json:"unit,omitempty"`
	Open           bool           `json:"open"`
	ChatLog        []ChatEntry    `json:"chat_log"`
	Classification Classification `json:"classification"`
	Draft          Draft          `json:"draft"`
	Reply          string         `json:"reply,omitempty"`
	Autopilot      Autopilot      `json:"autopilot"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// LastEntry returns the most recent chat log entry, or nil when empty.
func (c *Conversation) LastEntry() *ChatEntry {
	if len(c.ChatLog) == 0 {
		return nil
	}
	return &c.ChatLog[len(c.ChatLog)-1]
}
