// Package triage classifies inbound tenant messages into severity tiers.
package triage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/llm"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/metrics"
)

const systemPrompt = `You are a triage assistant for a property manager.
Classify the tenant message. Respond with only a JSON object:
{"severity":"critical|high|normal|low","category":"<short label>","urgency_hours":<int>}`

const maxAttempts = 3

// Fallback is the classification used when the model is unavailable.
// Callers never see an error from Classify.
var Fallback = model.Classification{
	Severity:     model.SeverityNormal,
	Category:     "general",
	UrgencyHours: 24,
}

// Classifier assigns a severity and category to free-form tenant text.
type Classifier struct {
	client llm.Client
	logger *logger.Logger
}

// NewClassifier creates a classifier. A nil client is allowed; every
// classification then returns the fallback.
func NewClassifier(client llm.Client, log *logger.Logger) *Classifier {
	return &Classifier{client: client, logger: log}
}

// Classify returns a classification for the given text. Transient model
// errors are retried with exponential backoff before degrading to the
// fallback value.
func (c *Classifier) Classify(ctx context.Context, text, tenantContext string) model.Classification {
	if c.client == nil || strings.TrimSpace(text) == "" {
		return Fallback
	}

	prompt := text
	if tenantContext != "" {
		prompt = "Tenant context: " + tenantContext + "\n\nMessage: " + text
	}

	var resp *llm.CompletionResponse
	start := time.Now()

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1), ctx)
	err := backoff.Retry(func() error {
		var callErr error
		resp, callErr = c.client.Complete(ctx, &llm.CompletionRequest{
			System:    systemPrompt,
			Messages:  []llm.ChatMessage{{Role: "user", Content: prompt}},
			MaxTokens: 256,
		})
		return callErr
	}, policy)

	if err != nil {
		c.logger.Warn("triage degraded to fallback", zap.Error(err))
		metrics.RecordLLMCall("triage", c.client.Name(), "fallback", time.Since(start).Seconds(), 0, 0)
		return Fallback
	}

	metrics.RecordLLMCall("triage", resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	return parseClassification(resp.Content)
}

// parseClassification extracts a classification from model output,
// tolerating surrounding prose around the JSON object.
func parseClassification(content string) model.Classification {
	raw := content
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			raw = raw[i : j+1]
		}
	}

	var parsed struct {
		Severity     string `json:"severity"`
		Category     string `json:"category"`
		UrgencyHours int    `json:"urgency_hours"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Fallback
	}

	out := model.Classification{
		Category:     parsed.Category,
		UrgencyHours: parsed.UrgencyHours,
	}
	switch model.Severity(strings.ToLower(parsed.Severity)) {
	case model.SeverityCritical:
		out.Severity = model.SeverityCritical
	case model.SeverityHigh:
		out.Severity = model.SeverityHigh
	case model.SeverityLow:
		out.Severity = model.SeverityLow
	default:
		out.Severity = model.SeverityNormal
	}
	if out.Category == "" {
		out.Category = Fallback.Category
	}
	if out.UrgencyHours <= 0 {
		out.UrgencyHours = Fallback.UrgencyHours
	}
	return out
}
