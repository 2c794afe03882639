// Package draft generates candidate tenant-facing replies.
package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/llm"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/metrics"
)

const systemPrompt = `You draft short, courteous replies a landlord could send
to a tenant about a maintenance request. Acknowledge the issue, state the
next step, and do not promise a specific repair time. Reply with only the
message text.`

// Generator produces candidate replies. An empty draft means "no draft
// yet" and is never an error.
type Generator struct {
	client llm.Client
	logger *logger.Logger
}

// NewGenerator creates a generator. A nil client is allowed; generation
// then always yields the empty draft.
func NewGenerator(client llm.Client, log *logger.Logger) *Generator {
	return &Generator{client: client, logger: log}
}

// Generate produces a draft reply for the given tenant message and
// classification. Failures degrade to an empty draft.
func (g *Generator) Generate(ctx context.Context, text string, cls model.Classification, tenantName string) model.Draft {
	if g.client == nil || strings.TrimSpace(text) == "" {
		return model.Draft{}
	}

	prompt := fmt.Sprintf("Tenant: %s\nSeverity: %s\nCategory: %s\n\nMessage:\n%s",
		tenantName, cls.Severity, cls.Category, text)

	start := time.Now()
	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		System:    systemPrompt,
		Messages:  []llm.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 512,
	})
	if err != nil {
		g.logger.Warn("draft generation failed", zap.Error(err))
		metrics.RecordLLMCall("draft", g.client.Name(), "error", time.Since(start).Seconds(), 0, 0)
		return model.Draft{}
	}

	metrics.RecordLLMCall("draft", resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	return model.Draft{
		Text:       strings.TrimSpace(resp.Content),
		Provenance: g.client.Name(),
	}
}
