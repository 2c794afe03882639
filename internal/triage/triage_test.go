package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/tenant-assistant/internal/llm"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

func TestClassifyParsesModelOutput(t *testing.T) {
	mock := llm.NewMockClient(`{"severity":"high","category":"electrical","urgency_hours":4}`)
	c := NewClassifier(mock, logger.NewNop())

	cls := c.Classify(context.Background(), "sparks from the outlet", "Dana, unit 4B")

	assert.Equal(t, model.SeverityHigh, cls.Severity)
	assert.Equal(t, "electrical", cls.Category)
	assert.Equal(t, 4, cls.UrgencyHours)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "Dana, unit 4B")
	assert.Contains(t, calls[0].Messages[0].Content, "sparks from the outlet")
}

func TestClassifyNilClientReturnsFallback(t *testing.T) {
	c := NewClassifier(nil, logger.NewNop())
	assert.Equal(t, Fallback, c.Classify(context.Background(), "anything", ""))
}

func TestClassifyEmptyTextReturnsFallback(t *testing.T) {
	mock := llm.NewMockClient(`{"severity":"high"}`)
	c := NewClassifier(mock, logger.NewNop())

	assert.Equal(t, Fallback, c.Classify(context.Background(), "   ", ""))
	assert.Empty(t, mock.Calls(), "blank text must not reach the model")
}

func TestClassifyDegradesToFallbackOnError(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Fail(errors.New("provider down"))
	c := NewClassifier(mock, logger.NewNop())

	cls := c.Classify(context.Background(), "leaky faucet", "")

	assert.Equal(t, Fallback, cls)
	assert.Len(t, mock.Calls(), maxAttempts, "transient errors are retried before degrading")
}

func TestParseClassification(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    model.Classification
	}{
		{
			name:    "bare json",
			content: `{"severity":"critical","category":"gas","urgency_hours":1}`,
			want:    model.Classification{Severity: model.SeverityCritical, Category: "gas", UrgencyHours: 1},
		},
		{
			name:    "json wrapped in prose",
			content: "Sure! Here is the result:\n{\"severity\":\"low\",\"category\":\"cosmetic\",\"urgency_hours\":72}\nLet me know if you need anything else.",
			want:    model.Classification{Severity: model.SeverityLow, Category: "cosmetic", UrgencyHours: 72},
		},
		{
			name:    "unknown severity becomes normal",
			content: `{"severity":"urgent","category":"plumbing","urgency_hours":12}`,
			want:    model.Classification{Severity: model.SeverityNormal, Category: "plumbing", UrgencyHours: 12},
		},
		{
			name:    "uppercase severity",
			content: `{"severity":"HIGH","category":"hvac","urgency_hours":6}`,
			want:    model.Classification{Severity: model.SeverityHigh, Category: "hvac", UrgencyHours: 6},
		},
		{
			name:    "missing fields backfilled",
			content: `{"severity":"normal"}`,
			want:    model.Classification{Severity: model.SeverityNormal, Category: "general", UrgencyHours: 24},
		},
		{
			name:    "garbage falls back",
			content: "I cannot classify that.",
			want:    Fallback,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseClassification(tc.content))
		})
	}
}
