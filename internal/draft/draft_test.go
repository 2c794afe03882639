package draft

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

func TestGenerateTrimsAndAttributes(t *testing.T) {
	mock := llm.NewMockClient("  Hi Dana, we will send a plumber.  \n")
	g := NewGenerator(mock, logger.NewNop())

	cls := model.Classification{Severity: model.SeverityNormal, Category: "plumbing"}
	d := g.Generate(context.Background(), "the sink leaks", cls, "Dana Smith")

	assert.Equal(t, "Hi Dana, we will send a plumber.", d.Text)
	assert.Equal(t, "mock", d.Provenance)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "Dana Smith")
	assert.Contains(t, calls[0].Messages[0].Content, "the sink leaks")
	assert.Contains(t, calls[0].Messages[0].Content, "plumbing")
}

func TestGenerateNilClient(t *testing.T) {
	g := NewGenerator(nil, logger.NewNop())
	assert.Equal(t, model.Draft{}, g.Generate(context.Background(), "anything", model.Classification{}, ""))
}

func TestGenerateEmptyText(t *testing.T) {
	mock := llm.NewMockClient("should not be used")
	g := NewGenerator(mock, logger.NewNop())

	assert.Equal(t, model.Draft{}, g.Generate(context.Background(), "  ", model.Classification{}, "Dana"))
	assert.Empty(t, mock.Calls())
}

func TestGenerateDegradesToEmptyDraft(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Fail(errors.New("provider down"))
	g := NewGenerator(mock, logger.NewNop())

	assert.Equal(t, model.Draft{}, g.Generate(context.Background(), "the sink leaks", model.Classification{}, "Dana"))
}
