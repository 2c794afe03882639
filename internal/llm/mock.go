package llm

import (
	"context"
	"errors"
	"sync"
)

// MockClient is a scriptable in-memory Client used in tests and when no
// provider is configured in development.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []*CompletionRequest
}

// NewMockClient creates a mock client that replays the given responses in
// order, repeating the last one once exhausted.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// Fail makes every subsequent Complete call return err.
func (c *MockClient) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls returns the requests seen so far.
func (c *MockClient) Calls() []*CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*CompletionRequest, len(c.calls))
	copy(out, c.calls)
	return out
}

// Name returns the provider name.
func (c *MockClient) Name() string { return "mock" }

// Models returns available models.
func (c *MockClient) Models() []string { return []string{"mock"} }

// Complete replays the next scripted response.
func (c *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, req)

	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, errors.New("mock: no responses scripted")
	}

	content := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}

	return &CompletionResponse{
		Content: content,
		Model:   "mock",
	}, nil
}
