package llm

import (
	"context"
	"sync"
)

// ScriptedClient is a Client that replays canned responses without calling a provider.
// Each call consumes the next response; the last one repeats once the script is exhausted.
// Useful for tests and for replaying saved model output from the CLI.
type ScriptedClient struct {
	Responses []string
	Err       error
	// Block, when set, makes calls wait until it is closed or the context ends.
	Block chan struct{}

	mu    sync.Mutex
	calls []Request
}

// NewScriptedClient returns a client that replays responses in order.
func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{Responses: responses}
}

// GenerateContent returns the next scripted response
func (c *ScriptedClient) GenerateContent(ctx context.Context, req Request) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	n := len(c.calls)
	block := c.Block
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", &UpstreamError{Provider: "scripted", Message: "request cancelled", Cause: ctx.Err()}
		}
	}
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) == 0 {
		return "", &UpstreamError{Provider: "scripted", Message: "no scripted responses"}
	}
	return c.Responses[min(n, len(c.Responses))-1], nil
}

// GenerateJSON returns the next scripted response
func (c *ScriptedClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	return c.GenerateContent(ctx, req)
}

// GetModel returns a fixed model name
func (c *ScriptedClient) GetModel(tier ModelTier) string {
	return "scripted-" + string(tier)
}

// Close is a no-op
func (c *ScriptedClient) Close() error {
	return nil
}

// Calls returns the requests received so far
func (c *ScriptedClient) Calls() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.calls))
	copy(out, c.calls)
	return out
}
