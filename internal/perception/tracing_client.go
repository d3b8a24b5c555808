package perception

import (
	"context"
	"sync"
	"time"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// TracingClient decorates an LLMClient with per-round logging and simple
// counters. It is transparent to the caller: requests and responses pass
// through unchanged.
type TracingClient struct {
	inner LLMClient

	mu       sync.Mutex
	rounds   int
	failures int
	lastText string
}

// NewTracingClient wraps an existing client.
func NewTracingClient(inner LLMClient) *TracingClient {
	return &TracingClient{inner: inner}
}

// ChatWithTools delegates to the wrapped client, logging the round.
func (t *TracingClient) ChatWithTools(ctx context.Context, history []types.Turn, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	t.mu.Lock()
	t.rounds++
	round := t.rounds
	t.mu.Unlock()

	start := time.Now()
	logging.PerceptionDebug("[Trace] round %d: %d turns, %d tools", round, len(history), len(tools))

	resp, err := t.inner.ChatWithTools(ctx, history, tools)
	if err != nil {
		t.mu.Lock()
		t.failures++
		t.mu.Unlock()
		logging.PerceptionError("[Trace] round %d failed after %v: %v", round, time.Since(start), err)
		return nil, err
	}

	t.mu.Lock()
	t.lastText = resp.Text
	t.mu.Unlock()

	for _, call := range resp.ToolCalls {
		logging.Perception("[Trace] round %d requested %s %v", round, call.Name, call.Input)
	}
	logging.PerceptionDebug("[Trace] round %d done in %v: stop=%s text_len=%d",
		round, time.Since(start), resp.StopReason, len(resp.Text))

	return resp, nil
}

// Rounds returns the number of rounds attempted so far.
func (t *TracingClient) Rounds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rounds
}

// Failures returns the number of rounds that errored.
func (t *TracingClient) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

// LastText returns the text of the most recent successful response.
func (t *TracingClient) LastText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastText
}
