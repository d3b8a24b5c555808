package types

import "context"

// LLMClient defines the interface for the reasoning endpoint.
//
// The endpoint itself is stateless: every call carries the full ordered
// history plus the full tool schema, and all session state lives in the
// history store. Implementations must not retain conversation state
// between calls.
type LLMClient interface {
	// ChatWithTools sends the ordered history with tool definitions and
	// returns the model's reply and any requested tool invocations.
	ChatWithTools(ctx context.Context, history []Turn, tools []ToolDefinition) (*LLMToolResponse, error)
}
