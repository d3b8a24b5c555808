// Package types holds the shared data model for the agent core.
//
// It is imported by every other internal package, so it must stay free of
// dependencies on them (interfaces live here precisely to break cycles).
package types

// Role identifies who authored a turn in the conversation history.
type Role string

const (
	// RoleSystem is the initial instruction turn seeded at session start.
	RoleSystem Role = "system"

	// RoleUser is an external stimulus (inbound chat, reported as JSON).
	RoleUser Role = "user"

	// RoleAgent is a reasoning response: free text and/or tool calls.
	RoleAgent Role = "assistant"

	// RoleActionResult carries the outcome of an executed tool call back
	// into the context. This is the only channel by which an action's
	// effect becomes visible to subsequent reasoning rounds.
	RoleActionResult Role = "tool"
)

// Turn is one immutable entry in the conversation history.
// Once appended to the history store it is never mutated or removed.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"` // free text, or a JSON payload for stimuli/results

	// Invocations holds the tool calls requested in an agent turn.
	Invocations []ToolCall `json:"invocations,omitempty"`

	// CallID and ToolName identify which invocation an action-result
	// turn answers. Empty for all other roles.
	CallID   string `json:"call_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCall represents a tool invocation requested by the LLM.
// Input values are untyped at the transport boundary; the registry
// validates them against the declared schema before dispatch.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolDefinition describes a tool the LLM can invoke.
// InputSchema is a JSON Schema object for the parameters.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// LLMToolResponse contains both text response and tool calls from the LLM.
type LLMToolResponse struct {
	Text       string     `json:"text"`        // may be empty if only tool calls
	ToolCalls  []ToolCall `json:"tool_calls"`  // invocations requested by the LLM
	StopReason string     `json:"stop_reason"` // "end_turn", "tool_use", etc.
}
