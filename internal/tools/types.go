// Package tools provides the action registry for the agent.
//
// Every action the reasoning endpoint may request is declared here as a
// Tool with a parameter schema and a bound handler. The schema sent to
// the endpoint is re-derived from the registry, never hand-duplicated,
// so the declared tool surface and the executable surface cannot drift
// apart: every declared name is executable and every executable action
// is declared.
package tools

import (
	"context"

	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// Property describes a single parameter for the JSON schema.
type Property struct {
	Type        string `json:"type"` // "string" or "number"
	Description string `json:"description"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// Async resolves an asynchronous outcome: the result payload or an error.
type Async struct {
	Payload string
	Err     error
}

// Outcome is the result of executing an invocation.
//
// Exactly one of two shapes applies: an immediate outcome (Payload set,
// Future nil) or a deferred one (Future non-nil, resolving exactly once).
// Feedback marks outcomes whose payload should trigger a new reasoning
// round; fire-and-effect actions like chat leave it false. Deferred
// outcomes always feed back.
type Outcome struct {
	Payload  string
	Feedback bool
	Future   <-chan Async
}

// ExecuteFunc is the signature for tool execution. Arguments arrive
// pre-validated against the tool's schema.
type ExecuteFunc func(ctx context.Context, args map[string]any) (*Outcome, error)

// Tool binds a declared action to its handler.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does, for the LLM.
	Description string

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Definition projects the tool's declared schema for transmission to the
// reasoning endpoint. Pure and side-effect free.
func (t *Tool) Definition() types.ToolDefinition {
	properties := make(map[string]any, len(t.Schema.Properties))
	for name, p := range t.Schema.Properties {
		properties[name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	required := t.Schema.Required
	if required == nil {
		required = []string{}
	}
	schema["required"] = required

	return types.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}
}
