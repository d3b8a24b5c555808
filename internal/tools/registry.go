package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// Registry holds the declared actions and provides lookup, schema
// projection, and validated execution. The set is fixed at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	logging.ToolsDebug("Registered tool: %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions projects the declared schema of every registered tool, in
// name order. This is the exact tool surface transmitted to the
// reasoning endpoint on every round.
func (r *Registry) Definitions() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]types.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute resolves and runs an invocation. The arguments are validated
// against the tool's declared schema before the handler runs.
// Returns ErrToolNotFound for an unregistered name and
// ErrMissingRequiredArg/ErrInvalidArgType for schema violations.
func (r *Registry) Execute(ctx context.Context, call types.ToolCall) (*Outcome, error) {
	tool := r.Get(call.Name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}

	if err := validateArgs(tool, call.Input); err != nil {
		return nil, err
	}

	logging.ToolsDebug("Executing tool: %s with %d args", call.Name, len(call.Input))
	return tool.Execute(ctx, call.Input)
}

// validateArgs checks required arguments and declared types.
func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}

	for name, val := range args {
		prop, declared := tool.Schema.Properties[name]
		if !declared {
			continue // tolerate extra arguments, the handler ignores them
		}
		if val == nil {
			continue
		}
		switch prop.Type {
		case "string":
			if _, ok := val.(string); !ok {
				return fmt.Errorf("%w: %s must be a string", ErrInvalidArgType, name)
			}
		case "number":
			if _, ok := asFloat(val); !ok {
				return fmt.Errorf("%w: %s must be a number", ErrInvalidArgType, name)
			}
		}
	}
	return nil
}
