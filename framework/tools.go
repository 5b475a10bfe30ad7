package framework

import (
	"context"
	"fmt"
	"sync"
)

// Tool is a single adapter the agent can dispatch to. Every tool accepts the
// raw argument text of an action line and produces an observation.
type Tool interface {
	Name() string
	Description() string
	// Example is a sample argument rendered into the system prompt.
	Example() string
	Execute(ctx context.Context, argument string) (*ToolResult, error)
}

// ToolResult is returned by every tool execution.
type ToolResult struct {
	Observation any
	Metadata    map[string]any
}

// ToolRegistry maintains tools keyed by name. Registries are populated at
// construction time and read concurrently by request handlers afterwards.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry builds a registry seeded with tools.
func NewToolRegistry(tools ...Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{
		tools: make(map[string]Tool),
	}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = make(map[string]Tool)
	}
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Get fetches a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}
