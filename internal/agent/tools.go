package agent

import (
	"context"
	"fmt"
)

// SideEffect classifies what a tool touches, so dispatch can reason about
// retries and budgets.
type SideEffect string

const (
	// SideEffectNone marks pure computation.
	SideEffectNone SideEffect = "none"
	// SideEffectNetwork marks calls to paid external APIs; the state
	// machine issues these only once input is unambiguous.
	SideEffectNetwork SideEffect = "network"
)

// Handler executes a tool with validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is one entry in the registry: name, input schema, side-effect class,
// and handler.
type Tool struct {
	Name        string
	Description string
	// Parameters is a minimal JSON-Schema-like map; only the "required"
	// list is enforced at dispatch.
	Parameters map[string]any
	SideEffect SideEffect
	Handler    Handler
}

// Registry maps tool names to their definitions. The orchestrator consults
// it for every external call instead of reaching for clients directly.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// mustRegister registers a tool and panics on programmer error (duplicate
// name, missing handler). Used during orchestrator construction.
func mustRegister(r *Registry, t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call validates required arguments and invokes the tool.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	if required, ok := t.Parameters["required"].([]string); ok {
		for _, key := range required {
			if _, present := args[key]; !present {
				return nil, fmt.Errorf("tool %q: missing required argument %q", name, key)
			}
		}
	}

	return t.Handler(ctx, args)
}
