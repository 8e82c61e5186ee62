// Copyright 2025 The Mufassir Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toolserver exposes agents as named, schema-described tools. One
// server wraps one agent; every server carries the universal get_version
// tool. Execution never leaks errors or panics across the boundary: failures
// come back as structured results.
package toolserver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mufassir-ai/mufassir/pkg/registry"
)

// HandlerFunc executes one tool invocation.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// ToolDefinition describes one invokable tool. Schema is a JSON Schema
// object; its "required" list is validated before dispatch.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
	Handler     HandlerFunc    `json:"-"`
}

// ExecutionResult is the structured outcome of a tool invocation. Exactly
// one of Result and Error is set.
type ExecutionResult struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ToolNotFoundError reports an unknown tool name.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Tool not found: %s", e.Name)
}

// Server is a tool-invocation server for one agent. The tool registry is
// populated at construction and never mutated afterward.
type Server struct {
	name        string
	version     string
	description string
	tools       *registry.BaseRegistry[*ToolDefinition]
}

// NewServer creates a tool server with the universal get_version tool
// pre-registered.
func NewServer(name, version, description string) *Server {
	s := &Server{
		name:        name,
		version:     version,
		description: description,
		tools:       registry.NewBaseRegistry[*ToolDefinition](),
	}

	_ = s.RegisterTool(&ToolDefinition{
		Name:        "get_version",
		Description: "Returns the server version and identity",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return map[string]any{
				"version":     s.version,
				"name":        s.name,
				"description": s.description,
			}, nil
		},
	})
	return s
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// RegisterTool adds a tool. Duplicate names and nil handlers are rejected.
func (s *Server) RegisterTool(def *ToolDefinition) error {
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	return s.tools.Register(def.Name, def)
}

// Tool returns a tool definition by name.
func (s *Server) Tool(name string) (*ToolDefinition, error) {
	def, ok := s.tools.Get(name)
	if !ok {
		return nil, &ToolNotFoundError{Name: name}
	}
	return def, nil
}

// Tools returns all definitions in name order.
func (s *Server) Tools() []*ToolDefinition {
	return s.tools.List()
}

// ExecuteTool invokes a tool by name. It never returns an error across the
// boundary: unknown names, missing required parameters, handler errors and
// handler panics all come back as structured results.
func (s *Server) ExecuteTool(ctx context.Context, name string, params map[string]any) (result *ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool handler panicked",
				"server", s.name,
				"tool", name,
				"panic", r,
				"stack", string(debug.Stack()))
			result = &ExecutionResult{Error: fmt.Sprintf("tool %s panicked: %v", name, r)}
		}
	}()

	def, err := s.Tool(name)
	if err != nil {
		return &ExecutionResult{Error: err.Error()}
	}

	if missing := missingRequired(def.Schema, params); len(missing) > 0 {
		return &ExecutionResult{Error: fmt.Sprintf("missing required parameters: %v", missing)}
	}

	out, err := def.Handler(ctx, params)
	if err != nil {
		slog.Warn("Tool execution failed", "server", s.name, "tool", name, "error", err)
		return &ExecutionResult{Error: err.Error()}
	}
	return &ExecutionResult{Result: out}
}

// missingRequired checks params against the schema's "required" list.
func missingRequired(schema, params map[string]any) []string {
	required, ok := schema["required"].([]any)
	var names []string
	if ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				names = append(names, name)
			}
		}
	} else if typed, ok := schema["required"].([]string); ok {
		names = typed
	}

	var missing []string
	for _, name := range names {
		if _, present := params[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}
