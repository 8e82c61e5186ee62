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

// Package agent defines the protocol shared by every agent in the pipeline.
//
// Every agent exposes exactly two operations:
//
//	Process(ctx, *Request) (*Response, error)   // the work
//	Capabilities() []string                     // static self-description
//
// Process is the only suspend point: each implementation performs at least
// one I/O-bound step (embedding call, index search, model call) under the
// caller's context. Agents are constructed once and reused across many
// Process calls; construction failure is fatal and propagates.
package agent

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Request is the uniform request envelope.
//
// Parameters is a sparse override bag: each agent reads its typed request
// fields first and lets matching Parameters keys win. The same logical field
// must never be set inconsistently in both places; when both are, Parameters
// takes precedence (explicit override semantics).
type Request struct {
	Query      string         `json:"query" mapstructure:"query"`
	Parameters map[string]any `json:"parameters,omitempty" mapstructure:"-"`
}

// Response is the uniform response envelope. Agent-specific responses embed
// it and add strongly typed fields.
type Response struct {
	Content  any            `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Agent is the contract every agent in the system implements.
type Agent interface {
	// Process handles one request. It may fail with RetrievalError,
	// GenerationError or ValidationError depending on the agent.
	Process(ctx context.Context, req *Request) (*Response, error)

	// Capabilities returns the static capability tags of this agent.
	// Used for discovery and logging, never for dispatch.
	Capabilities() []string
}

// ResolveParams overlays a request's Parameters bag onto a typed request
// struct. The typed struct carries the defaults; bag entries win. Resolution
// happens once at request entry so agent bodies never consult the bag again.
func ResolveParams(params map[string]any, target any) error {
	if len(params) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build parameter decoder: %w", err)
	}

	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("invalid request parameters: %w", err)
	}
	return nil
}
