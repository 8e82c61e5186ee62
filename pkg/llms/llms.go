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

// Package llms provides the generation backends: a direct chat provider and
// the templated prompt-chain execution path with output normalization.
package llms

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mufassir-ai/mufassir/pkg/config"
)

// Role identifies a message sender.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider is the generation capability: a chat call returning plain text.
type Provider interface {
	// Chat sends messages to the model and returns the response text.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases provider resources.
	Close() error
}

// NewFromConfig creates the configured generation provider.
func NewFromConfig(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Type)
	}
}

// CountTokens estimates the token count of text for the given model. Falls
// back to a character heuristic when the model's encoding is unknown.
func CountTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// cl100k_base covers every chat model we target
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return len(text) / 4
		}
	}
	return len(enc.Encode(text, nil, nil))
}
