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

// Package embedder provides the text embedding capability used for semantic
// search, with provider fallback at the external-dependency boundary.
package embedder

import (
	"context"
	"fmt"

	"github.com/mufassir-ai/mufassir/pkg/config"
)

// Embedder produces vector embeddings from text.
type Embedder interface {
	// Embed converts text to a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// Model returns the model name being used.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// NewFromConfig builds the configured embedder, wrapping it in a fallback
// chain when a secondary provider is configured.
func NewFromConfig(cfg *config.EmbedderConfig) (Embedder, error) {
	primary, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Fallback == nil {
		return primary, nil
	}

	secondary, err := newProvider(cfg.Fallback)
	if err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("failed to create fallback embedder: %w", err)
	}

	return NewFallback(primary, secondary), nil
}

func newProvider(cfg *config.EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder type: %s", cfg.Type)
	}
}
