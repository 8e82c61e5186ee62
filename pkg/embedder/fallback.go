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

package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Fallback chains two embedders: every call tries the primary first and
// demotes to the secondary on any failure. Both providers must produce
// vectors of the same dimension, otherwise the index would be inconsistent.
type Fallback struct {
	primary   Embedder
	secondary Embedder
}

// NewFallback creates a primary/secondary embedding chain.
func NewFallback(primary, secondary Embedder) *Fallback {
	if primary.Dimension() != secondary.Dimension() {
		slog.Warn("Fallback embedder dimension mismatch; secondary results will not match the index",
			"primary_dim", primary.Dimension(),
			"secondary_dim", secondary.Dimension())
	}
	return &Fallback{primary: primary, secondary: secondary}
}

// Embed tries the primary embedder, then the secondary.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, primaryErr := f.primary.Embed(ctx, text)
	if primaryErr == nil {
		return vec, nil
	}
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	slog.Warn("Primary embedder failed, trying fallback",
		"primary_model", f.primary.Model(),
		"error", primaryErr)

	vec, secondaryErr := f.secondary.Embed(ctx, text)
	if secondaryErr != nil {
		return nil, fmt.Errorf("all embedding providers failed: %w", errors.Join(primaryErr, secondaryErr))
	}
	return vec, nil
}

// Dimension returns the primary embedder's dimension.
func (f *Fallback) Dimension() int { return f.primary.Dimension() }

// Model returns the primary embedder's model name.
func (f *Fallback) Model() string { return f.primary.Model() }

// Close closes both embedders.
func (f *Fallback) Close() error {
	return errors.Join(f.primary.Close(), f.secondary.Close())
}
