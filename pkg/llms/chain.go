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

package llms

import (
	"context"
	"fmt"
	"strings"
)

// Runner executes a rendered prompt. Its return shape is polymorphic across
// backends: a raw string, a *ChainMessage, a list of either, or a legacy
// generations map. NormalizeOutput flattens every observed shape.
type Runner interface {
	Invoke(ctx context.Context, messages []Message) (any, error)
}

// ChainMessage is a wrapped model output whose Content may itself be any of
// the polymorphic shapes.
type ChainMessage struct {
	Content any
}

// PromptChain is the templated execution path: placeholders are rendered
// into a message pair and handed to the runner, and the runner's polymorphic
// output is normalized to a plain string.
type PromptChain struct {
	runner         Runner
	systemTemplate string
	humanTemplate  string
}

// NewPromptChain creates a chain over a runner. Templates reference
// variables as {name}.
func NewPromptChain(runner Runner, systemTemplate, humanTemplate string) *PromptChain {
	return &PromptChain{
		runner:         runner,
		systemTemplate: systemTemplate,
		humanTemplate:  humanTemplate,
	}
}

// Run renders the templates with vars, invokes the runner and normalizes
// the output.
func (c *PromptChain) Run(ctx context.Context, vars map[string]string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: renderTemplate(c.systemTemplate, vars)},
		{Role: RoleUser, Content: renderTemplate(c.humanTemplate, vars)},
	}

	out, err := c.runner.Invoke(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("prompt chain invocation failed: %w", err)
	}
	return NormalizeOutput(out), nil
}

func renderTemplate(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// NormalizeOutput flattens the polymorphic runner output to a plain string.
// One exhaustive match covers every observed shape; anything else is
// stringified as a last resort.
func NormalizeOutput(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		return out
	case *ChainMessage:
		return NormalizeOutput(out.Content)
	case ChainMessage:
		return NormalizeOutput(out.Content)
	case []any:
		if len(out) == 0 {
			return ""
		}
		return NormalizeOutput(out[len(out)-1])
	case map[string]any:
		if content, ok := out["content"]; ok {
			return NormalizeOutput(content)
		}
		if text, ok := legacyGenerationText(out); ok {
			return text
		}
		return fmt.Sprint(out)
	default:
		return fmt.Sprint(out)
	}
}

// legacyGenerationText extracts dict["generations"][0][0].text from the
// legacy batch-generation response shape.
func legacyGenerationText(m map[string]any) (string, bool) {
	gens, ok := m["generations"].([]any)
	if !ok || len(gens) == 0 {
		return "", false
	}
	first, ok := gens[0].([]any)
	if !ok || len(first) == 0 {
		return "", false
	}
	gen, ok := first[0].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := gen["text"].(string)
	return text, ok
}

// ProviderRunner adapts a direct Provider into a Runner.
type ProviderRunner struct {
	Provider Provider
}

// Invoke forwards to the provider's Chat call.
func (r *ProviderRunner) Invoke(ctx context.Context, messages []Message) (any, error) {
	return r.Provider.Chat(ctx, messages)
}
