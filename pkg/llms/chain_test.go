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
	"errors"
	"strings"
	"testing"
)

func TestNormalizeOutput(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"plain string", "an answer", "an answer"},
		{"wrapped message", &ChainMessage{Content: "wrapped"}, "wrapped"},
		{"wrapped message value", ChainMessage{Content: "wrapped"}, "wrapped"},
		{"nested wrapping", &ChainMessage{Content: &ChainMessage{Content: "deep"}}, "deep"},
		{"list takes last element", []any{"first", "last"}, "last"},
		{"empty list", []any{}, ""},
		{"list of wrapped", []any{&ChainMessage{Content: "a"}, &ChainMessage{Content: "b"}}, "b"},
		{"map with content", map[string]any{"content": "from map"}, "from map"},
		{
			"legacy generations shape",
			map[string]any{"generations": []any{[]any{map[string]any{"text": "legacy"}}}},
			"legacy",
		},
		{"integer stringified", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeOutput(tt.in); got != tt.want {
				t.Errorf("NormalizeOutput(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type fakeRunner struct {
	out      any
	err      error
	messages []Message
}

func (r *fakeRunner) Invoke(ctx context.Context, messages []Message) (any, error) {
	r.messages = messages
	return r.out, r.err
}

func TestPromptChainRun(t *testing.T) {
	t.Run("renders templates and normalizes", func(t *testing.T) {
		runner := &fakeRunner{out: &ChainMessage{Content: "answer"}}
		chain := NewPromptChain(runner, "You know: {context}", "Q: {question}")

		got, err := chain.Run(context.Background(), map[string]string{
			"context":  "some verses",
			"question": "what is patience?",
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got != "answer" {
			t.Errorf("Run() = %q, want answer", got)
		}

		if len(runner.messages) != 2 {
			t.Fatalf("len(messages) = %d, want 2", len(runner.messages))
		}
		if runner.messages[0].Content != "You know: some verses" {
			t.Errorf("system message = %q, want rendered template", runner.messages[0].Content)
		}
		if !strings.Contains(runner.messages[1].Content, "what is patience?") {
			t.Errorf("user message = %q, want it to contain the question", runner.messages[1].Content)
		}
	})

	t.Run("runner error propagates", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("backend down")}
		chain := NewPromptChain(runner, "s", "h")

		if _, err := chain.Run(context.Background(), nil); err == nil {
			t.Fatal("Run() error = nil, want error")
		}
	})
}

func TestCountTokensFallback(t *testing.T) {
	text := "What does the Quran say about patience and perseverance?"
	if got := CountTokens("gpt-4o-mini", text); got <= 0 {
		t.Errorf("CountTokens() = %d, want > 0", got)
	}
	if got := CountTokens("totally-unknown-model", text); got <= 0 {
		t.Errorf("CountTokens() fallback = %d, want > 0", got)
	}
}
