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

// Package summarizer implements the content summarization agent: length- and
// focus-controlled summaries of Quranic passages and tafsir explanations.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/mufassir-ai/mufassir/pkg/agent"
	"github.com/mufassir-ai/mufassir/pkg/config"
	"github.com/mufassir-ai/mufassir/pkg/llms"
)

// DefaultMaxLength is the summary word budget when the request does not
// specify one.
const DefaultMaxLength = 200

const systemPromptFormat = "You are a specialized summarization assistant for Quranic content and Islamic texts. Summarize the following content in about %d words or less%s. Maintain the key theological points and spiritual essence while being concise."

// Request is the summarizer's typed request. Parameters-bag keys override the
// struct fields at entry.
type Request struct {
	agent.Request `mapstructure:",squash"`

	Content     string   `mapstructure:"content"`
	MaxLength   int      `mapstructure:"max_length"`
	Focus       string   `mapstructure:"focus"`
	Model       string   `mapstructure:"model"`
	Temperature *float64 `mapstructure:"temperature"`
}

// Result is a generated summary with its word counts.
type Result struct {
	Summary        string `json:"summary"`
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
}

// ProviderFactory builds a summarization provider from config. Swappable in
// tests.
type ProviderFactory func(cfg *config.LLMConfig) (llms.Provider, error)

// Config configures the summarizer agent.
type Config struct {
	LLM *config.LLMConfig

	// Factory defaults to llms.NewFromConfig.
	Factory ProviderFactory
}

// Agent summarizes content through the generation backend. The provider is
// cached and rebuilt only when a request's model overrides differ from the
// cached configuration.
type Agent struct {
	factory ProviderFactory

	mu       sync.Mutex
	cfg      config.LLMConfig
	provider llms.Provider
}

// New creates a summarizer agent, eagerly constructing the default provider.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, agent.NewConfigurationError("SummarizerAgent", "LLM configuration is required", nil)
	}

	factory := cfg.Factory
	if factory == nil {
		factory = llms.NewFromConfig
	}

	a := &Agent{factory: factory, cfg: *cfg.LLM}
	if err := a.initProvider(); err != nil {
		return nil, agent.NewConfigurationError("SummarizerAgent", "failed to initialize provider", err)
	}
	return a, nil
}

// initProvider (re)builds the provider from the cached config. Caller holds
// a.mu or is the constructor.
func (a *Agent) initProvider() error {
	provider, err := a.factory(&a.cfg)
	if err != nil {
		return err
	}
	if a.provider != nil {
		_ = a.provider.Close()
	}
	a.provider = provider
	return nil
}

// Capabilities reports the agent's static capability tags.
func (a *Agent) Capabilities() []string {
	return []string{"content_summarization", "length_controlled_summarization", "focused_summarization"}
}

// Process handles one summarization request. The text to summarize comes from
// the "content" parameter.
func (a *Agent) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	typed := Request{Request: *req}
	if err := agent.ResolveParams(req.Parameters, &typed); err != nil {
		return nil, err
	}

	if strings.TrimSpace(typed.Content) == "" {
		return nil, agent.NewValidationError("content", "content is required")
	}

	if err := a.applyOverrides(typed); err != nil {
		return nil, err
	}

	result, err := a.Summarize(ctx, typed.Content, typed.MaxLength, typed.Focus)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"original_length": result.OriginalLength,
		"summary_length":  result.SummaryLength,
		"model":           a.modelName(),
	}
	if typed.Focus != "" {
		metadata["focus"] = typed.Focus
	}

	return &agent.Response{
		Content:  result.Summary,
		Metadata: metadata,
	}, nil
}

// applyOverrides reinitializes the provider when the request's model
// parameters differ from the cached configuration.
func (a *Agent) applyOverrides(req Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.cfg
	if req.Model != "" {
		next.Model = req.Model
	}
	if req.Temperature != nil {
		next.Temperature = *req.Temperature
	}
	if next == a.cfg {
		return nil
	}

	slog.Info("Reinitializing summarization provider",
		"model", next.Model,
		"temperature", next.Temperature)
	a.cfg = next
	return a.initProvider()
}

// Summarize condenses content to roughly maxLength words, optionally steering
// the summary toward a focus such as "historical context". Backend failures
// surface as errors; there is no degraded tier.
func (a *Agent) Summarize(ctx context.Context, content string, maxLength int, focus string) (Result, error) {
	ctx, span := otel.Tracer("mufassir/summarizer").Start(ctx, "summarizer.Summarize")
	defer span.End()

	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	focusInstruction := ""
	if focus != "" {
		focusInstruction = " with a focus on " + focus
	}

	a.mu.Lock()
	provider := a.provider
	a.mu.Unlock()

	summary, err := provider.Chat(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: fmt.Sprintf(systemPromptFormat, maxLength, focusInstruction)},
		{Role: llms.RoleUser, Content: content},
	})
	if err != nil {
		return Result{}, agent.NewGenerationError("summarize", err)
	}

	return Result{
		Summary:        summary,
		OriginalLength: wordCount(content),
		SummaryLength:  wordCount(summary),
	}, nil
}

func (a *Agent) modelName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.provider.ModelName()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

var _ agent.Agent = (*Agent)(nil)
