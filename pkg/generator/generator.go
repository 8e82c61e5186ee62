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

// Package generator implements the answer generation agent: a two-tier
// fallback over the model backends that degrades to a fixed apology rather
// than surfacing backend errors to callers.
package generator

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

// SystemPrompt is the fixed scholarly instruction prepended to every
// generation request.
const SystemPrompt = `You are a knowledgeable Islamic scholar assistant. Answer questions about the Quran using only the provided context. Cite the sources you use in the form given in the context, such as [Quran 2:255] or [Tafsir Ibn Kathir 2:255]. If the context does not contain enough information to answer, say so honestly rather than speculating.`

// ApologyMessage is the degraded answer returned when every generation tier
// has failed. Sources are still reported alongside it.
const ApologyMessage = "I encountered an error processing your query. Please try again or rephrase your question."

const humanTemplate = `Context:
{context}

Question: {question}`

// contextTokenBudget caps the prompt context. Contexts over budget are
// truncated at a paragraph boundary.
const contextTokenBudget = 6000

// Source is one citation parsed back out of a formatted context block,
// including the block's text.
type Source struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
	Content   string `json:"content"`
}

// Request is the generator's typed request. Model overrides in the
// parameters bag trigger a provider reinitialization when they differ from
// the cached configuration.
type Request struct {
	agent.Request `mapstructure:",squash"`

	Context     string   `mapstructure:"context"`
	Model       string   `mapstructure:"model"`
	Temperature *float64 `mapstructure:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
}

// Result is a generated answer plus the citations backing it.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// ProviderFactory builds a generation provider from config. Swappable in
// tests.
type ProviderFactory func(cfg *config.LLMConfig) (llms.Provider, error)

// Config configures the generator agent.
type Config struct {
	LLM *config.LLMConfig

	// Factory defaults to llms.NewFromConfig.
	Factory ProviderFactory
}

// Agent generates answers over retrieved context. The provider is cached and
// rebuilt only when a request's model overrides differ from the cached
// configuration.
type Agent struct {
	factory ProviderFactory

	mu       sync.Mutex
	cfg      config.LLMConfig
	provider llms.Provider
	chain    *llms.PromptChain
}

// New creates a generator agent, eagerly constructing the default provider.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, agent.NewConfigurationError("GeneratorAgent", "LLM configuration is required", nil)
	}

	factory := cfg.Factory
	if factory == nil {
		factory = llms.NewFromConfig
	}

	a := &Agent{factory: factory, cfg: *cfg.LLM}
	if err := a.initProvider(); err != nil {
		return nil, agent.NewConfigurationError("GeneratorAgent", "failed to initialize provider", err)
	}
	return a, nil
}

// initProvider (re)builds the provider and chain from the cached config.
// Caller holds a.mu or is the constructor.
func (a *Agent) initProvider() error {
	provider, err := a.factory(&a.cfg)
	if err != nil {
		return err
	}
	if a.provider != nil {
		_ = a.provider.Close()
	}
	a.provider = provider
	a.chain = llms.NewPromptChain(&llms.ProviderRunner{Provider: provider}, SystemPrompt, humanTemplate)
	return nil
}

// Capabilities reports the agent's static capability tags.
func (a *Agent) Capabilities() []string {
	return []string{"answer_generation", "source_citation"}
}

// Process handles one generation request. The context to answer over comes
// from the "context" parameter; the query is the question.
func (a *Agent) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	typed := Request{Request: *req}
	if err := agent.ResolveParams(req.Parameters, &typed); err != nil {
		return nil, err
	}

	if err := a.applyOverrides(typed); err != nil {
		return nil, err
	}

	result := a.Generate(ctx, typed.Query, typed.Context)
	return &agent.Response{
		Content: result.Answer,
		Metadata: map[string]any{
			"sources": result.Sources,
			"model":   a.modelName(),
		},
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
	if req.MaxTokens != nil {
		next.MaxTokens = *req.MaxTokens
	}
	if next == a.cfg {
		return nil
	}

	slog.Info("Reinitializing generation provider",
		"model", next.Model,
		"temperature", next.Temperature)
	a.cfg = next
	return a.initProvider()
}

// Generate produces an answer from the query and formatted context. It never
// returns an error: tier 1 (direct chat) demotes to tier 2 (prompt chain),
// and a double failure degrades to the apology message. Sources parsed from
// the context are preserved in every case.
func (a *Agent) Generate(ctx context.Context, query, contextText string) Result {
	ctx, span := otel.Tracer("mufassir/generator").Start(ctx, "generator.Generate")
	defer span.End()

	sources := ParseSources(contextText)
	contextText = a.fitBudget(contextText)

	a.mu.Lock()
	provider := a.provider
	chain := a.chain
	a.mu.Unlock()

	answer, err := provider.Chat(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: SystemPrompt},
		{Role: llms.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, query)},
	})
	if err == nil {
		return Result{Answer: answer, Sources: sources}
	}
	slog.Warn("Direct generation failed, falling back to prompt chain", "error", err)

	answer, chainErr := chain.Run(ctx, map[string]string{
		"context":  contextText,
		"question": query,
	})
	if chainErr == nil {
		return Result{Answer: answer, Sources: sources}
	}

	genErr := agent.NewGenerationError("chain", chainErr)
	slog.Error("All generation tiers failed", "error", genErr)
	return Result{Answer: ApologyMessage, Sources: sources}
}

// fitBudget truncates an over-budget context at a paragraph boundary.
func (a *Agent) fitBudget(contextText string) string {
	model := a.modelName()
	tokens := llms.CountTokens(model, contextText)
	if tokens <= contextTokenBudget {
		return contextText
	}

	paragraphs := strings.Split(contextText, "\n\n")
	kept := make([]string, 0, len(paragraphs))
	used := 0
	for _, p := range paragraphs {
		n := llms.CountTokens(model, p)
		if used+n > contextTokenBudget && len(kept) > 0 {
			break
		}
		kept = append(kept, p)
		used += n
	}

	slog.Warn("Context over token budget, truncated",
		"tokens", tokens,
		"budget", contextTokenBudget,
		"paragraphs_kept", len(kept),
		"paragraphs_total", len(paragraphs))
	return strings.Join(kept, "\n\n")
}

func (a *Agent) modelName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.provider.ModelName()
}

// ParseSources recovers citations from a formatted context: each block
// opening with "[<label> <reference>]:" yields one source carrying the text
// after the marker. The bracket content splits at its last space, so
// multi-word labels like "Tafsir Ibn Kathir" round-trip.
func ParseSources(contextText string) []Source {
	var sources []Source
	for _, block := range strings.Split(contextText, "\n\n") {
		block = strings.TrimSpace(block)
		if !strings.HasPrefix(block, "[") {
			continue
		}
		end := strings.Index(block, "]:")
		if end < 0 {
			continue
		}
		inner := block[1:end]
		cut := strings.LastIndex(inner, " ")
		if cut < 0 {
			continue
		}
		sources = append(sources, Source{
			Source:    inner[:cut],
			Reference: inner[cut+1:],
			Content:   strings.TrimSpace(block[end+2:]),
		})
	}
	return sources
}

var _ agent.Agent = (*Agent)(nil)
