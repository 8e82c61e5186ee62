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

package main

import (
	"errors"
	"fmt"

	"github.com/mufassir-ai/mufassir/pkg/config"
	"github.com/mufassir-ai/mufassir/pkg/embedder"
	"github.com/mufassir-ai/mufassir/pkg/generator"
	"github.com/mufassir-ai/mufassir/pkg/llms"
	"github.com/mufassir-ai/mufassir/pkg/lookup"
	"github.com/mufassir-ai/mufassir/pkg/orchestrator"
	"github.com/mufassir-ai/mufassir/pkg/rag"
	"github.com/mufassir-ai/mufassir/pkg/retriever"
	"github.com/mufassir-ai/mufassir/pkg/summarizer"
	"github.com/mufassir-ai/mufassir/pkg/toolserver"
	"github.com/mufassir-ai/mufassir/pkg/vector"
)

// Pipeline is the fully wired agent stack shared by all commands.
type Pipeline struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	ToolServers  []*toolserver.Server

	serversByAlias map[string]*toolserver.Server

	embedder embedder.Embedder
	provider vector.Provider
	llm      llms.Provider
}

// buildPipeline loads config and constructs every agent. Construction
// failures are fatal.
func buildPipeline(configPath string) (*Pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromConfig(&cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	provider, err := vector.NewFromConfig(&cfg.Vector)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector provider: %w", err)
	}

	store, err := rag.NewDocumentStore(rag.StoreConfig{
		Embedder:              emb,
		Provider:              provider,
		Collection:            cfg.Corpus.Collection,
		MaxConcurrentSearches: cfg.Corpus.MaxConcurrentSearches,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document store: %w", err)
	}

	llm, err := llms.NewFromConfig(&cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	retrieverAgent, err := retriever.New(retriever.Config{Store: store, Compressor: llm})
	if err != nil {
		return nil, err
	}

	generatorAgent, err := generator.New(generator.Config{LLM: &cfg.LLM})
	if err != nil {
		return nil, err
	}

	summarizerAgent, err := summarizer.New(summarizer.Config{LLM: &cfg.LLM})
	if err != nil {
		return nil, err
	}

	tafsirAgent, err := lookup.NewTafsirAgent(cfg.Data.TafsirsDir)
	if err != nil {
		return nil, err
	}

	translationAgent, err := lookup.NewTranslationAgent(lookup.TranslationAgentConfig{
		QuranPath:          cfg.Data.QuranPath,
		TranslationsDir:    cfg.Data.TranslationsDir,
		DefaultTranslation: cfg.Data.DefaultTranslation,
	})
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Retriever: retrieverAgent,
		Generator: generatorAgent,
		Tafsir:    tafsirAgent,
	})
	if err != nil {
		return nil, err
	}

	version := buildVersion()
	byAlias := map[string]*toolserver.Server{
		"retriever":   toolserver.NewRetrieverServer(retrieverAgent, version),
		"generator":   toolserver.NewGeneratorServer(generatorAgent, version),
		"summarizer":  toolserver.NewSummarizerServer(summarizerAgent, version),
		"tafsir":      toolserver.NewTafsirServer(tafsirAgent, version),
		"translation": toolserver.NewTranslationServer(translationAgent, version),
	}

	return &Pipeline{
		Config:       cfg,
		Orchestrator: orch,
		ToolServers: []*toolserver.Server{
			byAlias["retriever"],
			byAlias["generator"],
			byAlias["summarizer"],
			byAlias["tafsir"],
			byAlias["translation"],
		},
		serversByAlias: byAlias,
		embedder:       emb,
		provider:       provider,
		llm:            llm,
	}, nil
}

// ServerFor returns the tool server for an agent alias.
func (p *Pipeline) ServerFor(alias string) (*toolserver.Server, bool) {
	s, ok := p.serversByAlias[alias]
	return s, ok
}

// Close releases every backend the pipeline holds.
func (p *Pipeline) Close() error {
	return errors.Join(
		p.embedder.Close(),
		p.provider.Close(),
		p.llm.Close(),
	)
}
