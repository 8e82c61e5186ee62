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

// Package orchestrator coordinates the retrieval, generation and tool agents
// into the end-to-end query pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mufassir-ai/mufassir/pkg/agent"
	"github.com/mufassir-ai/mufassir/pkg/generator"
	"github.com/mufassir-ai/mufassir/pkg/lookup"
	"github.com/mufassir-ai/mufassir/pkg/rag"
	"github.com/mufassir-ai/mufassir/pkg/retriever"
)

// Retriever is the evidence retrieval step.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, useCompression bool, filter retriever.Filter) ([]rag.EvidenceChunk, error)
}

// Generator is the answer generation step. It never fails; double backend
// failure degrades to an apology answer.
type Generator interface {
	Generate(ctx context.Context, query, contextText string) generator.Result
}

// TafsirLookup is the optional direct-lookup step.
type TafsirLookup interface {
	Lookup(name string, surah, verse int) lookup.TafsirResult
	DefaultSource() string
}

// QueryRequest is one end-user question with optional structural filters.
type QueryRequest struct {
	Query           string `json:"query"`
	SurahFilter     *int   `json:"surah_filter,omitempty"`
	VerseFilter     *int   `json:"verse_filter,omitempty"`
	K               int    `json:"k,omitempty"`
	UseCompression  *bool  `json:"use_compression,omitempty"`
	UseDirectTafsir bool   `json:"use_direct_tafsir,omitempty"`
	TafsirName      string `json:"tafsir_name,omitempty"`
	Model           string `json:"model,omitempty"`
}

// Source is one evidence entry in a query response.
type Source struct {
	SourceType string `json:"source_type"`
	Reference  string `json:"reference"`
	Content    string `json:"content"`
}

// DirectTafsir is the result of the optional direct-lookup step.
type DirectTafsir struct {
	TafsirName string `json:"tafsir_name"`
	Surah      int    `json:"surah"`
	Verse      int    `json:"verse"`
	Text       string `json:"text"`
}

// QueryResponse is the merged pipeline output. Sources from the direct
// lookup and the retrieval step are concatenated without cross-list
// deduplication; each list is individually duplicate-free.
type QueryResponse struct {
	Answer         string         `json:"answer"`
	Sources        []Source       `json:"sources"`
	FiltersApplied map[string]any `json:"filters_applied"`
	DirectTafsir   *DirectTafsir  `json:"direct_tafsir,omitempty"`
}

// Orchestrator runs the sequential query pipeline: filters, optional direct
// tafsir, retrieval (the only hard failure), generation, merge.
type Orchestrator struct {
	retriever Retriever
	generator Generator
	tafsir    TafsirLookup
}

// Config configures an Orchestrator. Tafsir is optional; without it the
// direct-lookup step is skipped.
type Config struct {
	Retriever Retriever
	Generator Generator
	Tafsir    TafsirLookup
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Retriever == nil {
		return nil, agent.NewConfigurationError("Orchestrator", "retriever is required", nil)
	}
	if cfg.Generator == nil {
		return nil, agent.NewConfigurationError("Orchestrator", "generator is required", nil)
	}
	return &Orchestrator{
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		tafsir:    cfg.Tafsir,
	}, nil
}

// ProcessQuery runs one question through the pipeline.
func (o *Orchestrator) ProcessQuery(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	requestID := uuid.NewString()
	ctx, span := otel.Tracer("mufassir/orchestrator").Start(ctx, "orchestrator.ProcessQuery",
		trace.WithAttributes(attribute.String("request.id", requestID)))
	defer span.End()

	queriesTotal.Inc()
	logger := slog.With("request_id", requestID)
	logger.Info("Processing query", "query_len", len(req.Query))

	filtersApplied := map[string]any{}
	if req.SurahFilter != nil {
		filtersApplied["surah_filter"] = *req.SurahFilter
	}
	if req.VerseFilter != nil {
		filtersApplied["verse_filter"] = *req.VerseFilter
	}

	var sources []Source
	directTafsir := o.directLookup(req, logger)
	if directTafsir != nil {
		sources = append(sources, Source{
			SourceType: "tafsir",
			Reference:  fmt.Sprintf("%d:%d", directTafsir.Surah, directTafsir.Verse),
			Content:    directTafsir.Text,
		})
	}

	k := req.K
	if k <= 0 {
		k = retriever.DefaultK
	}
	useCompression := true
	if req.UseCompression != nil {
		useCompression = *req.UseCompression
	}

	chunks, err := o.retriever.Retrieve(ctx, req.Query, k, useCompression,
		retriever.Filter{Surah: req.SurahFilter, Verse: req.VerseFilter})
	if err != nil {
		failuresTotal.WithLabelValues("retrieval").Inc()
		logger.Error("Retrieval failed", "error", err)
		return nil, err
	}

	for _, c := range chunks {
		sources = append(sources, Source{
			SourceType: c.Metadata.Source,
			Reference:  c.Metadata.Reference,
			Content:    c.Content,
		})
	}

	// Generation sees only the retriever's formatted context; direct
	// lookups surface as sources, never as prompt material.
	result := o.generator.Generate(ctx, req.Query, retriever.FormatContext(chunks))
	if result.Answer == generator.ApologyMessage {
		failuresTotal.WithLabelValues("generation").Inc()
	}

	logger.Info("Query complete", "sources", len(sources))
	return &QueryResponse{
		Answer:         result.Answer,
		Sources:        sources,
		FiltersApplied: filtersApplied,
		DirectTafsir:   directTafsir,
	}, nil
}

// directLookup performs the optional tafsir lookup. It runs only when both
// filters and the flag are set, and its result is appended unconditionally.
func (o *Orchestrator) directLookup(req *QueryRequest, logger *slog.Logger) *DirectTafsir {
	if o.tafsir == nil || !req.UseDirectTafsir || req.SurahFilter == nil || req.VerseFilter == nil {
		return nil
	}

	name := req.TafsirName
	if name == "" {
		name = o.tafsir.DefaultSource()
	}
	if name == "" {
		logger.Warn("Direct tafsir requested but no tafsir sources are loaded")
		return nil
	}

	result := o.tafsir.Lookup(name, *req.SurahFilter, *req.VerseFilter)
	return &DirectTafsir{
		TafsirName: result.TafsirName,
		Surah:      result.Surah,
		Verse:      result.Verse,
		Text:       result.TafsirText,
	}
}
