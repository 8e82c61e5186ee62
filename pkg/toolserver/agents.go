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

package toolserver

import (
	"context"

	"github.com/mufassir-ai/mufassir/pkg/agent"
	"github.com/mufassir-ai/mufassir/pkg/lookup"
	"github.com/mufassir-ai/mufassir/pkg/summarizer"
)

type retrieveParams struct {
	Query          string `json:"query" jsonschema:"required,description=The question to retrieve evidence for"`
	K              int    `json:"k,omitempty" jsonschema:"description=Number of results to return"`
	UseCompression *bool  `json:"use_compression,omitempty" jsonschema:"description=Compress chunks to their query-relevant parts"`
	SurahFilter    *int   `json:"surah_filter,omitempty" jsonschema:"description=Restrict results to one surah"`
	VerseFilter    *int   `json:"verse_filter,omitempty" jsonschema:"description=Restrict results to one verse"`
}

type generateParams struct {
	Query   string `json:"query" jsonschema:"required,description=The question to answer"`
	Context string `json:"context" jsonschema:"required,description=Formatted evidence context to answer from"`
	Model   string `json:"model,omitempty" jsonschema:"description=Override the generation model"`
}

type tafsirParams struct {
	Surah      int    `json:"surah" jsonschema:"required,description=Surah number (1-114)"`
	Verse      int    `json:"verse" jsonschema:"required,description=Verse number"`
	TafsirName string `json:"tafsir_name,omitempty" jsonschema:"description=Tafsir source id; defaults to the first available"`
}

type summarizeParams struct {
	Content     string   `json:"content" jsonschema:"required,description=The content to summarize"`
	MaxLength   int      `json:"max_length,omitempty" jsonschema:"description=Maximum summary length in words"`
	Focus       string   `json:"focus,omitempty" jsonschema:"description=Optional focus for the summary (e.g. 'historical context')"`
	Model       string   `json:"model,omitempty" jsonschema:"description=Override the summarization model"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"description=Sampling temperature"`
}

type translateParams struct {
	Surah           int    `json:"surah" jsonschema:"required,description=Surah number (1-114)"`
	Verse           int    `json:"verse" jsonschema:"required,description=Verse number or start of range"`
	EndVerse        *int   `json:"end_verse,omitempty" jsonschema:"description=End of verse range"`
	TranslationName string `json:"translation_name,omitempty" jsonschema:"description=Translation id"`
}

// processHandler adapts an agent's Process call into a tool handler: the
// whole parameter map becomes the override bag and the response comes back
// as {content, metadata}.
func processHandler(a agent.Agent) HandlerFunc {
	return func(ctx context.Context, params map[string]any) (any, error) {
		query, _ := params["query"].(string)
		resp, err := a.Process(ctx, &agent.Request{Query: query, Parameters: params})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"content":  resp.Content,
			"metadata": resp.Metadata,
		}, nil
	}
}

// NewRetrieverServer wraps the retrieval agent as a tool server.
func NewRetrieverServer(a agent.Agent, version string) *Server {
	s := NewServer("retriever-agent", version, "Retrieves relevant Quran and tafsir passages for a question")
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "retrieve_context",
		Description: "Retrieves relevant passages and returns them as formatted, cited context",
		Schema:      mustSchemaFor(&retrieveParams{}),
		Handler:     processHandler(a),
	})
	return s
}

// NewGeneratorServer wraps the generation agent as a tool server.
func NewGeneratorServer(a agent.Agent, version string) *Server {
	s := NewServer("generator-agent", version, "Generates cited answers from retrieved context")
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "generate_answer",
		Description: "Generates an answer to a question from the provided context",
		Schema:      mustSchemaFor(&generateParams{}),
		Handler:     processHandler(a),
	})
	return s
}

// summarizerModels is the model catalog reported by list_models. Any
// OpenAI-compatible model id works; these are the tested defaults.
var summarizerModels = []map[string]string{
	{"id": "gpt-4o-mini", "name": "GPT-4o Mini", "description": "Fast and cost-effective model for most summaries"},
	{"id": "gpt-4o", "name": "GPT-4o", "description": "More capable model for complex content"},
}

// NewSummarizerServer wraps the summarization agent as a tool server.
func NewSummarizerServer(a *summarizer.Agent, version string) *Server {
	s := NewServer("quran-summarizer", version, "Summarizes Quranic passages or tafsirs with customizable length and focus")
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "summarize_content",
		Description: "Summarizes Quranic content or tafsir explanations",
		Schema:      mustSchemaFor(&summarizeParams{}),
		Handler:     processHandler(a),
	})
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "list_models",
		Description: "Lists the available summarization models",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return map[string]any{"models": summarizerModels}, nil
		},
	})
	return s
}

// NewTafsirServer wraps the tafsir lookup agent as a tool server.
func NewTafsirServer(a *lookup.TafsirAgent, version string) *Server {
	s := NewServer("tafsir-tool", version, "Provides direct lookup of tafsir explanations for specific Quranic verses")
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "lookup_tafsir",
		Description: "Looks up the tafsir commentary for a specific verse",
		Schema:      mustSchemaFor(&tafsirParams{}),
		Handler:     processHandler(a),
	})
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "list_tafsirs",
		Description: "Lists the available tafsir source ids",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return a.AvailableTafsirs(), nil
		},
	})
	return s
}

// NewTranslationServer wraps the translation agent as a tool server.
func NewTranslationServer(a *lookup.TranslationAgent, version string) *Server {
	s := NewServer("quran-translation", version, "Provides translations of Quranic verses in different languages")
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "translate_verse",
		Description: "Translates a verse or verse range with its Arabic text and reference",
		Schema:      mustSchemaFor(&translateParams{}),
		Handler:     processHandler(a),
	})
	_ = s.RegisterTool(&ToolDefinition{
		Name:        "list_translations",
		Description: "Lists the available translation ids and display names",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return a.AvailableTranslations(), nil
		},
	})
	return s
}
