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

// Package retriever implements the retrieval agent: semantic search over the
// corpus index with metadata filtering, optional contextual compression,
// deduplication and citation-formatted context assembly.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mufassir-ai/mufassir/pkg/agent"
	"github.com/mufassir-ai/mufassir/pkg/llms"
	"github.com/mufassir-ai/mufassir/pkg/rag"
)

const (
	// DefaultK is the number of results returned when the request does not
	// specify one.
	DefaultK = 5

	// overFetchFactor widens the index query so that post-hoc filtering and
	// deduplication still leave k survivors.
	overFetchFactor = 3

	// NoResultsMessage is the formatted context for an empty result set.
	NoResultsMessage = "No relevant information found."
)

// compressionPrompt asks the model to extract only the query-relevant parts
// of a chunk. NO_OUTPUT marks a chunk with nothing relevant; the original
// content is kept in that case rather than dropping the chunk.
const compressionPrompt = `Given the following question and context, extract any part of the context that is relevant to answering the question. If none of the context is relevant, return NO_OUTPUT.

Question: %s

Context: %s`

// Store is the evidence retrieval capability the agent depends on.
type Store interface {
	Retrieve(ctx context.Context, query string, limit int) ([]rag.EvidenceChunk, error)
}

// Filter restricts results by structural metadata. Nil fields mean no
// restriction; set fields are ANDed.
type Filter struct {
	Surah *int
	Verse *int
}

func (f Filter) matches(c rag.EvidenceChunk) bool {
	if f.Surah != nil && c.Metadata.SurahNum != *f.Surah {
		return false
	}
	if f.Verse != nil && c.Metadata.VerseNum != *f.Verse {
		return false
	}
	return true
}

// Request is the retriever's typed request. Parameters-bag keys override the
// struct fields at entry.
type Request struct {
	agent.Request `mapstructure:",squash"`

	K              int   `mapstructure:"k"`
	UseCompression *bool `mapstructure:"use_compression"`
	SurahFilter    *int  `mapstructure:"surah_filter"`
	VerseFilter    *int  `mapstructure:"verse_filter"`
}

// Config configures the retriever agent.
type Config struct {
	Store Store

	// Compressor, when set, enables LLM contextual compression of each
	// retrieved chunk. Compression failures are absorbed: the original
	// chunks are used unchanged.
	Compressor llms.Provider

	// K is the default result count (DefaultK when zero).
	K int
}

// Agent retrieves, filters, compresses, deduplicates and formats evidence.
// Safe for concurrent Process calls; filters are per-call arguments, never
// agent state.
type Agent struct {
	store      Store
	compressor llms.Provider
	k          int
}

// New creates a retriever agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Store == nil {
		return nil, agent.NewConfigurationError("RetrieverAgent", "document store is required", nil)
	}

	k := cfg.K
	if k <= 0 {
		k = DefaultK
	}

	return &Agent{
		store:      cfg.Store,
		compressor: cfg.Compressor,
		k:          k,
	}, nil
}

// Capabilities reports the agent's static capability tags.
func (a *Agent) Capabilities() []string {
	return []string{"semantic_search", "metadata_filtering", "context_retrieval"}
}

// Process handles one retrieval request: resolve overrides, retrieve, and
// respond with the formatted context plus the deduplicated chunks.
func (a *Agent) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	typed := Request{Request: *req, K: a.k}
	if err := agent.ResolveParams(req.Parameters, &typed); err != nil {
		return nil, err
	}

	useCompression := true
	if typed.UseCompression != nil {
		useCompression = *typed.UseCompression
	}

	filter := Filter{Surah: typed.SurahFilter, Verse: typed.VerseFilter}
	chunks, err := a.Retrieve(ctx, typed.Query, typed.K, useCompression, filter)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"query":       typed.Query,
		"num_results": len(chunks),
		"documents":   chunks,
	}
	if filter.Surah != nil {
		metadata["surah_filter"] = *filter.Surah
	}
	if filter.Verse != nil {
		metadata["verse_filter"] = *filter.Verse
	}

	return &agent.Response{
		Content:  FormatContext(chunks),
		Metadata: metadata,
	}, nil
}

// Retrieve runs the full pipeline: over-fetch, filter, optionally compress,
// deduplicate preserving index order, truncate to k.
func (a *Agent) Retrieve(ctx context.Context, query string, k int, useCompression bool, filter Filter) ([]rag.EvidenceChunk, error) {
	if k <= 0 {
		k = a.k
	}

	ctx, span := otel.Tracer("mufassir/retriever").Start(ctx, "retriever.Retrieve",
		trace.WithAttributes(attribute.Int("retriever.k", k)))
	defer span.End()

	chunks, err := a.store.Retrieve(ctx, query, k*overFetchFactor)
	if err != nil {
		return nil, agent.NewRetrievalError("search", err)
	}

	filtered := make([]rag.EvidenceChunk, 0, len(chunks))
	for _, c := range chunks {
		if filter.matches(c) {
			filtered = append(filtered, c)
		}
	}

	if useCompression && a.compressor != nil {
		filtered = a.compress(ctx, query, filtered)
	}

	deduped := dedupe(filtered)
	if len(deduped) > k {
		deduped = deduped[:k]
	}

	slog.Debug("Retrieval complete",
		"query_len", len(query),
		"fetched", len(chunks),
		"returned", len(deduped))
	return deduped, nil
}

// compress shrinks each chunk to its query-relevant parts. Fail-open: any
// model error discards all extractions and returns every chunk unchanged,
// and an empty or NO_OUTPUT extraction keeps the original content.
// Compression never drops a chunk.
func (a *Agent) compress(ctx context.Context, query string, chunks []rag.EvidenceChunk) []rag.EvidenceChunk {
	compressed := make([]rag.EvidenceChunk, len(chunks))
	copy(compressed, chunks)

	for i := range compressed {
		extracted, err := a.compressor.Chat(ctx, []llms.Message{
			{Role: llms.RoleUser, Content: fmt.Sprintf(compressionPrompt, query, compressed[i].Content)},
		})
		if err != nil {
			slog.Warn("Contextual compression failed, using uncompressed chunks", "error", err)
			return chunks
		}

		extracted = strings.TrimSpace(extracted)
		if extracted == "" || extracted == "NO_OUTPUT" {
			continue
		}
		compressed[i].Content = extracted
	}
	return compressed
}

// dedupe removes duplicate (source, reference) chunks, keeping the first
// occurrence and preserving order.
func dedupe(chunks []rag.EvidenceChunk) []rag.EvidenceChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]rag.EvidenceChunk, 0, len(chunks))
	for _, c := range chunks {
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// FormatContext renders chunks as "[<Label> <reference>]: <content>" blocks
// joined by blank lines, or NoResultsMessage when empty.
func FormatContext(chunks []rag.EvidenceChunk) string {
	if len(chunks) == 0 {
		return NoResultsMessage
	}

	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, fmt.Sprintf("[%s %s]: %s",
			labelFor(c.Metadata.Source), c.Metadata.Reference, c.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// labelFor maps a source tag to its display label: "quran" -> "Quran",
// "tafsir_ibn_kathir" -> "Tafsir Ibn Kathir", anything else verbatim.
func labelFor(source string) string {
	switch {
	case source == "quran":
		return "Quran"
	case strings.HasPrefix(source, "tafsir_"):
		return "Tafsir " + titleCase(strings.TrimPrefix(source, "tafsir_"))
	default:
		return source
	}
}

func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var _ agent.Agent = (*Agent)(nil)
