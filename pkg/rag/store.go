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

// Package rag adapts an embedder and a vector index into the evidence
// retrieval capability the retriever agent consumes.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/semaphore"

	"github.com/mufassir-ai/mufassir/pkg/embedder"
	"github.com/mufassir-ai/mufassir/pkg/vector"
)

// ChunkMetadata is the provenance of one evidence chunk.
type ChunkMetadata struct {
	// Source is the corpus identifier ("quran") or a "tafsir_<name>" tag.
	Source string `json:"source"`

	// Reference is the structural citation key, e.g. "2:255".
	Reference string `json:"reference"`

	SurahNum int `json:"surah_num,omitempty"`
	VerseNum int `json:"verse_num,omitempty"`
}

// EvidenceChunk is one retrievable unit of source text plus its provenance.
// Chunks are created per retrieval call and never mutated or persisted.
type EvidenceChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float32       `json:"-"`
}

// Key returns the (source, reference) deduplication key.
func (c EvidenceChunk) Key() string {
	return c.Metadata.Source + ":" + c.Metadata.Reference
}

// DocumentStore wraps a vector index and its parallel metadata payloads:
// given a query it embeds, searches, and returns scored evidence chunks in
// descending similarity order.
type DocumentStore struct {
	embedder   embedder.Embedder
	provider   vector.Provider
	collection string

	// sem bounds concurrent index work so a burst of requests cannot
	// saturate the provider connection.
	sem *semaphore.Weighted
}

// StoreConfig configures a DocumentStore.
type StoreConfig struct {
	Embedder   embedder.Embedder
	Provider   vector.Provider
	Collection string

	// MaxConcurrentSearches bounds parallel vector searches (default 8).
	MaxConcurrentSearches int
}

// NewDocumentStore creates a document store adapter.
func NewDocumentStore(cfg StoreConfig) (*DocumentStore, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("vector provider is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	maxConcurrent := cfg.MaxConcurrentSearches
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	return &DocumentStore{
		embedder:   cfg.Embedder,
		provider:   cfg.Provider,
		collection: cfg.Collection,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
	}, nil
}

// Collection returns the collection name.
func (s *DocumentStore) Collection() string { return s.collection }

// Retrieve embeds the query and returns up to limit scored chunks in the
// order the index returned them (descending relevance).
func (s *DocumentStore) Retrieve(ctx context.Context, query string, limit int) ([]EvidenceChunk, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	results, err := s.provider.Search(ctx, s.collection, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]EvidenceChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, chunkFromResult(r))
	}

	slog.Debug("Retrieved evidence chunks",
		"collection", s.collection,
		"requested", limit,
		"returned", len(chunks))
	return chunks, nil
}

// chunkFromResult maps an index hit's payload onto chunk metadata. Providers
// may hand metadata back as strings (chromem) or native types (qdrant).
func chunkFromResult(r vector.Result) EvidenceChunk {
	meta := ChunkMetadata{
		Source:    metaString(r.Metadata, "source"),
		Reference: metaString(r.Metadata, "reference"),
		SurahNum:  metaInt(r.Metadata, "surah_num"),
		VerseNum:  metaInt(r.Metadata, "verse_num"),
	}
	if meta.Source == "" {
		meta.Source = "unknown"
	}

	content := r.Content
	if content == "" {
		content = metaString(r.Metadata, "content")
	}

	return EvidenceChunk{Content: content, Metadata: meta, Score: r.Score}
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
