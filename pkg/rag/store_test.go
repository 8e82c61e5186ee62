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

package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/mufassir-ai/mufassir/pkg/vector"
)

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) Dimension() int { return 3 }
func (e *fakeEmbedder) Model() string  { return "fake" }
func (e *fakeEmbedder) Close() error   { return nil }

type fakeProvider struct {
	results []vector.Result
	err     error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Upsert(ctx context.Context, collection string, id string, vec []float32, metadata map[string]any) error {
	return nil
}

func (p *fakeProvider) Search(ctx context.Context, collection string, vec []float32, limit int) ([]vector.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func (p *fakeProvider) SearchWithFilter(ctx context.Context, collection string, vec []float32, limit int, filter map[string]any) ([]vector.Result, error) {
	return p.Search(ctx, collection, vec, limit)
}

func (p *fakeProvider) Delete(ctx context.Context, collection string, id string) error { return nil }
func (p *fakeProvider) Close() error                                                   { return nil }

func newTestStore(t *testing.T, provider vector.Provider) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore(StoreConfig{
		Embedder:   &fakeEmbedder{},
		Provider:   provider,
		Collection: "quran",
	})
	if err != nil {
		t.Fatalf("NewDocumentStore() error = %v", err)
	}
	return store
}

func TestNewDocumentStoreValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  StoreConfig
	}{
		{"missing embedder", StoreConfig{Provider: &fakeProvider{}, Collection: "c"}},
		{"missing provider", StoreConfig{Embedder: &fakeEmbedder{}, Collection: "c"}},
		{"missing collection", StoreConfig{Embedder: &fakeEmbedder{}, Provider: &fakeProvider{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDocumentStore(tt.cfg); err == nil {
				t.Error("NewDocumentStore() error = nil, want error")
			}
		})
	}
}

func TestRetrieveMetadataMapping(t *testing.T) {
	provider := &fakeProvider{results: []vector.Result{
		{
			ID:      "1",
			Score:   0.92,
			Content: "the throne verse",
			Metadata: map[string]any{
				"source":    "quran",
				"reference": "2:255",
				"surah_num": 2,
				"verse_num": 255,
			},
		},
		{
			// chromem hands every metadata value back as a string.
			ID:    "2",
			Score: 0.81,
			Metadata: map[string]any{
				"source":    "tafsir_ibn_kathir",
				"reference": "2:255",
				"surah_num": "2",
				"verse_num": "255",
				"content":   "commentary text",
			},
		},
		{
			ID:       "3",
			Score:    0.5,
			Content:  "orphan chunk",
			Metadata: map[string]any{},
		},
	}}
	store := newTestStore(t, provider)

	chunks, err := store.Retrieve(context.Background(), "ayat al-kursi", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}

	if chunks[0].Metadata.SurahNum != 2 || chunks[0].Metadata.VerseNum != 255 {
		t.Errorf("chunks[0] metadata = %+v, want native ints mapped", chunks[0].Metadata)
	}
	if chunks[0].Key() != "quran:2:255" {
		t.Errorf("Key() = %q, want quran:2:255", chunks[0].Key())
	}

	if chunks[1].Metadata.SurahNum != 2 || chunks[1].Metadata.VerseNum != 255 {
		t.Errorf("chunks[1] metadata = %+v, want string ints parsed", chunks[1].Metadata)
	}
	if chunks[1].Content != "commentary text" {
		t.Errorf("chunks[1] content = %q, want fallback from metadata", chunks[1].Content)
	}

	if chunks[2].Metadata.Source != "unknown" {
		t.Errorf("chunks[2] source = %q, want unknown fallback", chunks[2].Metadata.Source)
	}
}

func TestRetrieveErrors(t *testing.T) {
	t.Run("embed failure", func(t *testing.T) {
		store, err := NewDocumentStore(StoreConfig{
			Embedder:   &fakeEmbedder{err: errors.New("model offline")},
			Provider:   &fakeProvider{},
			Collection: "quran",
		})
		if err != nil {
			t.Fatalf("NewDocumentStore() error = %v", err)
		}

		if _, err := store.Retrieve(context.Background(), "q", 5); err == nil {
			t.Error("Retrieve() error = nil, want embed failure")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		store := newTestStore(t, &fakeProvider{err: errors.New("index offline")})
		if _, err := store.Retrieve(context.Background(), "q", 5); err == nil {
			t.Error("Retrieve() error = nil, want search failure")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newTestStore(t, &fakeProvider{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := store.Retrieve(ctx, "q", 5); err == nil {
			t.Error("Retrieve() error = nil, want context cancellation")
		}
	})
}
