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

package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mufassir-ai/mufassir/pkg/agent"
	"github.com/mufassir-ai/mufassir/pkg/llms"
	"github.com/mufassir-ai/mufassir/pkg/rag"
)

type fakeStore struct {
	chunks    []rag.EvidenceChunk
	err       error
	lastLimit int
}

func (s *fakeStore) Retrieve(ctx context.Context, query string, limit int) ([]rag.EvidenceChunk, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

type fakeCompressor struct {
	responses []string
	err       error
	failAt    int // call number that errors; 0 means every call when err is set
	calls     int
}

func (c *fakeCompressor) Chat(ctx context.Context, messages []llms.Message) (string, error) {
	c.calls++
	if c.err != nil && (c.failAt == 0 || c.calls == c.failAt) {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", nil
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}

func (c *fakeCompressor) ModelName() string { return "fake" }
func (c *fakeCompressor) Close() error      { return nil }

func chunk(source, reference, content string, surah, verse int) rag.EvidenceChunk {
	return rag.EvidenceChunk{
		Content: content,
		Metadata: rag.ChunkMetadata{
			Source:    source,
			Reference: reference,
			SurahNum:  surah,
			VerseNum:  verse,
		},
	}
}

func TestRetrieveDeduplication(t *testing.T) {
	store := &fakeStore{chunks: []rag.EvidenceChunk{
		chunk("quran", "2:255", "first occurrence", 2, 255),
		chunk("quran", "2:256", "other verse", 2, 256),
		chunk("quran", "2:255", "duplicate, later and different content", 2, 255),
	}}

	a, err := New(Config{Store: store})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := a.Retrieve(context.Background(), "ayat al-kursi", 5, false, Filter{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(got))
	}
	if got[0].Content != "first occurrence" {
		t.Errorf("first chunk content = %q, want the first occurrence kept", got[0].Content)
	}
	if got[1].Metadata.Reference != "2:256" {
		t.Errorf("second chunk reference = %q, want 2:256 (order preserved)", got[1].Metadata.Reference)
	}
}

func TestRetrieveOverFetchAndTruncate(t *testing.T) {
	var chunks []rag.EvidenceChunk
	refs := []string{"1:1", "1:2", "1:3", "1:4", "1:5", "1:6", "1:7"}
	for _, ref := range refs {
		chunks = append(chunks, chunk("quran", ref, "verse "+ref, 1, 0))
	}
	store := &fakeStore{chunks: chunks}

	a, _ := New(Config{Store: store})
	got, err := a.Retrieve(context.Background(), "al-fatiha", 3, false, Filter{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if store.lastLimit != 9 {
		t.Errorf("index limit = %d, want 9 (3x over-fetch)", store.lastLimit)
	}
	if len(got) != 3 {
		t.Errorf("len(chunks) = %d, want 3", len(got))
	}
	for i, ref := range refs[:3] {
		if got[i].Metadata.Reference != ref {
			t.Errorf("chunk[%d] reference = %q, want %q (index order preserved)", i, got[i].Metadata.Reference, ref)
		}
	}
}

func TestRetrieveFilters(t *testing.T) {
	store := &fakeStore{chunks: []rag.EvidenceChunk{
		chunk("quran", "2:255", "matching", 2, 255),
		chunk("quran", "3:18", "wrong surah", 3, 18),
		chunk("quran", "2:1", "wrong verse", 2, 1),
	}}
	a, _ := New(Config{Store: store})

	surah, verse := 2, 255
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"2:255", "3:18", "2:1"}},
		{"surah only", Filter{Surah: &surah}, []string{"2:255", "2:1"}},
		{"surah and verse", Filter{Surah: &surah, Verse: &verse}, []string{"2:255"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Retrieve(context.Background(), "q", 5, false, tt.filter)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len(chunks) = %d, want %d", len(got), len(tt.want))
			}
			for i, ref := range tt.want {
				if got[i].Metadata.Reference != ref {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i].Metadata.Reference, ref)
				}
			}
		})
	}
}

func TestRetrieveCompression(t *testing.T) {
	t.Run("extracted content replaces original", func(t *testing.T) {
		store := &fakeStore{chunks: []rag.EvidenceChunk{
			chunk("quran", "2:255", "a long verse about the throne", 2, 255),
		}}
		comp := &fakeCompressor{responses: []string{"the throne"}}
		a, _ := New(Config{Store: store, Compressor: comp})

		got, err := a.Retrieve(context.Background(), "throne", 5, true, Filter{})
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if got[0].Content != "the throne" {
			t.Errorf("content = %q, want compressed extraction", got[0].Content)
		}
	})

	t.Run("NO_OUTPUT keeps original content", func(t *testing.T) {
		store := &fakeStore{chunks: []rag.EvidenceChunk{
			chunk("quran", "2:255", "original", 2, 255),
		}}
		comp := &fakeCompressor{responses: []string{"NO_OUTPUT"}}
		a, _ := New(Config{Store: store, Compressor: comp})

		got, _ := a.Retrieve(context.Background(), "q", 5, true, Filter{})
		if len(got) != 1 {
			t.Fatalf("len(chunks) = %d, want 1 (compression never drops chunks)", len(got))
		}
		if got[0].Content != "original" {
			t.Errorf("content = %q, want original kept", got[0].Content)
		}
	})

	t.Run("compression failure is absorbed", func(t *testing.T) {
		store := &fakeStore{chunks: []rag.EvidenceChunk{
			chunk("quran", "2:255", "original", 2, 255),
		}}
		comp := &fakeCompressor{err: errors.New("model down")}
		a, _ := New(Config{Store: store, Compressor: comp})

		got, err := a.Retrieve(context.Background(), "q", 5, true, Filter{})
		if err != nil {
			t.Fatalf("Retrieve() error = %v, want nil (fail-open)", err)
		}
		if got[0].Content != "original" {
			t.Errorf("content = %q, want original kept on failure", got[0].Content)
		}
	})

	t.Run("mid-stream failure restores every original", func(t *testing.T) {
		store := &fakeStore{chunks: []rag.EvidenceChunk{
			chunk("quran", "2:255", "first original", 2, 255),
			chunk("quran", "2:256", "second original", 2, 256),
		}}
		comp := &fakeCompressor{
			responses: []string{"first extraction"},
			err:       errors.New("model down"),
			failAt:    2,
		}
		a, _ := New(Config{Store: store, Compressor: comp})

		got, err := a.Retrieve(context.Background(), "q", 5, true, Filter{})
		if err != nil {
			t.Fatalf("Retrieve() error = %v, want nil (fail-open)", err)
		}
		if got[0].Content != "first original" {
			t.Errorf("chunk[0] content = %q, want the original (partial compression discarded)", got[0].Content)
		}
		if got[1].Content != "second original" {
			t.Errorf("chunk[1] content = %q, want the original", got[1].Content)
		}
	})

	t.Run("compression disabled skips the model", func(t *testing.T) {
		store := &fakeStore{chunks: []rag.EvidenceChunk{
			chunk("quran", "2:255", "original", 2, 255),
		}}
		comp := &fakeCompressor{}
		a, _ := New(Config{Store: store, Compressor: comp})

		_, _ = a.Retrieve(context.Background(), "q", 5, false, Filter{})
		if comp.calls != 0 {
			t.Errorf("compressor calls = %d, want 0", comp.calls)
		}
	})
}

func TestRetrieveSearchError(t *testing.T) {
	store := &fakeStore{err: errors.New("index unavailable")}
	a, _ := New(Config{Store: store})

	_, err := a.Retrieve(context.Background(), "q", 5, false, Filter{})
	if err == nil {
		t.Fatal("Retrieve() error = nil, want RetrievalError")
	}

	var retrievalErr *agent.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("error type = %T, want *agent.RetrievalError", err)
	}
	if retrievalErr.Stage != "search" {
		t.Errorf("stage = %q, want search", retrievalErr.Stage)
	}
}

func TestFormatContext(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		if got := FormatContext(nil); got != NoResultsMessage {
			t.Errorf("FormatContext(nil) = %q, want %q", got, NoResultsMessage)
		}
	})

	t.Run("labels and joining", func(t *testing.T) {
		got := FormatContext([]rag.EvidenceChunk{
			chunk("quran", "2:255", "Allah - there is no deity except Him", 2, 255),
			chunk("tafsir_ibn_kathir", "2:255", "This is Ayat al-Kursi", 2, 255),
			chunk("hadith_bukhari", "1:1", "other source", 0, 0),
		})

		want := "[Quran 2:255]: Allah - there is no deity except Him\n\n" +
			"[Tafsir Ibn Kathir 2:255]: This is Ayat al-Kursi\n\n" +
			"[hadith_bukhari 1:1]: other source"
		if got != want {
			t.Errorf("FormatContext() = %q, want %q", got, want)
		}
	})
}

func TestProcessScenario(t *testing.T) {
	var chunks []rag.EvidenceChunk
	for _, ref := range []string{"2:153", "2:155", "3:200", "2:45", "39:10", "16:127"} {
		chunks = append(chunks, chunk("quran", ref, "verse about patience "+ref, 2, 0))
	}
	store := &fakeStore{chunks: chunks}
	a, _ := New(Config{Store: store})

	resp, err := a.Process(context.Background(), &agent.Request{
		Query:      "What does the Quran say about patience?",
		Parameters: map[string]any{"k": 5, "use_compression": false},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	content, ok := resp.Content.(string)
	if !ok {
		t.Fatalf("Content type = %T, want string", resp.Content)
	}
	if !strings.HasPrefix(content, "[Quran") {
		t.Errorf("content = %q, want it to open with a [Quran citation", content)
	}
	if got := strings.Count(content, "[Quran"); got != 5 {
		t.Errorf("citations = %d, want 5", got)
	}
	if resp.Metadata["num_results"] != 5 {
		t.Errorf("num_results = %v, want 5", resp.Metadata["num_results"])
	}

	docs, ok := resp.Metadata["documents"].([]rag.EvidenceChunk)
	if !ok {
		t.Fatalf("documents type = %T, want []rag.EvidenceChunk", resp.Metadata["documents"])
	}
	if len(docs) != 5 {
		t.Fatalf("len(documents) = %d, want 5", len(docs))
	}
	if docs[0].Metadata.Reference != "2:153" {
		t.Errorf("documents[0] reference = %q, want 2:153", docs[0].Metadata.Reference)
	}
}
