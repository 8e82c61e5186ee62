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

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/mufassir-ai/mufassir/pkg/agent"
	"github.com/mufassir-ai/mufassir/pkg/generator"
	"github.com/mufassir-ai/mufassir/pkg/lookup"
	"github.com/mufassir-ai/mufassir/pkg/rag"
	"github.com/mufassir-ai/mufassir/pkg/retriever"
)

type fakeRetriever struct {
	chunks     []rag.EvidenceChunk
	err        error
	lastFilter retriever.Filter
	lastK      int
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string, k int, useCompression bool, filter retriever.Filter) ([]rag.EvidenceChunk, error) {
	r.lastFilter = filter
	r.lastK = k
	if r.err != nil {
		return nil, r.err
	}
	return r.chunks, nil
}

type fakeGenerator struct {
	answer      string
	lastContext string
}

func (g *fakeGenerator) Generate(ctx context.Context, query, contextText string) generator.Result {
	g.lastContext = contextText
	return generator.Result{Answer: g.answer, Sources: generator.ParseSources(contextText)}
}

type fakeTafsir struct {
	calls int
}

func (f *fakeTafsir) Lookup(name string, surah, verse int) lookup.TafsirResult {
	f.calls++
	return lookup.TafsirResult{
		TafsirText: "commentary text",
		TafsirName: "Ibn Kathir",
		Surah:      surah,
		Verse:      verse,
	}
}

func (f *fakeTafsir) DefaultSource() string { return "en-tafisr-ibn-kathir" }

func evidence(source, reference, content string) rag.EvidenceChunk {
	return rag.EvidenceChunk{
		Content:  content,
		Metadata: rag.ChunkMetadata{Source: source, Reference: reference},
	}
}

func TestProcessQuery(t *testing.T) {
	ret := &fakeRetriever{chunks: []rag.EvidenceChunk{
		evidence("quran", "2:255", "the throne verse"),
		evidence("tafsir_ibn_kathir", "2:255", "commentary on the verse"),
	}}
	gen := &fakeGenerator{answer: "An answer [Quran 2:255]."}

	o, err := New(Config{Retriever: ret, Generator: gen, Tafsir: &fakeTafsir{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := o.ProcessQuery(context.Background(), &QueryRequest{Query: "ayat al-kursi?"})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	if resp.Answer != "An answer [Quran 2:255]." {
		t.Errorf("Answer = %q, want the generator's answer", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(resp.Sources))
	}
	if resp.Sources[0].SourceType != "quran" || resp.Sources[0].Reference != "2:255" {
		t.Errorf("Sources[0] = %+v, want quran 2:255", resp.Sources[0])
	}
	if resp.DirectTafsir != nil {
		t.Errorf("DirectTafsir = %+v, want nil without the flag", resp.DirectTafsir)
	}
	if len(resp.FiltersApplied) != 0 {
		t.Errorf("FiltersApplied = %v, want empty", resp.FiltersApplied)
	}
}

func TestProcessQueryRetrievalFailureAborts(t *testing.T) {
	ret := &fakeRetriever{err: agent.NewRetrievalError("search", errors.New("index down"))}
	gen := &fakeGenerator{answer: "should never be used"}

	o, _ := New(Config{Retriever: ret, Generator: gen})
	_, err := o.ProcessQuery(context.Background(), &QueryRequest{Query: "q"})
	if err == nil {
		t.Fatal("ProcessQuery() error = nil, want retrieval failure to abort")
	}

	var retrievalErr *agent.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Errorf("error type = %T, want *agent.RetrievalError", err)
	}
}

func TestProcessQueryDirectTafsir(t *testing.T) {
	surah, verse := 2, 255
	ret := &fakeRetriever{chunks: []rag.EvidenceChunk{
		// Same (source, reference) as the direct lookup surfaces; lists are
		// concatenated without cross-list deduplication.
		evidence("tafsir", "2:255", "retrieved commentary"),
	}}
	gen := &fakeGenerator{answer: "answer"}
	tafsir := &fakeTafsir{}

	o, _ := New(Config{Retriever: ret, Generator: gen, Tafsir: tafsir})
	resp, err := o.ProcessQuery(context.Background(), &QueryRequest{
		Query:           "explain ayat al-kursi",
		SurahFilter:     &surah,
		VerseFilter:     &verse,
		UseDirectTafsir: true,
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	if resp.DirectTafsir == nil {
		t.Fatal("DirectTafsir = nil, want result")
	}
	if resp.DirectTafsir.TafsirName != "Ibn Kathir" {
		t.Errorf("TafsirName = %q, want Ibn Kathir", resp.DirectTafsir.TafsirName)
	}

	if len(resp.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2 (no cross-list dedup)", len(resp.Sources))
	}
	if resp.Sources[0].SourceType != "tafsir" || resp.Sources[0].Content != "commentary text" {
		t.Errorf("Sources[0] = %+v, want the direct lookup first", resp.Sources[0])
	}

	if resp.FiltersApplied["surah_filter"] != 2 || resp.FiltersApplied["verse_filter"] != 255 {
		t.Errorf("FiltersApplied = %v, want both filters recorded", resp.FiltersApplied)
	}
	if ret.lastFilter.Surah == nil || *ret.lastFilter.Surah != 2 {
		t.Errorf("retriever filter surah = %v, want 2", ret.lastFilter.Surah)
	}
}

func TestProcessQueryDirectTafsirNeedsBothFilters(t *testing.T) {
	surah := 2
	ret := &fakeRetriever{}
	gen := &fakeGenerator{answer: "answer"}
	tafsir := &fakeTafsir{}

	o, _ := New(Config{Retriever: ret, Generator: gen, Tafsir: tafsir})
	resp, err := o.ProcessQuery(context.Background(), &QueryRequest{
		Query:           "q",
		SurahFilter:     &surah,
		UseDirectTafsir: true,
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	if tafsir.calls != 0 {
		t.Errorf("tafsir lookups = %d, want 0 without both filters", tafsir.calls)
	}
	if resp.DirectTafsir != nil {
		t.Errorf("DirectTafsir = %+v, want nil", resp.DirectTafsir)
	}
}

func TestProcessQueryGenerationSeesOnlyRetrievedContext(t *testing.T) {
	surah, verse := 2, 255
	ret := &fakeRetriever{chunks: []rag.EvidenceChunk{
		evidence("quran", "2:255", "the verse"),
	}}
	gen := &fakeGenerator{answer: "answer"}

	o, _ := New(Config{Retriever: ret, Generator: gen, Tafsir: &fakeTafsir{}})
	_, err := o.ProcessQuery(context.Background(), &QueryRequest{
		Query:           "q",
		SurahFilter:     &surah,
		VerseFilter:     &verse,
		UseDirectTafsir: true,
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	want := "[Quran 2:255]: the verse"
	if gen.lastContext != want {
		t.Errorf("generation context = %q, want %q (no direct-lookup leakage)", gen.lastContext, want)
	}
}

func TestProcessQueryEmptyRetrieval(t *testing.T) {
	ret := &fakeRetriever{}
	gen := &fakeGenerator{answer: "honest no-answer"}

	o, _ := New(Config{Retriever: ret, Generator: gen})
	resp, err := o.ProcessQuery(context.Background(), &QueryRequest{Query: "obscure question"})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	if gen.lastContext != retriever.NoResultsMessage {
		t.Errorf("generation context = %q, want %q", gen.lastContext, retriever.NoResultsMessage)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("len(Sources) = %d, want 0", len(resp.Sources))
	}
}
