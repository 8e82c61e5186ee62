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

// Package lookup implements the file-backed tool agents: direct tafsir
// lookup and verse translation. Both load their tables at construction and
// never mutate them, so Process calls are safe to run concurrently.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mufassir-ai/mufassir/pkg/agent"
)

// TafsirRequest is the tafsir agent's typed request.
type TafsirRequest struct {
	agent.Request `mapstructure:",squash"`

	Surah      int    `mapstructure:"surah"`
	Verse      int    `mapstructure:"verse"`
	TafsirName string `mapstructure:"tafsir_name"`
}

// TafsirResult is one resolved tafsir lookup.
type TafsirResult struct {
	TafsirText string `json:"tafsir_text"`
	TafsirName string `json:"tafsir_name"`
	Surah      int    `json:"surah"`
	Verse      int    `json:"verse"`
}

// tafsirSource is one loaded tafsir: surah -> verse -> commentary text.
type tafsirSource struct {
	readableName string
	entries      map[string]map[string]string
}

// TafsirAgent provides direct lookup of tafsir commentary for specific
// verses. Sources are the *.json files in the tafsirs directory, keyed by
// filename without extension.
type TafsirAgent struct {
	sources map[string]tafsirSource
	names   []string // sorted source ids; names[0] is the default
}

// NewTafsirAgent scans dir for tafsir files and loads them. Files that fail
// to parse are skipped with a warning; a missing or empty directory yields
// an agent that knows no sources, matching the helpful-failure path.
func NewTafsirAgent(dir string) (*TafsirAgent, error) {
	a := &TafsirAgent{sources: map[string]tafsirSource{}}

	files, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Could not read tafsirs directory", "dir", dir, "error", err)
		return a, nil
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(f.Name(), ".json")

		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			slog.Warn("Could not read tafsir file", "file", f.Name(), "error", err)
			continue
		}
		var entries map[string]map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			slog.Warn("Could not parse tafsir file", "file", f.Name(), "error", err)
			continue
		}

		a.sources[id] = tafsirSource{readableName: readableTafsirName(id), entries: entries}
		a.names = append(a.names, id)
	}

	sort.Strings(a.names)
	slog.Info("Loaded tafsir sources", "count", len(a.names), "dir", dir)
	return a, nil
}

// readableTafsirName derives a display name from a source id: the language
// prefix before the first dash is dropped and the rest is title-cased, so
// "en-tafisr-ibn-kathir" becomes "Tafisr Ibn Kathir".
func readableTafsirName(id string) string {
	name := id
	if i := strings.Index(id, "-"); i >= 0 {
		name = id[i+1:]
	}
	words := strings.Split(name, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Capabilities reports the agent's static capability tags.
func (a *TafsirAgent) Capabilities() []string {
	return []string{"tafsir_lookup", "verse_explanation", "direct_reference"}
}

// AvailableTafsirs returns the source ids in sorted order.
func (a *TafsirAgent) AvailableTafsirs() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Process handles one tafsir lookup. An unknown source name is a helpful
// failure: the listing of valid names comes back as content, not as an
// error.
func (a *TafsirAgent) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	typed := TafsirRequest{Request: *req}
	if err := agent.ResolveParams(req.Parameters, &typed); err != nil {
		return nil, err
	}

	name := typed.TafsirName
	if name == "" && len(a.names) > 0 {
		name = a.names[0]
	}

	if _, ok := a.sources[name]; !ok {
		listing := fmt.Sprintf("Invalid tafsir name. Available tafsirs: %s", strings.Join(a.names, ", "))
		return &agent.Response{
			Content: listing,
			Metadata: map[string]any{
				"error":     "invalid_tafsir",
				"available": a.AvailableTafsirs(),
			},
		}, nil
	}

	result := a.Lookup(name, typed.Surah, typed.Verse)
	return &agent.Response{
		Content: result.TafsirText,
		Metadata: map[string]any{
			"tafsir": name,
			"surah":  typed.Surah,
			"verse":  typed.Verse,
		},
	}, nil
}

// Lookup returns the tafsir text for a verse, or a placeholder message when
// the source has no entry for it. The caller is expected to have checked
// that name is a known source.
func (a *TafsirAgent) Lookup(name string, surah, verse int) TafsirResult {
	src := a.sources[name]
	text, ok := src.entries[strconv.Itoa(surah)][strconv.Itoa(verse)]
	if !ok {
		text = fmt.Sprintf("No tafsir found for Surah %d, Verse %d in %s", surah, verse, name)
	}
	return TafsirResult{
		TafsirText: text,
		TafsirName: src.readableName,
		Surah:      surah,
		Verse:      verse,
	}
}

// HasSource reports whether a source id is loaded.
func (a *TafsirAgent) HasSource(name string) bool {
	_, ok := a.sources[name]
	return ok
}

// DefaultSource returns the default source id, or "" when none are loaded.
func (a *TafsirAgent) DefaultSource() string {
	if len(a.names) == 0 {
		return ""
	}
	return a.names[0]
}

var _ agent.Agent = (*TafsirAgent)(nil)
