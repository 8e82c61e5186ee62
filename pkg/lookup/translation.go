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

package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mufassir-ai/mufassir/pkg/agent"
)

// DefaultTranslation is the translation used when a request names none.
const DefaultTranslation = "en-sahih-international"

// translationDisplayNames maps translation ids to display names.
var translationDisplayNames = map[string]string{
	"en-sahih-international": "Sahih International (English)",
	"en-yusuf-ali":           "Yusuf Ali (English)",
	"en-pickthall":           "Pickthall (English)",
	"fr-hamidullah":          "Hamidullah (French)",
	"tr-diyanet":             "Diyanet İşleri (Turkish)",
	"ur-jalandhry":           "Jalandhry (Urdu)",
}

// TranslationRequest is the translation agent's typed request. Verse is a
// single verse or the start of a range when EndVerse is set.
type TranslationRequest struct {
	agent.Request `mapstructure:",squash"`

	Surah           int    `mapstructure:"surah"`
	Verse           int    `mapstructure:"verse"`
	EndVerse        *int   `mapstructure:"end_verse"`
	TranslationName string `mapstructure:"translation_name"`
}

// TranslationResult is one resolved translation.
type TranslationResult struct {
	ArabicText      string `json:"arabic_text"`
	TranslatedText  string `json:"translated_text"`
	TranslationName string `json:"translation_name"`
	Reference       string `json:"reference"`
}

type quranVerse struct {
	Text string `json:"text"`
}

type quranSurah struct {
	Verses []quranVerse `json:"verses"`
}

type quranData struct {
	Surahs []quranSurah `json:"surahs"`
}

// TranslationAgent translates Quranic verses. The Arabic corpus loads from
// quran.json at construction; translation texts load from per-id files in
// the translations directory when present, with a descriptive placeholder
// otherwise.
type TranslationAgent struct {
	quran              quranData
	defaultTranslation string

	// translations maps id -> "S:V" -> translated text. Ids without a
	// backing file still work via the placeholder path.
	translations map[string]map[string]string
}

// TranslationAgentConfig configures a TranslationAgent.
type TranslationAgentConfig struct {
	QuranPath          string
	TranslationsDir    string // optional
	DefaultTranslation string // DefaultTranslation when empty
}

// NewTranslationAgent loads the Arabic corpus and any translation files.
// A missing or unparseable quran.json is fatal.
func NewTranslationAgent(cfg TranslationAgentConfig) (*TranslationAgent, error) {
	data, err := os.ReadFile(cfg.QuranPath)
	if err != nil {
		return nil, agent.NewConfigurationError("TranslationAgent", "failed to load Quran data", err)
	}

	a := &TranslationAgent{
		defaultTranslation: cfg.DefaultTranslation,
		translations:       map[string]map[string]string{},
	}
	if err := json.Unmarshal(data, &a.quran); err != nil {
		return nil, agent.NewConfigurationError("TranslationAgent", "failed to parse Quran data", err)
	}
	if a.defaultTranslation == "" {
		a.defaultTranslation = DefaultTranslation
	}

	a.loadTranslationFiles(cfg.TranslationsDir)
	return a, nil
}

func (a *TranslationAgent) loadTranslationFiles(dir string) {
	if dir == "" {
		return
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		slog.Debug("No translations directory, using placeholders", "dir", dir)
		return
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(f.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			slog.Warn("Could not read translation file", "file", f.Name(), "error", err)
			continue
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			slog.Warn("Could not parse translation file", "file", f.Name(), "error", err)
			continue
		}
		a.translations[id] = entries
	}
	slog.Info("Loaded translation files", "count", len(a.translations), "dir", dir)
}

// Capabilities reports the agent's static capability tags.
func (a *TranslationAgent) Capabilities() []string {
	return []string{"verse_translation", "multi_language_support", "range_translation", "arabic_text_access"}
}

// AvailableTranslations returns translation ids mapped to display names.
func (a *TranslationAgent) AvailableTranslations() map[string]string {
	out := make(map[string]string, len(translationDisplayNames))
	for id, name := range translationDisplayNames {
		out[id] = name
	}
	return out
}

// Process handles one translation request.
func (a *TranslationAgent) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	typed := TranslationRequest{Request: *req}
	if err := agent.ResolveParams(req.Parameters, &typed); err != nil {
		return nil, err
	}

	result, err := a.Translate(typed.Surah, typed.Verse, typed.EndVerse, typed.TranslationName)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"surah":       typed.Surah,
		"verse":       typed.Verse,
		"translation": result.TranslationName,
	}
	if typed.EndVerse != nil {
		metadata["end_verse"] = *typed.EndVerse
	}

	return &agent.Response{Content: result.TranslatedText, Metadata: metadata}, nil
}

// Translate resolves a single verse or a range. All structural validation
// happens before any text is assembled; out-of-range inputs yield a
// ValidationError.
func (a *TranslationAgent) Translate(surah, verse int, endVerse *int, translationName string) (*TranslationResult, error) {
	if translationName == "" {
		translationName = a.defaultTranslation
	}

	if surah < 1 || surah > 114 {
		return nil, agent.NewValidationError("surah", "invalid surah number: %d. Must be between 1 and 114.", surah)
	}
	if surah > len(a.quran.Surahs) {
		return nil, agent.NewValidationError("surah", "surah %d not present in Quran data", surah)
	}
	verses := a.quran.Surahs[surah-1].Verses

	last := verse
	if endVerse != nil {
		last = *endVerse
	}
	if verse < 1 || last > len(verses) || verse > last {
		return nil, agent.NewValidationError("verse", "invalid verse range: %d-%d for surah %d", verse, last, surah)
	}

	var arabic, translated []string
	for v := verse; v <= last; v++ {
		arabic = append(arabic, verses[v-1].Text)
		translated = append(translated, a.translateVerse(surah, v, translationName))
	}

	reference := fmt.Sprintf("Quran %d:%d", surah, verse)
	if endVerse != nil {
		reference = fmt.Sprintf("Quran %d:%d-%d", surah, verse, *endVerse)
	}

	displayName := translationName
	if name, ok := translationDisplayNames[translationName]; ok {
		displayName = name
	}

	return &TranslationResult{
		ArabicText:      strings.Join(arabic, "\n"),
		TranslatedText:  strings.Join(translated, "\n"),
		TranslationName: displayName,
		Reference:       reference,
	}, nil
}

// translateVerse returns the stored translation text for a verse, or a
// descriptive placeholder when no translation file backs the id.
func (a *TranslationAgent) translateVerse(surah, verse int, translationName string) string {
	if entries, ok := a.translations[translationName]; ok {
		if text, ok := entries[fmt.Sprintf("%d:%d", surah, verse)]; ok {
			return text
		}
	}

	switch translationName {
	case "en-sahih-international":
		return fmt.Sprintf("Translation of Surah %d, Verse %d in Sahih International English", surah, verse)
	case "en-yusuf-ali":
		return fmt.Sprintf("Translation of Surah %d, Verse %d in Yusuf Ali English", surah, verse)
	default:
		return fmt.Sprintf("Translation of Surah %d, Verse %d in %s", surah, verse, translationName)
	}
}

var _ agent.Agent = (*TranslationAgent)(nil)
