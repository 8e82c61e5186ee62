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

package agent

import (
	"errors"
	"strings"
	"testing"
)

type sampleRequest struct {
	Request `mapstructure:",squash"`

	K              int   `mapstructure:"k"`
	UseCompression *bool `mapstructure:"use_compression"`
	SurahFilter    *int  `mapstructure:"surah_filter"`
}

func TestResolveParams(t *testing.T) {
	t.Run("parameters override typed fields", func(t *testing.T) {
		typed := sampleRequest{K: 5}
		params := map[string]any{"k": 3}

		if err := ResolveParams(params, &typed); err != nil {
			t.Fatalf("ResolveParams() error = %v", err)
		}
		if typed.K != 3 {
			t.Errorf("K = %v, want 3", typed.K)
		}
	})

	t.Run("unset parameters keep defaults", func(t *testing.T) {
		typed := sampleRequest{K: 5}
		params := map[string]any{"surah_filter": 2}

		if err := ResolveParams(params, &typed); err != nil {
			t.Fatalf("ResolveParams() error = %v", err)
		}
		if typed.K != 5 {
			t.Errorf("K = %v, want 5 (default preserved)", typed.K)
		}
		if typed.SurahFilter == nil || *typed.SurahFilter != 2 {
			t.Errorf("SurahFilter = %v, want 2", typed.SurahFilter)
		}
	})

	t.Run("weakly typed values decode", func(t *testing.T) {
		typed := sampleRequest{}
		params := map[string]any{"k": "7", "use_compression": false}

		if err := ResolveParams(params, &typed); err != nil {
			t.Fatalf("ResolveParams() error = %v", err)
		}
		if typed.K != 7 {
			t.Errorf("K = %v, want 7", typed.K)
		}
		if typed.UseCompression == nil || *typed.UseCompression {
			t.Errorf("UseCompression = %v, want false", typed.UseCompression)
		}
	})

	t.Run("empty bag is a no-op", func(t *testing.T) {
		typed := sampleRequest{K: 5}
		if err := ResolveParams(nil, &typed); err != nil {
			t.Fatalf("ResolveParams() error = %v", err)
		}
		if typed.K != 5 {
			t.Errorf("K = %v, want 5", typed.K)
		}
	})
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"retrieval", NewRetrievalError("embed", cause), "retrieval failed during embed: boom"},
		{"generation", NewGenerationError("chain", cause), "generation failed at tier chain: boom"},
		{"validation", NewValidationError("surah", "invalid surah number: %d", 115), "invalid surah: invalid surah number: 115"},
		{"configuration", NewConfigurationError("TranslationAgent", "failed to load Quran data", cause), "[TranslationAgent] failed to load Quran data: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("wrapped causes unwrap", func(t *testing.T) {
		err := NewRetrievalError("search", cause)
		if !errors.Is(err, cause) {
			t.Error("errors.Is() = false, want true for wrapped cause")
		}

		var retrievalErr *RetrievalError
		if !errors.As(error(err), &retrievalErr) {
			t.Error("errors.As() = false, want true")
		}
	})

	t.Run("configuration error without cause", func(t *testing.T) {
		err := NewConfigurationError("Orchestrator", "retriever is required", nil)
		if strings.Contains(err.Error(), "nil") {
			t.Errorf("Error() = %q, should not render nil cause", err.Error())
		}
	})
}
