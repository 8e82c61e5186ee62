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

package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// envVarForms are tried in order: the defaulted form must run before the
// plain braced form or its default text would be left behind.
var envVarForms = []struct {
	re         *regexp.Regexp
	hasDefault bool
}{
	{regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`), true},
	{regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`), false},
	{regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`), false},
}

// expandEnvVars substitutes ${VAR}, ${VAR:-default} and $VAR references.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	for _, form := range envVarForms {
		s = form.re.ReplaceAllStringFunc(s, func(match string) string {
			groups := form.re.FindStringSubmatch(match)
			val := os.Getenv(groups[1])
			if val == "" && form.hasDefault {
				return groups[2]
			}
			return val
		})
	}
	return s
}

// loadDotEnv loads a .env file when present. Best-effort: a missing file is
// not an error.
func loadDotEnv() {
	_ = godotenv.Load()
}

// applyEnvOverrides fills well-known credentials from the environment when
// the file left them empty.
func applyEnvOverrides(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Vector.Qdrant != nil && cfg.Vector.Qdrant.APIKey == "" {
		cfg.Vector.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	}
}
