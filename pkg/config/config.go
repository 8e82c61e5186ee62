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

// Package config holds the typed configuration for the pipeline and its
// provider clients. Configuration is layered: YAML file values, expanded
// against the environment, with defaults applied afterwards.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Vector   VectorConfig   `yaml:"vector"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Data     DataConfig     `yaml:"data"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	// Type selects the provider ("openai" covers any OpenAI-compatible
	// endpoint, including Ollama's /v1 surface).
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	Host        string  `yaml:"host"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     int     `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
}

// EmbedderConfig configures the embedding provider. Fallback, when present,
// names a secondary provider tried after any primary failure.
type EmbedderConfig struct {
	Type      string          `yaml:"type"`
	Model     string          `yaml:"model"`
	Host      string          `yaml:"host"`
	APIKey    string          `yaml:"api_key"`
	Dimension int             `yaml:"dimension"`
	Timeout   int             `yaml:"timeout"`
	Fallback  *EmbedderConfig `yaml:"fallback,omitempty"`
}

// VectorConfig configures the vector index provider.
type VectorConfig struct {
	Type    string         `yaml:"type"`
	Qdrant  *QdrantConfig  `yaml:"qdrant,omitempty"`
	Chromem *ChromemConfig `yaml:"chromem,omitempty"`
}

// QdrantConfig configures a remote Qdrant index.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

// ChromemConfig configures the embedded chromem index.
type ChromemConfig struct {
	PersistPath string `yaml:"persist_path,omitempty"`
	Compress    bool   `yaml:"compress,omitempty"`
}

// CorpusConfig names the indexed corpus collection.
type CorpusConfig struct {
	Collection string `yaml:"collection"`

	// MaxConcurrentSearches bounds concurrent vector index work.
	MaxConcurrentSearches int `yaml:"max_concurrent_searches"`
}

// DataConfig locates the file-backed lookup tables.
type DataConfig struct {
	TafsirsDir         string `yaml:"tafsirs_dir"`
	QuranPath          string `yaml:"quran_path"`
	TranslationsDir    string `yaml:"translations_dir"`
	DefaultTranslation string `yaml:"default_translation"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.LLM.Type == "" {
		c.LLM.Type = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Host == "" {
		c.LLM.Host = "https://api.openai.com/v1"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}

	if c.Embedder.Type == "" {
		c.Embedder.Type = "openai"
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "text-embedding-3-small"
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 30
	}

	if c.Vector.Type == "" {
		c.Vector.Type = "chromem"
	}
	if c.Vector.Type == "chromem" && c.Vector.Chromem == nil {
		c.Vector.Chromem = &ChromemConfig{}
	}
	if c.Vector.Type == "qdrant" && c.Vector.Qdrant == nil {
		c.Vector.Qdrant = &QdrantConfig{}
	}

	if c.Corpus.Collection == "" {
		c.Corpus.Collection = "quran"
	}
	if c.Corpus.MaxConcurrentSearches == 0 {
		c.Corpus.MaxConcurrentSearches = 8
	}

	if c.Data.TafsirsDir == "" {
		c.Data.TafsirsDir = "data/tafsirs"
	}
	if c.Data.QuranPath == "" {
		c.Data.QuranPath = "data/quran.json"
	}
	if c.Data.TranslationsDir == "" {
		c.Data.TranslationsDir = "data/translations"
	}
	if c.Data.DefaultTranslation == "" {
		c.Data.DefaultTranslation = "en-sahih-international"
	}
}

// Validate rejects configurations that cannot possibly work.
func (c *Config) Validate() error {
	switch c.Vector.Type {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vector provider type: %s", c.Vector.Type)
	}

	switch c.Embedder.Type {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedder type: %s", c.Embedder.Type)
	}

	if c.Embedder.Type == "openai" && c.Embedder.APIKey == "" {
		return fmt.Errorf("embedder api_key is required for openai (set OPENAI_API_KEY)")
	}

	return nil
}

// Load reads a YAML config file, expands environment references and applies
// defaults. A missing path yields the pure default configuration.
func Load(path string) (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		expanded := expandEnvVars(string(raw))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}
