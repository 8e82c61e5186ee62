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

package vector

import (
	"fmt"

	"github.com/mufassir-ai/mufassir/pkg/config"
)

// NewFromConfig creates the configured vector provider.
func NewFromConfig(cfg *config.VectorConfig) (Provider, error) {
	switch cfg.Type {
	case "chromem", "":
		chromemCfg := cfg.Chromem
		if chromemCfg == nil {
			chromemCfg = &config.ChromemConfig{}
		}
		return NewChromemProvider(chromemCfg)
	case "qdrant":
		qdrantCfg := cfg.Qdrant
		if qdrantCfg == nil {
			qdrantCfg = &config.QdrantConfig{}
		}
		return NewQdrantProvider(qdrantCfg)
	default:
		return nil, fmt.Errorf("unsupported vector provider type: %s", cfg.Type)
	}
}
