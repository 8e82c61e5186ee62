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

package llms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mufassir-ai/mufassir/pkg/config"
	"github.com/mufassir-ai/mufassir/pkg/httpclient"
)

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint.
// Ollama's /v1 surface works unchanged with an empty API key.
type OpenAIProvider struct {
	client      *httpclient.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a chat completions client.
func NewOpenAIProvider(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	baseURL := cfg.Host
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := 60 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	return &OpenAIProvider{
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithMaxRetries(maxRetries),
		),
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Chat sends messages and returns the response text.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	reqMessages := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	payload := openAIChatRequest{
		Model:       p.model,
		Messages:    reqMessages,
		Temperature: p.temperature,
	}
	if p.maxTokens > 0 {
		payload.MaxTokens = &p.maxTokens
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var resp openAIChatResponse
	if err := p.client.PostJSON(ctx, p.baseURL+"/chat/completions", headers, payload, &resp); err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("chat completion error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the configured model identifier.
func (p *OpenAIProvider) ModelName() string { return p.model }

// Close releases resources.
func (p *OpenAIProvider) Close() error { return nil }

var _ Provider = (*OpenAIProvider)(nil)
