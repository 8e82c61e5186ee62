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

import "fmt"

// RetrievalError reports an embedding or index search failure. It is fatal
// to the request: without evidence there is nothing meaningful to generate
// from, so it is never absorbed locally.
type RetrievalError struct {
	Stage string // "embed" or "search"
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// NewRetrievalError wraps an embedding/search failure.
func NewRetrievalError(stage string, err error) *RetrievalError {
	return &RetrievalError{Stage: stage, Err: err}
}

// GenerationError reports that every generation tier was exhausted. Callers
// normally never see it: the generator degrades to an apology string instead
// of returning it. It exists for code paths that need the typed cause.
type GenerationError struct {
	Tier string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at tier %s: %v", e.Tier, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError wraps a generation backend failure.
func NewGenerationError(tier string, err error) *GenerationError {
	return &GenerationError{Tier: tier, Err: err}
}

// ValidationError reports malformed structural input, like an out-of-range
// verse number. It is surfaced immediately and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError reports a structurally invalid input field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a fatal construction-time problem, like missing
// credentials or a missing backing data file. Raised at startup, never
// deferred to the first call.
type ConfigurationError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Component, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError reports a fatal construction-time failure.
func NewConfigurationError(component, message string, err error) *ConfigurationError {
	return &ConfigurationError{Component: component, Message: message, Err: err}
}
