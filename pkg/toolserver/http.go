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

package toolserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type executeRequest struct {
	Name       string         `json:"name"`
	Tool       string         `json:"tool"` // accepted as an alias for name
	Parameters map[string]any `json:"parameters"`
}

func (r executeRequest) toolName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Tool
}

// Handler returns the server's HTTP surface:
//
//	GET  /tools          — tool listing with schemas
//	POST /tools/execute  — {name, parameters} -> ExecutionResult
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/tools", s.handleList)
	r.Post("/tools/execute", s.handleExecute)
	return r
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	type toolInfo struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Schema      map[string]any `json:"schema"`
	}

	defs := s.Tools()
	infos := make([]toolInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, toolInfo{Name: d.Name, Description: d.Description, Schema: d.Schema})
	}
	writeResponse(w, http.StatusOK, map[string]any{"server": s.name, "tools": infos})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, &ExecutionResult{Error: "invalid request body: " + err.Error()})
		return
	}

	// Execution failures are structured results, not HTTP errors.
	result := s.ExecuteTool(r.Context(), req.toolName(), req.Parameters)
	writeResponse(w, http.StatusOK, result)
}

func writeResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode tool response", "error", err)
	}
}
