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
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPServer adapts a tool server to the Model Context Protocol so the same
// registry is reachable from MCP clients over stdio.
func MCPServer(s *Server) (*mcpserver.MCPServer, error) {
	srv := mcpserver.NewMCPServer(s.name, s.version)

	for _, def := range s.Tools() {
		schemaJSON, err := json.Marshal(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema for tool %s: %w", def.Name, err)
		}

		name := def.Name
		tool := mcp.NewToolWithRawSchema(name, def.Description, schemaJSON)
		srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result := s.ExecuteTool(ctx, name, req.GetArguments())
			if result.Error != "" {
				return mcp.NewToolResultError(result.Error), nil
			}

			payload, err := json.Marshal(result.Result)
			if err != nil {
				return mcp.NewToolResultError("failed to encode result: " + err.Error()), nil
			}
			return mcp.NewToolResultText(string(payload)), nil
		})
	}
	return srv, nil
}

// ServeMCPStdio runs the server's MCP adapter over stdin/stdout, blocking
// until the client disconnects.
func ServeMCPStdio(s *Server) error {
	srv, err := MCPServer(s)
	if err != nil {
		return err
	}
	return mcpserver.ServeStdio(srv)
}
