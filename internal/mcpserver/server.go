// Package mcpserver exposes a tools.Registry over the Model Context
// Protocol, so the same built-in tools the Router dispatches locally can
// also be reached by an external MCP client.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tenx-dev/core/internal/logging"
	"github.com/tenx-dev/core/internal/tools"
)

// Server wraps a tools.Registry and publishes it as an MCP server.
type Server struct {
	registry *tools.Registry
	server   *mcp.Server
}

// NewServer builds an MCP server exposing every tool in registry.
func NewServer(registry *tools.Registry) *Server {
	s := &Server{registry: registry}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "10x-core",
		Version: "1.0.0",
	}, nil)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	log := logging.With("mcpserver")
	for _, name := range s.registry.Names() {
		t, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		var schemaMap map[string]any
		if err := json.Unmarshal(t.Schema(), &schemaMap); err != nil {
			log.Warn("failed to parse tool schema", "tool", name, "err", err)
			continue
		}
		s.server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schemaMap,
		}, s.handlerFor(t.Name()))
	}
}

func (s *Server) handlerFor(name string) mcp.ToolHandler {
	log := logging.With("mcpserver")
	return func(ctx context.Context, req *mcp.CallToolRequest) (retResult *mcp.CallToolResult, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("tool handler panicked", "tool", name, "panic", r)
				retResult = &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: "tool panicked"}},
					IsError: true,
				}
				retErr = nil
			}
		}()

		var input map[string]any
		if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "invalid arguments: " + err.Error()}},
				IsError: true,
			}, nil
		}

		result := s.registry.Execute(ctx, name, input)
		text := result.Output
		if !result.OK {
			text = result.Error
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: !result.OK,
		}, nil
	}
}

// Handler returns an HTTP handler serving the MCP server over the
// streamable-HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
