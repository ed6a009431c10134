// Package mcp implements the Model Context Protocol server for Quill.
//
// The MCP server exposes the same generation and keyword capabilities as
// the HTTP API through MCP tools, prompts and resources, so MCP-compatible
// agents can commission articles directly.
package mcp

import (
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/service/generation"
)

// Server wraps the MCP server with Quill's service layer.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	generation *generation.Service
	logger     *slog.Logger
	version    string
}

// New creates and configures a new MCP server with all tools, prompts and
// resources.
func New(svc *generation.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		generation: svc,
		logger:     logger,
		version:    version,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"quill",
		version,
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(false),
	)

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result")
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// serviceErrorResult renders a classified error as "CODE: message".
func serviceErrorResult(err error) *mcplib.CallToolResult {
	return errorResult(model.CodeOf(err) + ": " + model.MessageOf(err))
}
