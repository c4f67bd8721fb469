package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolHandler handles a tool call with decoded arguments.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error)

// Server wraps the mcp-go server.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server advertising tool capabilities.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
	}
}

// RegisterTool registers a tool with the server. opts describe the
// tool's input schema (mcp.WithString, mcp.WithNumber, ...).
func (s *Server) RegisterTool(name, description string, handler ToolHandler, opts ...mcp.ToolOption) {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	tool := mcp.NewTool(name, opts...)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		if args == nil {
			args = map[string]interface{}{}
		}
		return handler(ctx, args)
	})
}

// MCPServer exposes the underlying server, e.g. for test transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeStreamableHTTP serves the streamable HTTP transport on addr.
func (s *Server) ServeStreamableHTTP(addr string) error {
	return server.NewStreamableHTTPServer(s.mcpServer).Start(addr)
}

// TextResult builds a successful single-text tool result.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

// ErrorResult builds a tool result flagged as an error.
func ErrorResult(text string) *mcp.CallToolResult {
	res := TextResult(text)
	res.IsError = true
	return res
}
