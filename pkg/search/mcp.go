package search

import (
	"context"
	"encoding/json"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/specforge/pkg/errors"
	"github.com/jllopis/specforge/pkg/mcp"
)

// DefaultMCPTool is the tool name exposed by the Tavily MCP server.
const DefaultMCPTool = "tavily-search"

// ToolCaller is the subset of *mcp.Client the MCP searcher needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcpgo.CallToolResult, error)
}

// MCPSearcher implements Searcher by calling a search tool on an MCP
// server.
type MCPSearcher struct {
	caller ToolCaller
	tool   string
}

// NewMCPSearcher creates a searcher that invokes tool through caller.
func NewMCPSearcher(caller ToolCaller, tool string) *MCPSearcher {
	if tool == "" {
		tool = DefaultMCPTool
	}
	return &MCPSearcher{caller: caller, tool: tool}
}

// Name implements Searcher.
func (m *MCPSearcher) Name() string { return "mcp:" + m.tool }

// Search implements Searcher. JSON tool output is decoded as a Response;
// any other text becomes a single result.
func (m *MCPSearcher) Search(ctx context.Context, q Query) (*Response, error) {
	args := map[string]interface{}{
		"query":        q.Text,
		"max_results":  q.MaxResults,
		"topic":        string(q.Topic),
		"search_depth": string(q.Depth),
	}
	if len(q.IncludeDomains) > 0 {
		args["include_domains"] = q.IncludeDomains
	}
	if len(q.ExcludeDomains) > 0 {
		args["exclude_domains"] = q.ExcludeDomains
	}

	res, err := m.caller.CallTool(ctx, m.tool, args)
	if err != nil {
		return nil, errors.New(errors.CodeSearchError, "mcp search call failed", err).
			WithContext("tool", m.tool)
	}
	text := strings.TrimSpace(mcp.ResultText(res))
	if res.IsError {
		return nil, errors.New(errors.CodeSearchError, "mcp search tool returned an error", nil).
			WithContext("tool", m.tool).
			WithContext("detail", text)
	}
	return parseToolOutput(q.Text, text), nil
}

func parseToolOutput(query, text string) *Response {
	var out Response
	if err := json.Unmarshal([]byte(text), &out); err == nil && len(out.Results) > 0 {
		if out.Query == "" {
			out.Query = query
		}
		return &out
	}
	var results []Result
	if err := json.Unmarshal([]byte(text), &results); err == nil && len(results) > 0 {
		return &Response{Query: query, Results: results}
	}
	if text == "" {
		return &Response{Query: query}
	}
	return &Response{Query: query, Results: []Result{{Title: query, Content: text}}}
}

var _ Searcher = (*MCPSearcher)(nil)
