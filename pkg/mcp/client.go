// Package mcp wraps mark3labs/mcp-go for the two places specforge speaks
// MCP: reaching an external search server and exposing spec generation
// as a tool.
package mcp

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/specforge/pkg/resilience"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
	defaultBackoff = 200 * time.Millisecond
	clientName     = "specforge"
)

// ClientOption customizes the MCP client wrapper behavior.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry configures retry count and initial backoff.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.retry.MaxAttempts = retries + 1
		}
		if backoff > 0 {
			c.retry.InitialDelay = backoff
		}
	}
}

// Client wraps an initialized mcp-go client.
type Client struct {
	mcpClient client.MCPClient
	timeout   time.Duration
	retry     resilience.RetryConfig
}

// NewClient wraps an already initialized MCP client.
func NewClient(c client.MCPClient, opts ...ClientOption) *Client {
	out := &Client{
		mcpClient: c,
		timeout:   defaultTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts:  defaultRetries + 1,
			InitialDelay: defaultBackoff,
			MaxDelay:     2 * time.Second,
			IsRecoverable: func(err error) bool {
				return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
			},
		},
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// DialStdio launches command and performs the MCP handshake over its
// stdin/stdout. env entries are KEY=VALUE.
func DialStdio(ctx context.Context, command string, args, env []string, opts ...ClientOption) (*Client, error) {
	// NewStdioMCPClient starts the subprocess itself.
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("start mcp server %q: %w", command, err)
	}
	if err := initialize(ctx, c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return NewClient(c, opts...), nil
}

// DialHTTP connects to a streamable HTTP MCP endpoint.
func DialHTTP(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	c, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("create mcp http client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp http client: %w", err)
	}
	if err := initialize(ctx, c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return NewClient(c, opts...), nil
}

func initialize(ctx context.Context, c *client.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: "0.1.0"}
	if _, err := c.Initialize(ctx, req); err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}
	return nil
}

// ListTools retrieves the tools available on the server.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := resilience.Retry(ctx, c.retry, func(ctx context.Context) (*mcp.ListToolsResult, error) {
		reqCtx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.mcpClient.ListTools(reqCtx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// HasTool reports whether the server advertises a tool called name.
func (c *Client) HasTool(ctx context.Context, name string) (bool, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tools {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CallTool executes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	return resilience.Retry(ctx, c.retry, func(ctx context.Context) (*mcp.CallToolResult, error) {
		reqCtx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.mcpClient.CallTool(reqCtx, req)
	})
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.mcpClient.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ResultText joins the text content of a tool result.
func ResultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, content := range res.Content {
		switch text := content.(type) {
		case mcp.TextContent:
			parts = append(parts, text.Text)
		case *mcp.TextContent:
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
