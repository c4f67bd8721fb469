// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/specforge/pkg/config"
	"github.com/jllopis/specforge/pkg/errors"
	specmcp "github.com/jllopis/specforge/pkg/mcp"
	"github.com/jllopis/specforge/pkg/telemetry"
)

const generateSpecTool = "generate_spec"

// runMCP serves generate_spec over MCP. Stdio is the default transport, so
// nothing but protocol frames may reach stdout: logs go to stderr and no
// progress is printed.
func runMCP(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cmd.SetOutput(os.Stderr)
	httpAddr := cmd.String("http", "", "Serve streamable HTTP on this address instead of stdio")
	noSave := cmd.Bool("no-save", false, "Do not save generated documents")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("mcp", err.Error())
	}

	shutdown, err := telemetry.InitWithConfig("specforge-mcp", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Output:       os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := buildApp(ctx, cfg, appOptions{logOutput: os.Stderr})
	if err != nil {
		return NewConfigError(err, "")
	}
	defer a.Close()

	srv := newMCPServer(a, !*noSave)
	if !*noSave {
		fmt.Fprintf(os.Stderr, "specforge mcp saving documents under %s\n", a.store.Dir())
	}
	if *httpAddr != "" {
		fmt.Fprintf(os.Stderr, "specforge mcp listening on %s\n", *httpAddr)
		return srv.ServeStreamableHTTP(*httpAddr)
	}
	return srv.ServeStdio()
}

func newMCPServer(a *app, save bool) *specmcp.Server {
	srv := specmcp.NewServer("specforge", version)
	srv.RegisterTool(generateSpecTool,
		"Turn a one-line idea for an agentic application into a multi-section specification "+
			"(research, agent designs, workflow, infrastructure, verification and summary).",
		generateSpecHandler(a, save),
		mcp.WithString("idea",
			mcp.Required(),
			mcp.Description("The application idea, e.g. 'Build a code review agent that reviews PRs'"),
		),
	)
	return srv
}

// generateSpecHandler runs the pipeline for one tool call. Run failures are
// reported as tool errors so the calling model can read them.
func generateSpecHandler(a *app, save bool) specmcp.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
		idea, _ := args["idea"].(string)
		doc, err := a.orch.Run(ctx, idea)
		if err != nil {
			return specmcp.ErrorResult(toolErrorText(err)), nil
		}
		res := specmcp.TextResult(doc.Text)
		if save {
			path, err := a.store.Save(idea, doc.Text)
			if err != nil {
				a.logger.Warn("mcp.save.failed", "error", err.Error())
				return res, nil
			}
			res.Content = append(res.Content, mcp.TextContent{Type: "text", Text: "Saved to: " + path})
		}
		return res, nil
	}
}

func toolErrorText(err error) string {
	e := errors.AsError(err)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if reason, ok := e.Context["reason"].(string); ok && !strings.Contains(e.Message, reason) {
		fmt.Fprintf(&b, " (%s)", reason)
	}
	return b.String()
}
