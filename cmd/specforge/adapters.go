// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
)

// Adapter describes a backend specforge can be configured with.
type Adapter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
	Docs        string   `json:"docs,omitempty"`
}

// adaptersRegistry is the catalog of backends wired in app.go.
var adaptersRegistry = []Adapter{
	// Inference
	{
		Name:        "openai",
		Type:        "llm",
		Description: "OpenAI chat completions (default, gpt-4o-mini)",
		ConfigKeys:  []string{"llm.provider=openai", "llm.api_key or OPENAI_API_KEY", "llm.model", "llm.base_url"},
		Docs:        "https://platform.openai.com/docs",
	},
	{
		Name:        "anthropic",
		Type:        "llm",
		Description: "Anthropic Claude models",
		ConfigKeys:  []string{"llm.provider=anthropic", "llm.api_key or ANTHROPIC_API_KEY", "llm.model"},
		Docs:        "https://docs.anthropic.com",
	},
	{
		Name:        "gemini",
		Type:        "llm",
		Description: "Google Gemini models through the Gen AI SDK",
		ConfigKeys:  []string{"llm.provider=gemini", "llm.api_key or GOOGLE_API_KEY", "llm.model"},
		Docs:        "https://ai.google.dev/gemini-api/docs",
	},
	{
		Name:        "ollama",
		Type:        "llm",
		Description: "Local inference with Ollama",
		ConfigKeys:  []string{"llm.provider=ollama", "llm.base_url", "llm.model"},
		Docs:        "https://ollama.ai",
	},
	{
		Name:        "mock",
		Type:        "llm",
		Description: "Canned responses for offline runs",
		ConfigKeys:  []string{"llm.provider=mock"},
		Docs:        "pkg/llm/mock.go",
	},

	// Search
	{
		Name:        "tavily",
		Type:        "search",
		Description: "Tavily web search REST API (default)",
		ConfigKeys:  []string{"search.provider=tavily", "search.api_key or TAVILY_API_KEY", "search.rate_limit", "search.burst"},
		Docs:        "https://docs.tavily.com",
	},
	{
		Name:        "mcp",
		Type:        "search",
		Description: "Search tool on an MCP server (stdio command or streamable HTTP)",
		ConfigKeys:  []string{"search.provider=mcp", "search.mcp.command", "search.mcp.args", "search.mcp.url", "search.mcp.tool"},
		Docs:        "https://modelcontextprotocol.io",
	},
	{
		Name:        "mock",
		Type:        "search",
		Description: "Empty result sets for offline runs",
		ConfigKeys:  []string{"search.provider=mock"},
		Docs:        "pkg/search/mock.go",
	},

	// Telemetry
	{
		Name:        "stdout",
		Type:        "telemetry",
		Description: "OpenTelemetry traces and metrics printed to stderr",
		ConfigKeys:  []string{"telemetry.exporter=stdout"},
		Docs:        "https://opentelemetry.io/docs/languages/go/",
	},
	{
		Name:        "otlp",
		Type:        "telemetry",
		Description: "OpenTelemetry traces and metrics over OTLP gRPC",
		ConfigKeys:  []string{"telemetry.exporter=otlp", "telemetry.otlp_endpoint", "telemetry.otlp_insecure"},
		Docs:        "https://opentelemetry.io/docs/specs/otlp/",
	},
}

type adaptersResult struct {
	Adapters []Adapter `json:"adapters"`
	Total    int       `json:"total"`
}

func runAdapters(w io.Writer, flags globalFlags, args []string) error {
	cmd := flag.NewFlagSet("adapters", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	typeFilter := cmd.String("type", "", "Filter by type: llm, search, telemetry")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("adapters", err.Error())
	}

	adapters := filterAdapters(*typeFilter)
	if flags.JSON {
		return printJSON(w, adaptersResult{Adapters: adapters, Total: len(adapters)})
	}
	if len(adapters) == 0 {
		fmt.Fprintln(w, "No adapters found.")
		return nil
	}

	tw := newTabWriter(w)
	writeRow(tw, "NAME", "TYPE", "DESCRIPTION")
	for _, a := range adapters {
		writeRow(tw, a.Name, a.Type, a.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d adapters\n", len(adapters))
	return nil
}

func filterAdapters(kind string) []Adapter {
	if kind == "" {
		return adaptersRegistry
	}
	var out []Adapter
	for _, a := range adaptersRegistry {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}
