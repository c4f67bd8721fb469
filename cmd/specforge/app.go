// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jllopis/specforge/pkg/artifact"
	"github.com/jllopis/specforge/pkg/config"
	"github.com/jllopis/specforge/pkg/core"
	"github.com/jllopis/specforge/pkg/errors"
	"github.com/jllopis/specforge/pkg/llm"
	specmcp "github.com/jllopis/specforge/pkg/mcp"
	"github.com/jllopis/specforge/pkg/orchestrator"
	"github.com/jllopis/specforge/pkg/roles"
	"github.com/jllopis/specforge/pkg/search"
	"github.com/jllopis/specforge/pkg/spectest"
	"github.com/jllopis/specforge/pkg/telemetry"
	"github.com/jllopis/specforge/pkg/tools"
	"github.com/jllopis/specforge/pkg/worker"
	"github.com/jllopis/specforge/providers/anthropic"
	"github.com/jllopis/specforge/providers/gemini"
	"github.com/jllopis/specforge/providers/openai"
)

const (
	defaultOllamaURL = "http://localhost:11434"

	mcpRetries = 2
	mcpBackoff = 500 * time.Millisecond
)

// app holds everything one process needs to serve runs.
type app struct {
	orch    *orchestrator.Orchestrator
	store   *artifact.Store
	logger  *slog.Logger
	closers []io.Closer
}

type appOptions struct {
	// emitter receives progress events; nil discards them.
	emitter core.EventEmitter
	// logOutput receives structured logs. Never stdout in mcp stdio mode.
	logOutput io.Writer
	// searcher replaces the configured search backend, for tests.
	searcher search.Searcher
	// provider replaces the configured inference backend, for tests.
	provider llm.Provider
}

func buildApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.logOutput == nil {
		opts.logOutput = io.Discard
	}
	logger := telemetry.NewLogger(opts.logOutput, cfg.Log.Level, cfg.Log.Format)
	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &app{logger: logger, store: artifact.NewStore(cfg.Output.Dir)}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	provider := opts.provider
	if provider == nil {
		var closer io.Closer
		provider, closer, err = newProvider(ctx, cfg, registry)
		if err != nil {
			return nil, err
		}
		a.addCloser(closer)
	}

	searcher := opts.searcher
	if searcher == nil {
		var closer io.Closer
		searcher, closer, err = newSearcher(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.addCloser(closer)
	}
	searcher = search.Instrument(searcher, logger, metrics)

	toolset := tools.NewSet(
		tools.NewInternetSearch(searcher, cfg.Search.DefaultMaxResults),
		tools.NewOfficialSiteSearch(searcher),
	)

	events := core.MultiEmitter{opts.emitter, eventLog(logger)}

	w, err := worker.New(provider,
		worker.WithTools(toolset),
		worker.WithModel(cfg.LLM.Model),
		worker.WithTemperature(cfg.LLM.Temperature),
		worker.WithMaxTokens(cfg.LLM.MaxTokens),
		worker.WithTimeout(cfg.Worker.Timeout),
		worker.WithMaxToolRounds(cfg.Worker.MaxToolRounds),
		worker.WithStreaming(cfg.Worker.Stream),
		worker.WithEmitter(events),
		worker.WithMetrics(metrics),
		worker.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, errors.New(errors.CodeConfigError, "invalid worker settings", err)
	}

	a.orch, err = orchestrator.New(registry, w,
		orchestrator.WithScreening(cfg.Lead.Screen),
		orchestrator.WithEmitter(events),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases search connections and provider clients.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("app.close.failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

func (a *app) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// eventLog mirrors lifecycle events into the debug log. Stream chunks are
// skipped.
func eventLog(logger *slog.Logger) core.EventEmitter {
	return core.EmitterFunc(func(ctx context.Context, ev core.Event) {
		if ev.Type == core.EventRoleChunk {
			return
		}
		attrs := []any{slog.String("run_id", ev.RunID)}
		if ev.Role != "" {
			attrs = append(attrs, slog.String("role", ev.Role), slog.Int("step", ev.Step))
		}
		if reason, ok := ev.Payload["reason"].(string); ok {
			attrs = append(attrs, slog.String("reason", reason))
		}
		logger.DebugContext(ctx, "event."+string(ev.Type), attrs...)
	})
}

// loadRegistry reads the role table, applying roles.dir and the per-role
// model overrides. lead.model is shorthand for roles.models.lead.
func loadRegistry(cfg *config.Config) (*roles.Registry, error) {
	registry, err := roles.Load(cfg.Roles.Dir)
	if err != nil {
		return nil, errors.New(errors.CodeConfigError, "failed to load roles", err).
			WithContext("setting", "roles.dir")
	}
	models := make(map[string]string, len(cfg.Roles.Models)+1)
	for name, model := range cfg.Roles.Models {
		models[name] = model
	}
	if cfg.Lead.Model != "" {
		models[roles.Lead] = cfg.Lead.Model
	}
	registry, err = registry.WithModels(models)
	if err != nil {
		return nil, errors.New(errors.CodeConfigError, "invalid role model override", err).
			WithContext("setting", "roles.models")
	}
	return registry, nil
}

// newProvider builds the configured model client. The mock provider answers
// every role with canned output so the whole pipeline runs offline.
func newProvider(ctx context.Context, cfg *config.Config, registry *roles.Registry) (llm.Provider, io.Closer, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai", "":
		return openai.New(openai.Config{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		}), nil, nil

	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		}), nil, nil

	case "gemini":
		p, err := gemini.New(ctx, gemini.Config{APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model})
		if err != nil {
			return nil, nil, errors.New(errors.CodeConfigError, "failed to create gemini client", err).
				WithContext("setting", "llm.api_key")
		}
		return p, p, nil

	case "ollama":
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return llm.NewOllama(baseURL, cfg.Worker.Timeout), nil, nil

	case "mock":
		return spectest.NewSampleProvider(registry), nil, nil

	default:
		return nil, nil, errors.New(errors.CodeConfigError,
			fmt.Sprintf("unknown LLM provider: %s", cfg.LLM.Provider), nil).
			WithContext("setting", "llm.provider")
	}
}

func newSearcher(ctx context.Context, cfg *config.Config) (search.Searcher, io.Closer, error) {
	switch strings.ToLower(cfg.Search.Provider) {
	case "tavily", "":
		s, err := search.NewTavily(search.TavilyConfig{
			APIKey:    cfg.Search.APIKey,
			BaseURL:   cfg.Search.BaseURL,
			Timeout:   cfg.Search.Timeout,
			RateLimit: cfg.Search.RateLimit,
			Burst:     cfg.Search.Burst,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case "mcp":
		client, err := dialSearchServer(ctx, cfg.Search.MCP, cfg.Search.Timeout)
		if err != nil {
			return nil, nil, errors.New(errors.CodeSearchError, "failed to connect to mcp search server", err).
				WithContext("setting", "search.mcp")
		}
		ok, err := client.HasTool(ctx, cfg.Search.MCP.Tool)
		if err != nil || !ok {
			_ = client.Close()
			return nil, nil, errors.New(errors.CodeSearchError,
				fmt.Sprintf("mcp search server does not offer tool %q", cfg.Search.MCP.Tool), err).
				WithContext("setting", "search.mcp.tool")
		}
		return search.NewMCPSearcher(client, cfg.Search.MCP.Tool), client, nil

	case "mock":
		return search.NewMockSearcher(), nil, nil

	default:
		return nil, nil, errors.New(errors.CodeConfigError,
			fmt.Sprintf("unknown search provider: %s", cfg.Search.Provider), nil).
			WithContext("setting", "search.provider")
	}
}

func dialSearchServer(ctx context.Context, cfg config.MCPConfig, timeout time.Duration) (*specmcp.Client, error) {
	opts := []specmcp.ClientOption{
		specmcp.WithTimeout(timeout),
		specmcp.WithRetry(mcpRetries, mcpBackoff),
	}
	if cfg.URL != "" {
		return specmcp.DialHTTP(ctx, cfg.URL, opts...)
	}
	return specmcp.DialStdio(ctx, cfg.Command, cfg.Args, nil, opts...)
}
