// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker runs one role against one task payload.
//
// A Worker holds configuration only. Every Execute call builds a fresh
// conversation from the role instructions and the payload, so nothing a
// previous call saw can leak into the next one.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/specforge/pkg/core"
	kerrors "github.com/jllopis/specforge/pkg/errors"
	"github.com/jllopis/specforge/pkg/llm"
	"github.com/jllopis/specforge/pkg/resilience"
	"github.com/jllopis/specforge/pkg/roles"
	"github.com/jllopis/specforge/pkg/telemetry"
	"github.com/jllopis/specforge/pkg/tools"
)

// Worker executes role delegations against an inference provider.
type Worker struct {
	provider      llm.Provider
	tools         *tools.Set
	model         string
	temperature   float64
	maxTokens     int
	timeout       time.Duration
	maxToolRounds int
	stream        bool
	emitter       core.EventEmitter
	metrics       *telemetry.RunMetrics
	logger        *slog.Logger
	tracer        trace.Tracer
}

// Option configures a Worker.
type Option func(*Worker) error

// New creates a Worker for provider.
func New(provider llm.Provider, opts ...Option) (*Worker, error) {
	if provider == nil {
		return nil, errors.New("worker: provider is required")
	}
	w := &Worker{
		provider: provider,
		emitter:  core.NoopEventEmitter{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("specforge/worker"),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// WithTools sets the tools roles may select from.
func WithTools(set *tools.Set) Option {
	return func(w *Worker) error {
		w.tools = set
		return nil
	}
}

// WithModel sets the model used when a role names none.
func WithModel(model string) Option {
	return func(w *Worker) error {
		w.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(w *Worker) error {
		if t < 0 {
			return errors.New("worker: temperature must not be negative")
		}
		w.temperature = t
		return nil
	}
}

// WithMaxTokens bounds the length of each completion.
func WithMaxTokens(n int) Option {
	return func(w *Worker) error {
		w.maxTokens = n
		return nil
	}
}

// WithTimeout bounds one Execute call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(w *Worker) error {
		w.timeout = d
		return nil
	}
}

// WithMaxToolRounds caps how many tool rounds a role may run before it
// must answer in text. Zero means no cap.
func WithMaxToolRounds(n int) Option {
	return func(w *Worker) error {
		if n < 0 {
			return errors.New("worker: max tool rounds must not be negative")
		}
		w.maxToolRounds = n
		return nil
	}
}

// WithStreaming streams completions when the provider supports it and
// emits role.chunk events.
func WithStreaming(enabled bool) Option {
	return func(w *Worker) error {
		w.stream = enabled
		return nil
	}
}

// WithEmitter sets the event sink for chunk events.
func WithEmitter(e core.EventEmitter) Option {
	return func(w *Worker) error {
		if e != nil {
			w.emitter = e
		}
		return nil
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *telemetry.RunMetrics) Option {
	return func(w *Worker) error {
		w.metrics = m
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) error {
		if l != nil {
			w.logger = l
		}
		return nil
	}
}

// Execute formats role.Instructions and payload for the provider, lets the
// model call the role's tools any number of times and returns the first
// complete text answer. Every failure is a CodeWorkerFailure error whose
// reason is available through Reason.
func (w *Worker) Execute(ctx context.Context, role roles.Role, payload string) (string, error) {
	model := w.modelFor(role)
	ctx, span := w.tracer.Start(ctx, "Worker.Execute")
	defer span.End()
	span.SetAttributes(telemetry.RoleAttributes(role.Name, role.Step, model)...)
	runID, _ := core.RunID(ctx)

	text, err := w.execute(ctx, role, model, payload)
	if err != nil {
		reason := Reason(err)
		failure := NewWorkerFailure(role.Name, reason, err)
		span.RecordError(failure)
		span.SetStatus(codes.Error, reason)
		span.SetAttributes(attribute.String(telemetry.AttrErrorCode, string(kerrors.CodeOf(err))))
		w.metrics.RecordError(ctx, failure, "worker")
		w.logger.WarnContext(ctx, "worker.execute.failed",
			slog.String("run_id", runID),
			slog.String("role", role.Name),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return "", failure
	}
	span.SetStatus(codes.Ok, "")
	return text, nil
}

func (w *Worker) execute(ctx context.Context, role roles.Role, model, payload string) (string, error) {
	toolset, err := w.tools.Select(role.Tools)
	if err != nil {
		return "", kerrors.New(kerrors.CodeConfigError, "role capabilities unavailable", err).
			WithContext("role", role.Name)
	}
	return resilience.WithTimeout(ctx, w.timeout, func(ctx context.Context) (string, error) {
		return w.loop(ctx, role, model, payload, toolset)
	})
}

func (w *Worker) loop(ctx context.Context, role roles.Role, model, payload string, toolset []tools.Tool) (string, error) {
	runID, _ := core.RunID(ctx)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: role.Instructions},
		{Role: llm.RoleUser, Content: payload},
	}
	defs := tools.Definitions(toolset)
	byName := make(map[string]tools.Tool, len(toolset))
	for _, t := range toolset {
		byName[t.Name()] = t
	}

	var usage llm.Usage
	defer func() { w.metrics.RecordTokens(ctx, role.Name, usage.TotalTokens) }()

	for round := 0; ; round++ {
		limited := w.maxToolRounds > 0 && round >= w.maxToolRounds
		offered := defs
		if limited {
			offered = nil
		}
		resp, err := w.chat(ctx, role, model, messages, offered)
		if err != nil {
			return "", err
		}
		usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 || limited {
			text := strings.TrimSpace(resp.Content)
			if text == "" {
				return "", kerrors.New(kerrors.CodeWorkerFailure, "model returned no text", nil).
					WithContext("role", role.Name).
					WithContext("reason", ReasonEmpty)
			}
			w.logger.DebugContext(ctx, "worker.execute.complete",
				slog.String("run_id", runID),
				slog.String("role", role.Name),
				slog.Int("rounds", round),
				slog.Int("tokens", usage.TotalTokens),
			)
			return text, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			out := w.callTool(ctx, role, byName, call, round)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    out,
				ToolCallID: call.ID,
			})
		}
	}
}

func (w *Worker) chat(ctx context.Context, role roles.Role, model string, messages []llm.Message, defs []llm.Tool) (*llm.ChatResponse, error) {
	streamer, streaming := w.provider.(llm.StreamingProvider)
	streaming = streaming && w.stream

	ctx, span := w.tracer.Start(ctx, "Worker.LLM.Chat")
	defer span.End()
	span.SetAttributes(telemetry.LLMAttributes(model, len(messages), streaming)...)

	req := llm.ChatRequest{
		Model:       model,
		Messages:    messages,
		Tools:       defs,
		Temperature: w.temperature,
		MaxTokens:   w.maxTokens,
	}

	var (
		resp *llm.ChatResponse
		err  error
	)
	if streaming {
		resp, err = w.chatStream(ctx, streamer, role, req)
	} else {
		resp, err = w.provider.Chat(ctx, req)
	}
	if err != nil {
		runID, _ := core.RunID(ctx)
		wrapped := WrapLLMError(err, model)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, err.Error())
		w.logger.ErrorContext(ctx, "worker.llm.error",
			slog.String("run_id", runID),
			slog.String("role", role.Name),
			slog.String("model", model),
			slog.String("error", err.Error()),
			slog.String("error_code", string(kerrors.CodeLLMError)),
		)
		return nil, wrapped
	}
	span.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, len(resp.ToolCalls))...)
	return resp, nil
}

func (w *Worker) chatStream(ctx context.Context, p llm.StreamingProvider, role roles.Role, req llm.ChatRequest) (*llm.ChatResponse, error) {
	chunks, err := p.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}
	runID, _ := core.RunID(ctx)
	return llm.Collect(chunks, func(content string) {
		ev := core.NewEvent(core.EventRoleChunk, role.Name, map[string]any{"content": content})
		ev.RunID = runID
		ev.Step = role.Step
		ev.Total = len(roles.Pipeline)
		w.emitter.Emit(ctx, ev)
	})
}

func (w *Worker) callTool(ctx context.Context, role roles.Role, byName map[string]tools.Tool, call llm.ToolCall, round int) string {
	runID, _ := core.RunID(ctx)
	name := call.Function.Name
	ctx, span := w.tracer.Start(ctx, "Worker.Tool.Call")
	defer span.End()
	span.SetAttributes(telemetry.ToolCallAttributes(name, call.ID, call.Function.Arguments, round)...)

	t, ok := byName[name]
	if !ok {
		span.SetStatus(codes.Error, "tool not permitted")
		w.metrics.RecordToolCall(ctx, name, false)
		w.logger.WarnContext(ctx, "worker.tool.denied",
			slog.String("run_id", runID),
			slog.String("role", role.Name),
			slog.String("tool", name),
		)
		return toolError("tool " + name + " is not available to this role")
	}

	start := time.Now()
	out, err := t.Call(ctx, call.Function.Arguments)
	if err != nil {
		wrapped := WrapToolError(err, name, call.ID)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, err.Error())
		w.metrics.RecordToolCall(ctx, name, false)
		w.metrics.RecordError(ctx, wrapped, "tool")
		w.logger.WarnContext(ctx, "worker.tool.error",
			slog.String("run_id", runID),
			slog.String("role", role.Name),
			slog.String("tool", name),
			slog.String("tool_call_id", call.ID),
			slog.String("error", err.Error()),
		)
		return toolError(err.Error())
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrToolSuccess, true))
	w.metrics.RecordToolCall(ctx, name, true)
	w.logger.DebugContext(ctx, "worker.tool.complete",
		slog.String("run_id", runID),
		slog.String("role", role.Name),
		slog.String("tool", name),
		slog.Duration("duration", time.Since(start)),
	)
	return out
}

func (w *Worker) modelFor(role roles.Role) string {
	if role.Model != "" {
		return role.Model
	}
	return w.model
}

func toolError(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
