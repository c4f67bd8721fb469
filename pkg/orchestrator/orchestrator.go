// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator owns the delegation loop: it hands the idea to each
// pipeline role in turn, threads every prior output into the next payload,
// keeps going when a role fails and composes the final document.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/specforge/pkg/core"
	kerrors "github.com/jllopis/specforge/pkg/errors"
	"github.com/jllopis/specforge/pkg/roles"
	"github.com/jllopis/specforge/pkg/telemetry"
	"github.com/jllopis/specforge/pkg/worker"
)

// Executor runs one role against one payload.
type Executor interface {
	Execute(ctx context.Context, role roles.Role, payload string) (string, error)
}

// Orchestrator runs the fixed role pipeline. It keeps no per-run state, so
// one value can serve any number of runs.
type Orchestrator struct {
	registry *roles.Registry
	exec     Executor
	screen   bool
	emitter  core.EventEmitter
	metrics  *telemetry.RunMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// New creates an Orchestrator over registry using exec to run roles.
func New(registry *roles.Registry, exec Executor, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("orchestrator: role registry is required")
	}
	if exec == nil {
		return nil, errors.New("orchestrator: executor is required")
	}
	o := &Orchestrator{
		registry: registry,
		exec:     exec,
		emitter:  core.NoopEventEmitter{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("specforge/orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithScreening enables the lead's judgment of the idea before delegation.
func WithScreening(enabled bool) Option {
	return func(o *Orchestrator) error {
		o.screen = enabled
		return nil
	}
}

// WithEmitter sets the progress event sink.
func WithEmitter(e core.EventEmitter) Option {
	return func(o *Orchestrator) error {
		if e != nil {
			o.emitter = e
		}
		return nil
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *telemetry.RunMetrics) Option {
	return func(o *Orchestrator) error {
		o.metrics = m
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}

// Run turns idea into a Document.
//
// A role that fails is recorded as a placeholder note and the sequence
// continues. The run fails with CodeRunFailure only when no role produced
// output, and with CodeInputRejected when the idea is empty or the lead
// asked for clarification.
func (o *Orchestrator) Run(ctx context.Context, idea string) (*Document, error) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Run")
	defer span.End()
	span.SetAttributes(telemetry.RunAttributes(runID, idea)...)

	if strings.TrimSpace(idea) == "" {
		err := NewInputRejected("idea is empty").WithContext("run_id", runID)
		o.finishRejected(ctx, span, runID, err)
		return nil, err
	}

	o.logger.InfoContext(ctx, "orchestrator.run.start",
		slog.String("run_id", runID),
		slog.Int("roles", len(roles.Pipeline)),
	)
	o.emit(ctx, runID, core.EventRunStarted, "", 0, map[string]any{"idea": idea})

	if o.screen {
		if err := o.screenIdea(ctx, runID, idea); err != nil {
			o.finishRejected(ctx, span, runID, err)
			return nil, err
		}
	}

	state := newRunState(runID, idea, o.registry.Ordered())
	for _, role := range state.order {
		o.delegate(ctx, state, role)
	}

	completed, failed := state.counts()
	if err := ctx.Err(); err != nil {
		return nil, o.finishFailed(ctx, span, runID, ReasonAborted, err, failed)
	}
	if completed == 0 {
		return nil, o.finishFailed(ctx, span, runID, ReasonNoOutput, nil, failed)
	}

	outputs := state.outputs()
	doc := &Document{
		RunID:   runID,
		Idea:    idea,
		Outputs: outputs,
		Summary: Summarize(outputs),
		Text:    Compose(idea, outputs),
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrRunOutcome, "completed"),
		attribute.Int(telemetry.AttrRunFailed, failed),
	)
	span.SetStatus(codes.Ok, "")
	o.metrics.RecordRun(ctx, "completed", failed)
	o.logger.InfoContext(ctx, "orchestrator.run.complete",
		slog.String("run_id", runID),
		slog.Int("completed", completed),
		slog.Int("failed", failed),
		slog.String("verdict", doc.Summary.Verdict),
	)
	o.emit(ctx, runID, core.EventRunCompleted, "", 0, map[string]any{
		"outcome":   "completed",
		"completed": completed,
		"failed":    failed,
		"length":    len(doc.Text),
	})
	return doc, nil
}

// delegate runs one role and records its outcome in state. It never
// returns an error: a failure becomes the role's placeholder output.
func (o *Orchestrator) delegate(ctx context.Context, state *runState, role roles.Role) {
	task := state.tasks[role.Name]
	payload := BuildPayload(state.idea, state.outputs())

	ctx = core.WithRole(ctx, role.Name)
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Role")
	defer span.End()
	span.SetAttributes(telemetry.RoleAttributes(role.Name, role.Step, role.Model)...)

	task.Start()
	o.logger.InfoContext(ctx, "orchestrator.role.start",
		slog.String("run_id", state.id),
		slog.String("role", role.Name),
		slog.Int("step", role.Step),
		slog.Int("payload_len", len(payload)),
	)
	o.emit(ctx, state.id, core.EventRoleStarted, role.Name, role.Step, map[string]any{
		"title":    role.Title,
		"activity": role.Activity,
	})

	var (
		text string
		err  error
	)
	if cerr := ctx.Err(); cerr != nil {
		err = cerr
	} else {
		text, err = o.exec.Execute(ctx, role, payload)
		if err == nil && strings.TrimSpace(text) == "" {
			err = worker.NewWorkerFailure(role.Name, worker.ReasonEmpty, nil)
		}
	}

	if err != nil {
		reason := worker.Reason(err)
		task.Fail(reason, Placeholder(role.Name, reason))
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		span.SetAttributes(attribute.String(telemetry.AttrRoleStatus, string(core.TaskStatusFailed)))
		o.metrics.RecordRole(ctx, role.Name, string(core.TaskStatusFailed), task.Duration())
		o.logger.WarnContext(ctx, "orchestrator.role.failed",
			slog.String("run_id", state.id),
			slog.String("role", role.Name),
			slog.String("reason", reason),
			slog.Duration("duration", task.Duration()),
		)
		o.emit(ctx, state.id, core.EventRoleFailed, role.Name, role.Step, map[string]any{
			"reason":   reason,
			"duration": task.Duration(),
		})
		return
	}

	task.Complete(text)
	span.SetAttributes(attribute.String(telemetry.AttrRoleStatus, string(core.TaskStatusCompleted)))
	span.SetStatus(codes.Ok, "")
	o.metrics.RecordRole(ctx, role.Name, string(core.TaskStatusCompleted), task.Duration())
	o.logger.InfoContext(ctx, "orchestrator.role.complete",
		slog.String("run_id", state.id),
		slog.String("role", role.Name),
		slog.Int("output_len", len(text)),
		slog.Duration("duration", task.Duration()),
	)
	o.emit(ctx, state.id, core.EventRoleCompleted, role.Name, role.Step, map[string]any{
		"duration": task.Duration(),
		"length":   len(text),
	})
}

func (o *Orchestrator) finishRejected(ctx context.Context, span trace.Span, runID string, err *kerrors.Error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	span.SetAttributes(attribute.String(telemetry.AttrRunOutcome, "rejected"))
	o.metrics.RecordRun(ctx, "rejected", 0)
	o.logger.InfoContext(ctx, "orchestrator.run.rejected",
		slog.String("run_id", runID),
		slog.String("reason", err.Message),
	)
	o.emit(ctx, runID, core.EventRunCompleted, "", 0, map[string]any{
		"outcome": "rejected",
		"reason":  err.Message,
	})
}

func (o *Orchestrator) finishFailed(ctx context.Context, span trace.Span, runID, reason string, cause error, failed int) error {
	err := NewRunFailure(runID, reason, cause)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	span.SetAttributes(
		attribute.String(telemetry.AttrRunOutcome, "failed"),
		attribute.Int(telemetry.AttrRunFailed, failed),
	)
	o.metrics.RecordRun(ctx, "failed", failed)
	o.metrics.RecordError(ctx, err, "orchestrator")
	o.logger.ErrorContext(ctx, "orchestrator.run.failed",
		slog.String("run_id", runID),
		slog.String("reason", reason),
		slog.Int("failed", failed),
		slog.String("error_code", string(kerrors.CodeRunFailure)),
	)
	o.emit(ctx, runID, core.EventRunCompleted, "", 0, map[string]any{
		"outcome": "failed",
		"reason":  reason,
		"failed":  failed,
	})
	return err
}

func (o *Orchestrator) emit(ctx context.Context, runID string, t core.EventType, role string, step int, payload map[string]any) {
	ev := core.NewEvent(t, role, payload)
	ev.RunID = runID
	ev.Step = step
	ev.Total = len(roles.Pipeline)
	o.emitter.Emit(ctx, ev)
}

// Roles returns the pipeline roles in execution order.
func (o *Orchestrator) Roles() []roles.Role {
	return o.registry.Ordered()
}
