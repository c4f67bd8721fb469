// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/specforge/pkg/errors"
)

// RunMetrics records run, role, tool and error counters. A nil
// *RunMetrics is valid and records nothing.
type RunMetrics struct {
	runs         metric.Int64Counter
	roleOutcomes metric.Int64Counter
	roleDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	tokens       metric.Int64Counter
	errors       metric.Int64Counter
}

// NewRunMetrics creates the instruments on the global meter provider.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter("specforge")
	m := &RunMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("specforge.runs.total",
		metric.WithDescription("Completed runs by outcome")); err != nil {
		return nil, err
	}
	if m.roleOutcomes, err = meter.Int64Counter("specforge.roles.total",
		metric.WithDescription("Role delegations by role and status")); err != nil {
		return nil, err
	}
	if m.roleDuration, err = meter.Float64Histogram("specforge.roles.duration",
		metric.WithDescription("Role delegation latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.toolCalls, err = meter.Int64Counter("specforge.tools.calls",
		metric.WithDescription("Tool calls by tool and success")); err != nil {
		return nil, err
	}
	if m.tokens, err = meter.Int64Counter("specforge.llm.tokens",
		metric.WithDescription("Tokens consumed by role")); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("specforge.errors.total",
		metric.WithDescription("Errors by code and component")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRun counts a finished run. outcome is completed, rejected or failed.
func (m *RunMetrics) RecordRun(ctx context.Context, outcome string, failedRoles int) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrRunOutcome, outcome),
		attribute.Int(AttrRunFailed, failedRoles),
	))
}

// RecordRole counts one role outcome and its latency.
func (m *RunMetrics) RecordRole(ctx context.Context, role, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrRoleName, role),
		attribute.String(AttrRoleStatus, status),
	)
	m.roleOutcomes.Add(ctx, 1, attrs)
	m.roleDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordToolCall counts one tool invocation.
func (m *RunMetrics) RecordToolCall(ctx context.Context, tool string, success bool) {
	if m == nil {
		return
	}
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrToolName, tool),
		attribute.Bool(AttrToolSuccess, success),
	))
}

// RecordTokens adds token usage for a role.
func (m *RunMetrics) RecordTokens(ctx context.Context, role string, total int) {
	if m == nil || total <= 0 {
		return
	}
	m.tokens.Add(ctx, int64(total), metric.WithAttributes(attribute.String(AttrRoleName, role)))
}

// RecordError counts err by its code. Untyped errors count as UNKNOWN.
func (m *RunMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	code := string(errors.CodeOf(err))
	if code == "" {
		code = "UNKNOWN"
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String("component", component),
	))
}
