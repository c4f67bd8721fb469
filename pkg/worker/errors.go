// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	stderrors "errors"

	"github.com/jllopis/specforge/pkg/errors"
)

// Failure reasons reported in placeholders.
const (
	ReasonTimeout     = "timeout"
	ReasonEmpty       = "empty response"
	ReasonAborted     = "aborted"
	ReasonUnavailable = "inference unavailable"
)

// WrapLLMError wraps an inference provider error with the model it was
// sent to.
func WrapLLMError(err error, model string) *errors.Error {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeLLMError, "LLM call failed", err).
		WithContext("model", model).
		WithAttribute("llm.model", model).
		WithRecoverable(true)
}

// WrapToolError wraps a tool execution error.
func WrapToolError(err error, toolName, toolCallID string) *errors.Error {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeToolFailure, "tool execution failed", err).
		WithContext("tool_name", toolName).
		WithContext("tool_call_id", toolCallID).
		WithAttribute("tool.name", toolName).
		WithRecoverable(true)
}

// NewWorkerFailure reports that role produced no usable text.
func NewWorkerFailure(role, reason string, cause error) *errors.Error {
	return errors.New(errors.CodeWorkerFailure, "role "+role+" failed", cause).
		WithContext("role", role).
		WithContext("reason", reason).
		WithAttribute("worker.role", role).
		WithRecoverable(true)
}

// Reason extracts the short failure reason carried by err.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *errors.Error
	if stderrors.As(err, &e) && e.Code == errors.CodeWorkerFailure {
		if reason, ok := e.Context["reason"].(string); ok && reason != "" {
			return reason
		}
	}
	return classify(err)
}

func classify(err error) string {
	switch {
	case errors.IsCode(err, errors.CodeTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case stderrors.Is(err, context.Canceled):
		return ReasonAborted
	case errors.IsCode(err, errors.CodeLLMError):
		return llmReason(err)
	default:
		return err.Error()
	}
}

func llmReason(err error) string {
	for e := errors.AsError(err); e != nil; {
		if e.Code == errors.CodeLLMError {
			if e.Err != nil {
				return ReasonUnavailable + ": " + e.Err.Error()
			}
			break
		}
		var next *errors.Error
		if !stderrors.As(e.Err, &next) {
			break
		}
		e = next
	}
	return ReasonUnavailable
}
