// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jllopis/specforge/pkg/errors"
)

// CLIError wraps an *errors.Error with CLI-specific formatting and hints.
type CLIError struct {
	Err  *errors.Error
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(e *errors.Error, hint string) *CLIError {
	return &CLIError{Err: e, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	msg := e.Err.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the wrapped error to errors.Is/As.
func (e *CLIError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

type jsonError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// PrintError prints the error with appropriate formatting.
func (e *CLIError) PrintError(w io.Writer, asJSON bool) {
	if asJSON {
		payload, _ := json.Marshal(map[string]jsonError{"error": {
			Code:    string(e.Err.Code),
			Message: e.message(),
			Hint:    e.Hint,
			Context: e.Err.Context,
		}})
		fmt.Fprintln(w, string(payload))
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", FormatErrorCode(e.Err.Code), e.message())
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

func (e *CLIError) message() string {
	if e.Err.Err != nil {
		return e.Err.Message + ": " + e.Err.Err.Error()
	}
	return e.Err.Message
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	e := errors.New(errors.CodeInputRejected, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg).
		WithRecoverable(false)
	return NewCLIError(e, "run 'specforge help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	e := errors.AsError(err)
	if e.Code != errors.CodeConfigError {
		e = errors.New(errors.CodeConfigError, "configuration error", err)
	}
	if configPath != "" {
		e.WithContext("config_path", configPath)
	}
	hint := "check the SPECFORGE_* environment and --set overrides"
	if setting, ok := e.Context["setting"].(string); ok {
		hint = fmt.Sprintf("set %s in the config file, with SPECFORGE_* or with --set", setting)
	} else if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(e, hint)
}

// WrapRunError attaches a hint matching the run failure mode.
func WrapRunError(err error) *CLIError {
	e := errors.AsError(err)
	switch e.Code {
	case errors.CodeInputRejected:
		return NewCLIError(e, "describe the application you want in one or two sentences")
	case errors.CodeRunFailure:
		if e.Context["reason"] == "aborted" {
			return NewCLIError(e, "")
		}
		return NewCLIError(e, "no role produced output; check llm.provider credentials and connectivity")
	case errors.CodeConfigError:
		return NewConfigError(e, "")
	default:
		return NewCLIError(e, "")
	}
}

// PrintSimpleError prints a simple error message (for non-CLIError cases).
func PrintSimpleError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		payload, _ := json.Marshal(map[string]jsonError{"error": {
			Code:    "UNKNOWN",
			Message: err.Error(),
		}})
		fmt.Fprintln(w, string(payload))
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInputRejected:
		return "Input Rejected"
	case errors.CodeWorkerFailure:
		return "Worker Failure"
	case errors.CodeRunFailure:
		return "Run Failure"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeLLMError:
		return "LLM Error"
	case errors.CodeToolFailure:
		return "Tool Failure"
	case errors.CodeSearchError:
		return "Search Error"
	case errors.CodeConfigError:
		return "Configuration Error"
	default:
		return string(code)
	}
}
