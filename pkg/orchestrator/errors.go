// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"github.com/jllopis/specforge/pkg/errors"
)

// Run failure reasons.
const (
	ReasonNoOutput = "no role produced output"
	ReasonAborted  = "aborted"
)

// NewInputRejected reports that nothing was delegated because the idea was
// empty or the lead asked for clarification.
func NewInputRejected(msg string) *errors.Error {
	return errors.New(errors.CodeInputRejected, msg, nil).
		WithRecoverable(false)
}

// NewRunFailure reports a run that ended without usable output.
func NewRunFailure(runID, reason string, cause error) *errors.Error {
	return errors.New(errors.CodeRunFailure, "run failed: "+reason, cause).
		WithContext("run_id", runID).
		WithContext("reason", reason).
		WithAttribute("run.id", runID).
		WithRecoverable(false)
}
