// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus describes the lifecycle state of one role's delegation.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one delegation of a payload to a role within a run.
// Transitions are pending -> running -> completed | failed; any other
// transition is ignored and reported as false.
type Task struct {
	ID         string
	Role       string
	Status     TaskStatus
	Output     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewTask creates a pending task for role with a generated ID.
func NewTask(role string) *Task {
	return &Task{
		ID:     uuid.NewString(),
		Role:   role,
		Status: TaskStatusPending,
	}
}

// Start marks the task as running.
func (t *Task) Start() bool {
	if t.Status != TaskStatusPending {
		return false
	}
	t.Status = TaskStatusRunning
	t.StartedAt = time.Now().UTC()
	return true
}

// Complete marks the task as completed with its output.
func (t *Task) Complete(output string) bool {
	if t.Status != TaskStatusRunning {
		return false
	}
	t.Status = TaskStatusCompleted
	t.Output = output
	t.FinishedAt = time.Now().UTC()
	return true
}

// Fail marks the task as failed. placeholder is stored as the output so
// downstream roles still see a well-formed entry.
func (t *Task) Fail(reason, placeholder string) bool {
	if t.Status != TaskStatusRunning {
		return false
	}
	t.Status = TaskStatusFailed
	t.Error = reason
	t.Output = placeholder
	t.FinishedAt = time.Now().UTC()
	return true
}

// Done reports whether the task left the pending/running states.
func (t *Task) Done() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// Duration returns how long the task ran, or zero if it never finished.
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}
