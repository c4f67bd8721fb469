// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"github.com/jllopis/specforge/pkg/core"
	"github.com/jllopis/specforge/pkg/roles"
)

// RoleOutput is the stored result of one role: its text, or the
// placeholder note that replaced it.
type RoleOutput struct {
	Role   string
	Title  string
	Text   string
	Failed bool
	Reason string
}

// runState is owned by a single Run call and never shared.
type runState struct {
	id    string
	idea  string
	order []roles.Role
	tasks map[string]*core.Task
}

func newRunState(id, idea string, order []roles.Role) *runState {
	s := &runState{
		id:    id,
		idea:  idea,
		order: order,
		tasks: make(map[string]*core.Task, len(order)),
	}
	for _, r := range order {
		s.tasks[r.Name] = core.NewTask(r.Name)
	}
	return s
}

// outputs returns the finished roles in execution order.
func (s *runState) outputs() []RoleOutput {
	out := make([]RoleOutput, 0, len(s.order))
	for _, r := range s.order {
		t := s.tasks[r.Name]
		if !t.Done() {
			continue
		}
		out = append(out, RoleOutput{
			Role:   r.Name,
			Title:  r.Title,
			Text:   t.Output,
			Failed: t.Status == core.TaskStatusFailed,
			Reason: t.Error,
		})
	}
	return out
}

func (s *runState) counts() (completed, failed int) {
	for _, t := range s.tasks {
		switch t.Status {
		case core.TaskStatusCompleted:
			completed++
		case core.TaskStatusFailed:
			failed++
		}
	}
	return completed, failed
}

// Placeholder is the note stored in place of a failed role's output.
func Placeholder(role, reason string) string {
	return "role " + role + " failed: " + reason
}
