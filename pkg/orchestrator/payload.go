// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "strings"

// BuildPayload returns the task text for the next role: the idea followed
// by the full text of every prior output in execution order. With no prior
// outputs the payload is the idea itself.
func BuildPayload(idea string, prior []RoleOutput) string {
	if len(prior) == 0 {
		return idea
	}
	var b strings.Builder
	b.WriteString("Idea:\n")
	b.WriteString(idea)
	for _, o := range prior {
		b.WriteString("\n\n---\n\nOutput from ")
		b.WriteString(o.Title)
		b.WriteString(" (")
		b.WriteString(o.Role)
		b.WriteString("):\n\n")
		b.WriteString(o.Text)
	}
	b.WriteString("\n")
	return b.String()
}
