// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"strconv"
	"strings"

	"github.com/jllopis/specforge/pkg/roles"
)

// Document is the composed result of a run.
type Document struct {
	RunID   string
	Idea    string
	Outputs []RoleOutput
	Summary Summary
	Text    string
}

// Failed returns how many roles were replaced by placeholders.
func (d *Document) Failed() int {
	n := 0
	for _, o := range d.Outputs {
		if o.Failed {
			n++
		}
	}
	return n
}

// String returns the document text.
func (d *Document) String() string { return d.Text }

// sectionHeadings maps pipeline roles to their document headings, in
// execution order.
var sectionHeadings = []struct {
	role    string
	heading string
}{
	{roles.Researcher, "Research Findings"},
	{roles.Designer, "Agent Designs"},
	{roles.WorkflowPlanner, "Workflow Design"},
	{roles.InfraPlanner, "Infrastructure Plan"},
	{roles.Verifier, "Verification Report"},
}

// Compose renders the final document. It is a pure function of its
// arguments: the same idea and outputs always produce the same text.
func Compose(idea string, outputs []RoleOutput) string {
	byRole := make(map[string]RoleOutput, len(outputs))
	for _, o := range outputs {
		byRole[o.Role] = o
	}

	var b strings.Builder
	b.WriteString("# Agentic App Specification: ")
	b.WriteString(strings.Join(strings.Fields(idea), " "))
	b.WriteString("\n")

	for i, sec := range sectionHeadings {
		b.WriteString("\n## ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(sec.heading)
		b.WriteString("\n\n")
		if o, ok := byRole[sec.role]; ok {
			b.WriteString(o.Text)
		} else {
			b.WriteString(Placeholder(sec.role, "no output recorded"))
		}
		b.WriteString("\n")
	}

	s := Summarize(outputs)
	b.WriteString("\n## ")
	b.WriteString(strconv.Itoa(len(sectionHeadings) + 1))
	b.WriteString(". Summary\n\n")
	b.WriteString("- Total agents: " + s.Agents + "\n")
	b.WriteString("- Estimated cost per run: " + s.Cost + "\n")
	b.WriteString("- Verdict: " + s.Verdict + "\n")
	if len(s.Risks) == 0 {
		b.WriteString("- Key risks: " + Unknown + "\n")
	} else {
		b.WriteString("- Key risks:\n")
		for _, r := range s.Risks {
			b.WriteString("  - " + r + "\n")
		}
	}
	return b.String()
}
