// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package spectest

import (
	"strings"

	"github.com/jllopis/specforge/pkg/llm"
	"github.com/jllopis/specforge/pkg/orchestrator"
)

// T is the subset of testing.TB used by the assertions.
type T interface {
	Helper()
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
}

// sectionTitles lists the document headings in order.
var sectionTitles = []string{
	"## 1. Research Findings",
	"## 2. Agent Designs",
	"## 3. Workflow Design",
	"## 4. Infrastructure Plan",
	"## 5. Verification Report",
	"## 6. Summary",
}

// DocumentAssertions provides fluent checks over a composed document.
type DocumentAssertions struct {
	t   T
	doc *orchestrator.Document
}

// AssertDocument creates assertions for doc.
func AssertDocument(t T, doc *orchestrator.Document) *DocumentAssertions {
	t.Helper()
	if doc == nil {
		t.Fatal("document is nil")
	}
	return &DocumentAssertions{t: t, doc: doc}
}

// HasTitle checks the first line of the document.
func (a *DocumentAssertions) HasTitle(idea string) *DocumentAssertions {
	a.t.Helper()
	want := "# Agentic App Specification: " + idea
	if first, _, _ := strings.Cut(a.doc.Text, "\n"); first != want {
		a.t.Errorf("title = %q, want %q", first, want)
	}
	return a
}

// HasSections checks that all six headings appear once and in order.
func (a *DocumentAssertions) HasSections() *DocumentAssertions {
	a.t.Helper()
	pos := 0
	for _, title := range sectionTitles {
		if n := strings.Count(a.doc.Text, "\n"+title+"\n"); n != 1 {
			a.t.Errorf("heading %q appears %d times", title, n)
			continue
		}
		i := strings.Index(a.doc.Text, "\n"+title+"\n")
		if i < pos {
			a.t.Errorf("heading %q is out of order", title)
		}
		pos = i
	}
	return a
}

// EndsWithSummary checks that nothing follows the summary section.
func (a *DocumentAssertions) EndsWithSummary() *DocumentAssertions {
	a.t.Helper()
	i := strings.LastIndex(a.doc.Text, "\n## ")
	if i < 0 || !strings.HasPrefix(a.doc.Text[i:], "\n## 6. Summary\n") {
		a.t.Error("summary is not the last section")
	}
	return a
}

// ContainsOutput checks that the output of role appears verbatim.
func (a *DocumentAssertions) ContainsOutput(role, text string) *DocumentAssertions {
	a.t.Helper()
	if !strings.Contains(a.doc.Text, text) {
		a.t.Errorf("output of %s missing from document", role)
	}
	return a
}

// HasFailedRoles checks exactly which roles were replaced by placeholders.
func (a *DocumentAssertions) HasFailedRoles(names ...string) *DocumentAssertions {
	a.t.Helper()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, o := range a.doc.Outputs {
		if o.Failed != want[o.Role] {
			a.t.Errorf("role %s failed=%v, want %v", o.Role, o.Failed, want[o.Role])
		}
		if o.Failed && !strings.HasPrefix(o.Text, "role "+o.Role+" failed: ") {
			a.t.Errorf("role %s placeholder = %q", o.Role, o.Text)
		}
	}
	return a
}

// HasSummary checks the extracted agent count, cost and verdict.
func (a *DocumentAssertions) HasSummary(agents, cost, verdict string) *DocumentAssertions {
	a.t.Helper()
	s := a.doc.Summary
	if s.Agents != agents || s.Cost != cost || s.Verdict != verdict {
		a.t.Errorf("summary = {%s %s %s}, want {%s %s %s}",
			s.Agents, s.Cost, s.Verdict, agents, cost, verdict)
	}
	return a
}

// HasRisks checks the summary risk count.
func (a *DocumentAssertions) HasRisks(n int) *DocumentAssertions {
	a.t.Helper()
	if got := len(a.doc.Summary.Risks); got != n {
		a.t.Errorf("risks = %d, want %d", got, n)
	}
	return a
}

// RequestAssertions provides fluent checks over a chat request.
type RequestAssertions struct {
	t   T
	req llm.ChatRequest
}

// AssertRequest creates assertions for req.
func AssertRequest(t T, req llm.ChatRequest) *RequestAssertions {
	return &RequestAssertions{t: t, req: req}
}

// UserContains checks that the first user message contains every part.
func (a *RequestAssertions) UserContains(parts ...string) *RequestAssertions {
	a.t.Helper()
	for _, m := range a.req.Messages {
		if m.Role != llm.RoleUser {
			continue
		}
		for _, p := range parts {
			if !strings.Contains(m.Content, p) {
				a.t.Errorf("user message does not contain %q", p)
			}
		}
		return a
	}
	a.t.Error("request has no user message")
	return a
}

// UserLacks checks that no user message contains text.
func (a *RequestAssertions) UserLacks(text string) *RequestAssertions {
	a.t.Helper()
	for _, m := range a.req.Messages {
		if m.Role == llm.RoleUser && strings.Contains(m.Content, text) {
			a.t.Errorf("user message unexpectedly contains %q", text)
		}
	}
	return a
}

// HasTools checks the names of the tools offered to the model.
func (a *RequestAssertions) HasTools(names ...string) *RequestAssertions {
	a.t.Helper()
	if len(a.req.Tools) != len(names) {
		a.t.Errorf("tools = %d, want %d", len(a.req.Tools), len(names))
		return a
	}
	for i, n := range names {
		if a.req.Tools[i].Function.Name != n {
			a.t.Errorf("tool %d = %s, want %s", i, a.req.Tools[i].Function.Name, n)
		}
	}
	return a
}
