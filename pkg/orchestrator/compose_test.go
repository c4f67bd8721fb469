// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"strings"
	"testing"

	"github.com/jllopis/specforge/pkg/roles"
)

var sectionOrder = []string{
	"## 1. Research Findings",
	"## 2. Agent Designs",
	"## 3. Workflow Design",
	"## 4. Infrastructure Plan",
	"## 5. Verification Report",
	"## 6. Summary",
}

func assertSectionOrder(t *testing.T, text string) {
	t.Helper()
	prev := -1
	for _, heading := range sectionOrder {
		idx := strings.Index(text, "\n"+heading+"\n")
		if idx < 0 {
			t.Fatalf("missing section %q", heading)
		}
		if idx <= prev {
			t.Fatalf("section %q out of order", heading)
		}
		prev = idx
	}
}

func sampleOutputs() []RoleOutput {
	return []RoleOutput{
		{Role: roles.Researcher, Title: "Researcher", Text: "research"},
		{Role: roles.Designer, Title: "Agent Designer", Text: "### Agent: A\n### Agent: B\n#### Agent: C"},
		{Role: roles.WorkflowPlanner, Title: "Workflow Planner", Text: "workflow"},
		{Role: roles.InfraPlanner, Title: "Infra Planner", Text: "### Cost Estimate\n- **Per run breakdown**:\n  - A: $0.01\n- **Total per run**: ~9K tokens -> $0.027\n"},
		{Role: roles.Verifier, Title: "Verifier", Text: "### Risks Identified\n- **Risk**: one\n- **Risk**: two\n* **Risk**: three\n- **Risk**: four\n\n### Verdict\n**NEEDS REVISION**"},
	}
}

func TestComposeSectionOrderRegardlessOfFailures(t *testing.T) {
	for _, failing := range roles.Pipeline {
		outputs := sampleOutputs()
		for i := range outputs {
			if outputs[i].Role == failing {
				outputs[i].Failed = true
				outputs[i].Text = Placeholder(failing, "timeout")
			}
		}
		assertSectionOrder(t, Compose("Build X", outputs))
	}
}

func TestComposeOrderIndependentOfInputOrder(t *testing.T) {
	outputs := sampleOutputs()
	reversed := make([]RoleOutput, len(outputs))
	for i, o := range outputs {
		reversed[len(outputs)-1-i] = o
	}
	if Compose("Build X", outputs) != Compose("Build X", reversed) {
		t.Error("section order must not depend on the order outputs are passed")
	}
}

func TestComposeIdempotent(t *testing.T) {
	outputs := sampleOutputs()
	first := Compose("Build X", outputs)
	second := Compose("Build X", outputs)
	if first != second {
		t.Fatal("composition must be byte-identical for the same outputs")
	}
}

func TestComposeContent(t *testing.T) {
	text := Compose("  Build   a\ncode reviewer ", sampleOutputs())
	if !strings.HasPrefix(text, "# Agentic App Specification: Build a code reviewer\n") {
		t.Errorf("unexpected title line in %q", strings.SplitN(text, "\n", 2)[0])
	}
	for _, o := range sampleOutputs() {
		if !strings.Contains(text, o.Text) {
			t.Errorf("%s output must appear verbatim", o.Role)
		}
	}
	want := "## 6. Summary\n\n" +
		"- Total agents: 3\n" +
		"- Estimated cost per run: $0.027\n" +
		"- Verdict: NEEDS REVISION\n" +
		"- Key risks:\n" +
		"  - one\n" +
		"  - two\n" +
		"  - three\n"
	if !strings.HasSuffix(text, want) {
		t.Errorf("unexpected summary:\n%s", text[strings.Index(text, "## 6."):])
	}
}

func TestComposeUnknownSummary(t *testing.T) {
	outputs := []RoleOutput{
		{Role: roles.Researcher, Text: "r"},
		{Role: roles.Designer, Text: "no headings here"},
		{Role: roles.WorkflowPlanner, Text: "w"},
		{Role: roles.InfraPlanner, Text: "free of charge"},
		{Role: roles.Verifier, Text: "looks fine"},
	}
	text := Compose("Build X", outputs)
	for _, line := range []string{
		"- Total agents: unknown",
		"- Estimated cost per run: unknown",
		"- Verdict: unknown",
		"- Key risks: unknown",
	} {
		if !strings.Contains(text, line+"\n") {
			t.Errorf("expected %q in summary", line)
		}
	}
}

func TestSummarizeIgnoresFailedOutputs(t *testing.T) {
	outputs := sampleOutputs()
	outputs[4] = RoleOutput{Role: roles.Verifier, Failed: true, Text: "role verifier failed: APPROVED"}
	s := Summarize(outputs)
	if s.Verdict != Unknown {
		t.Errorf("failed verifier must not yield a verdict, got %q", s.Verdict)
	}
	if len(s.Risks) != 1 || s.Risks[0] != "role verifier failed: APPROVED" {
		t.Errorf("unexpected risks %v", s.Risks)
	}
}

func TestExtractCost(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"total per run wins", "- **Per run**: $0.50\n- **Total per run**: $0.063", "$0.063"},
		{"per run line", "### Cost Estimate\n- **Per run**: ~$1,200.50 pessimistic", "~$1,200.50"},
		{"section fallback", "### Cost Estimate\n- Agent A: $0.02\n- Agent B: $0.03\n### Other\n$9", "$0.02"},
		{"optimistic before pessimistic", "- **Total per run**: ~21K tokens → $0.063 (pessimistic $0.12)", "$0.063"},
		{"amount before marker ignored", "- $5 setup, total per run: ~$0.04", "~$0.04"},
		{"no amount", "### Cost Estimate\ncheap", Unknown},
		{"empty", "", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCost(tt.text); got != tt.want {
				t.Errorf("ExtractCost = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractRisks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"colon after bold", "- **Risk**: rate limits", []string{"rate limits"}},
		{"colon inside bold", "- **Risk:** prompt injection\n* **Risk:**   cost overrun  ", []string{"prompt injection", "cost overrun"}},
		{"capped at three", "- **Risk**: a\n- **Risk:** b\n- **Risk**: c\n- **Risk**: d", []string{"a", "b", "c"}},
		{"plain bullets ignored", "- Risk: not marked\n- **Mitigation**: retry", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRisks(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractRisks = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("risk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"verdict section", "APPROVED means nothing here\n### Verdict\n**NEEDS REVISION**", "NEEDS REVISION"},
		{"anywhere", "The design is APPROVED.", "APPROVED"},
		{"lower case is not a token", "approved", Unknown},
		{"empty", "", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVerdict(tt.text); got != tt.want {
				t.Errorf("ExtractVerdict = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountAgents(t *testing.T) {
	if got := CountAgents("### Agent: A\ntext ### Agent: inline\n## Agent: B"); got != "2" {
		t.Errorf("expected 2, got %s", got)
	}
	if got := CountAgents(""); got != Unknown {
		t.Errorf("expected unknown, got %s", got)
	}
}

func TestBuildPayload(t *testing.T) {
	if got := BuildPayload("Build X", nil); got != "Build X" {
		t.Errorf("first role must receive the idea alone, got %q", got)
	}
	prior := []RoleOutput{
		{Role: roles.Researcher, Title: "Researcher", Text: "alpha\n\nbeta"},
		{Role: roles.Designer, Title: "Agent Designer", Text: Placeholder(roles.Designer, "timeout")},
	}
	got := BuildPayload("Build X", prior)
	if !strings.HasPrefix(got, "Idea:\nBuild X\n") {
		t.Errorf("payload must start with the idea, got %q", got)
	}
	a := strings.Index(got, "alpha\n\nbeta")
	b := strings.Index(got, "role designer failed: timeout")
	if a < 0 || b < 0 || a > b {
		t.Errorf("prior outputs must appear in order and in full: %q", got)
	}
}
