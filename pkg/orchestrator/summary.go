// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jllopis/specforge/pkg/roles"
)

// Unknown is used for every Summary field that could not be extracted.
const Unknown = "unknown"

const maxRisks = 3

// Summary is derived from the stored outputs by pattern matching. Missing
// markers degrade to Unknown; extraction never fails a run.
type Summary struct {
	Agents  string
	Cost    string
	Verdict string
	Risks   []string
}

var (
	agentHeading = regexp.MustCompile(`(?m)^#{2,4}[ \t]*Agent:`)
	dollarAmount = regexp.MustCompile(`~?\$[0-9][0-9,]*(?:\.[0-9]+)?`)
	verdictToken = regexp.MustCompile(`NEEDS REVISION|APPROVED`)
	riskLine     = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]*\*\*Risk:?\*\*:?[ \t]*(.+?)[ \t]*$`)
	sectionHead  = regexp.MustCompile(`(?m)^#{1,6}[ \t]`)

	costMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total per run`),
		regexp.MustCompile(`(?i)per run`),
	}
)

// Summarize computes the Summary over outputs.
func Summarize(outputs []RoleOutput) Summary {
	byRole := make(map[string]RoleOutput, len(outputs))
	for _, o := range outputs {
		byRole[o.Role] = o
	}
	text := func(role string) string {
		o, ok := byRole[role]
		if !ok || o.Failed {
			return ""
		}
		return o.Text
	}

	s := Summary{
		Agents:  CountAgents(text(roles.Designer)),
		Cost:    ExtractCost(text(roles.InfraPlanner)),
		Verdict: ExtractVerdict(text(roles.Verifier)),
	}
	for _, o := range outputs {
		if o.Failed {
			s.Risks = append(s.Risks, o.Text)
		}
	}
	s.Risks = append(s.Risks, ExtractRisks(text(roles.Verifier))...)
	if len(s.Risks) > maxRisks {
		s.Risks = s.Risks[:maxRisks]
	}
	return s
}

// CountAgents counts "### Agent:" headings in the designer output.
func CountAgents(text string) string {
	n := len(agentHeading.FindAllStringIndex(text, -1))
	if n == 0 {
		return Unknown
	}
	return strconv.Itoa(n)
}

// ExtractCost returns the per-run cost figure from the infra plan. It
// prefers the first amount after "Total per run", then after "Per run",
// then the first amount in the Cost Estimate section. Optimistic figures
// come first, so later amounts on the line are ignored.
func ExtractCost(text string) string {
	if text == "" {
		return Unknown
	}
	for _, marker := range costMarkers {
		for _, line := range strings.Split(text, "\n") {
			loc := marker.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if amount := dollarAmount.FindString(line[loc[1]:]); amount != "" {
				return amount
			}
		}
	}
	if sec := section(text, "cost estimate"); sec != "" {
		if amount := dollarAmount.FindString(sec); amount != "" {
			return amount
		}
	}
	return Unknown
}

// ExtractVerdict returns APPROVED or NEEDS REVISION, looking in the
// Verdict section first.
func ExtractVerdict(text string) string {
	if text == "" {
		return Unknown
	}
	if sec := section(text, "verdict"); sec != "" {
		if tok := verdictToken.FindString(sec); tok != "" {
			return tok
		}
	}
	if tok := verdictToken.FindString(text); tok != "" {
		return tok
	}
	return Unknown
}

// ExtractRisks returns up to three "**Risk**:" items from the verifier
// output.
func ExtractRisks(text string) []string {
	var out []string
	for _, m := range riskLine.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
		if len(out) == maxRisks {
			break
		}
	}
	return out
}

// section returns the body of the first heading whose title contains name,
// up to the next heading.
func section(text, name string) string {
	heads := sectionHead.FindAllStringIndex(text, -1)
	for i, h := range heads {
		lineEnd := strings.IndexByte(text[h[0]:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text) - h[0]
		}
		title := strings.ToLower(text[h[0] : h[0]+lineEnd])
		if !strings.Contains(title, name) {
			continue
		}
		end := len(text)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		return text[h[0]+lineEnd : end]
	}
	return ""
}
