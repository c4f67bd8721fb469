// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package spectest

import "github.com/jllopis/specforge/pkg/roles"

// SampleOutputs returns a canned reply per role. The replies carry every
// marker the summary looks for: two agent headings, a per-run cost, a
// verdict and two risks.
func SampleOutputs() map[string]string {
	return map[string]string{
		roles.Lead: "PROCEED",
		roles.Researcher: `### Similar Systems
- Existing assistants review diffs and comment inline.

### Recommended Approach
A small team of cooperating agents with a shared context.`,
		roles.Designer: `### Agent: Coordinator
- Responsibilities: routes work and assembles results.

### Agent: Reviewer
- Responsibilities: reads the input and writes findings.`,
		roles.WorkflowPlanner: `### Flow
1. Coordinator receives the request.
2. Reviewer produces findings.
3. Coordinator publishes the result.`,
		roles.InfraPlanner: `### Deployment
Single container behind an API gateway.

### Cost Estimate
- Model calls: ~$0.04
- Total per run: ~$0.05`,
		roles.Verifier: `### Findings
- **Risk**: prompt injection through reviewed content
- **Risk**: rate limits on the model service

### Verdict
APPROVED`,
	}
}

// NewSampleProvider returns a RoleProvider answering every role of registry
// with SampleOutputs. It runs the whole pipeline without a model service.
func NewSampleProvider(registry *roles.Registry) *RoleProvider {
	p := NewRoleProvider(registry)
	for role, text := range SampleOutputs() {
		p.Respond(role, text)
	}
	return p
}
