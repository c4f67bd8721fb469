// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package spectest provides utilities for testing specforge runs without a
// model service.
//
// RoleProvider answers each role with scripted replies, recognising the role
// by the instructions in the system message. Document assertions check the
// composed output.
//
//	p := spectest.NewRoleProvider(registry).
//	    Respond(roles.Designer, "### Agent: Reviewer").
//	    Fail(roles.Verifier, errors.New("boom"))
//	w, _ := worker.New(p)
//	doc, _ := orchestrator.New(registry, w).Run(ctx, "Build X")
//	spectest.AssertDocument(t, doc).HasFailedRoles(roles.Verifier)
package spectest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jllopis/specforge/pkg/llm"
	"github.com/jllopis/specforge/pkg/roles"
)

// ScriptedResponse is one reply of a RoleProvider.
type ScriptedResponse struct {
	Content   string
	ToolCalls []llm.ToolCall
	Error     error
	Usage     llm.Usage
}

// RoleProvider is an llm.Provider whose replies are scripted per role.
// Each role consumes its queue in order and repeats the last entry once the
// queue is exhausted.
type RoleProvider struct {
	mu       sync.Mutex
	byPrompt map[string]string
	queues   map[string][]ScriptedResponse
	requests map[string][]llm.ChatRequest
	order    []string
}

// NewRoleProvider creates a provider that recognises the roles of registry.
func NewRoleProvider(registry *roles.Registry) *RoleProvider {
	p := &RoleProvider{
		byPrompt: make(map[string]string),
		queues:   make(map[string][]ScriptedResponse),
		requests: make(map[string][]llm.ChatRequest),
	}
	all := append([]roles.Role{registry.Lead()}, registry.Ordered()...)
	for _, r := range all {
		p.byPrompt[r.Instructions] = r.Name
	}
	return p
}

// Respond queues a text reply for role.
func (p *RoleProvider) Respond(role, content string) *RoleProvider {
	return p.Add(role, ScriptedResponse{Content: content})
}

// CallTool queues a reply asking for one tool call.
func (p *RoleProvider) CallTool(role string, call llm.ToolCall) *RoleProvider {
	return p.Add(role, ScriptedResponse{ToolCalls: []llm.ToolCall{call}})
}

// Fail queues an error for role.
func (p *RoleProvider) Fail(role string, err error) *RoleProvider {
	return p.Add(role, ScriptedResponse{Error: err})
}

// Add queues a fully configured reply for role.
func (p *RoleProvider) Add(role string, resp ScriptedResponse) *RoleProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[role] = append(p.queues[role], resp)
	return p
}

// Chat implements llm.Provider.
func (p *RoleProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	role, ok := p.roleOf(req)
	if !ok {
		return nil, fmt.Errorf("spectest: request carries no known role instructions")
	}
	p.requests[role] = append(p.requests[role], req)
	p.order = append(p.order, role)

	queue := p.queues[role]
	if len(queue) == 0 {
		return nil, fmt.Errorf("spectest: no scripted response for role %s", role)
	}
	resp := queue[0]
	if len(queue) > 1 {
		p.queues[role] = queue[1:]
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	usage := resp.Usage
	if usage.TotalTokens == 0 {
		usage = llm.Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}
	}
	return &llm.ChatResponse{
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     usage,
	}, nil
}

func (p *RoleProvider) roleOf(req llm.ChatRequest) (string, bool) {
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			role, ok := p.byPrompt[m.Content]
			return role, ok
		}
	}
	return "", false
}

// Requests returns a copy of the requests received for role.
func (p *RoleProvider) Requests(role string) []llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.ChatRequest, len(p.requests[role]))
	copy(out, p.requests[role])
	return out
}

// Calls returns the roles in the order their requests arrived.
func (p *RoleProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// ToolCallBuilder helps construct tool calls for testing.
type ToolCallBuilder struct {
	id   string
	name string
	args map[string]any
}

// NewToolCall creates a new tool call builder.
func NewToolCall(name string) *ToolCallBuilder {
	return &ToolCallBuilder{name: name, args: make(map[string]any)}
}

// WithID sets the tool call ID.
func (b *ToolCallBuilder) WithID(id string) *ToolCallBuilder {
	b.id = id
	return b
}

// WithArg adds an argument to the tool call.
func (b *ToolCallBuilder) WithArg(key string, value any) *ToolCallBuilder {
	b.args[key] = value
	return b
}

// Build creates the tool call.
func (b *ToolCallBuilder) Build() llm.ToolCall {
	argsJSON, _ := json.Marshal(b.args)
	return llm.ToolCall{
		ID:   b.id,
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionCall{
			Name:      b.name,
			Arguments: string(argsJSON),
		},
	}
}
