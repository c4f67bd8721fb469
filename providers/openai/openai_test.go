// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package openai

import (
	"testing"

	"github.com/jllopis/specforge/pkg/llm"
)

func TestNewProviderDefaults(t *testing.T) {
	p := New(Config{APIKey: "test-key"})
	if p.Model() != DefaultModel {
		t.Errorf("expected model %s, got %s", DefaultModel, p.Model())
	}
	p = New(Config{APIKey: "test-key", Model: "gpt-4.1", BaseURL: "http://localhost:9999/v1"})
	if p.Model() != "gpt-4.1" {
		t.Errorf("expected model gpt-4.1, got %s", p.Model())
	}
}

func TestParamsUsesRequestOverrides(t *testing.T) {
	p := New(Config{APIKey: "k", MaxTokens: 100})
	params := p.params(llm.ChatRequest{
		Model:    "gpt-4.1-mini",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Tools: []llm.Tool{{
			Type:     llm.ToolTypeFunction,
			Function: llm.FunctionDef{Name: "internet_search", Parameters: map[string]any{"type": "object"}},
		}},
	})
	if params.Model != "gpt-4.1-mini" {
		t.Errorf("expected request model, got %s", params.Model)
	}
	if len(params.Messages) != 1 || len(params.Tools) != 1 {
		t.Errorf("expected one message and one tool")
	}
	if params.MaxCompletionTokens.Value != 100 {
		t.Errorf("expected provider max tokens, got %v", params.MaxCompletionTokens.Value)
	}
}

func TestConvertMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  llm.Message
	}{
		{name: "system", msg: llm.Message{Role: llm.RoleSystem, Content: "You are a researcher"}},
		{name: "user", msg: llm.Message{Role: llm.RoleUser, Content: "An idea"}},
		{name: "assistant", msg: llm.Message{Role: llm.RoleAssistant, Content: "Findings"}},
		{name: "assistant tool call", msg: llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID: "call_1", Type: llm.ToolTypeFunction,
			Function: llm.FunctionCall{Name: "internet_search", Arguments: `{"query":"x"}`},
		}}}},
		{name: "tool", msg: llm.Message{Role: llm.RoleTool, Content: "[]", ToolCallID: "call_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = convertMessage(tt.msg)
		})
	}
}

func TestToolCallAccumulator(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.add(0, "call_a", "internet_search", `{"que`)
	acc.add(1, "call_b", "search_official_site", `{}`)
	acc.add(0, "", "", `ry":"go"}`)

	calls := acc.calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].ID != "call_a" || calls[0].Function.Arguments != `{"query":"go"}` {
		t.Errorf("unexpected first call %+v", calls[0])
	}
	if calls[1].Function.Name != "search_official_site" {
		t.Errorf("unexpected second call %+v", calls[1])
	}
	if newToolCallAccumulator().calls() != nil {
		t.Errorf("expected nil for no calls")
	}
}
