// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package anthropic

import (
	"testing"

	"github.com/jllopis/specforge/pkg/llm"
)

func TestNewProviderDefaults(t *testing.T) {
	p := New(Config{APIKey: "test-key"})
	if p.Model() != DefaultModel {
		t.Errorf("expected model %s, got %s", DefaultModel, p.Model())
	}
	if p.maxTokens != DefaultMaxTokens {
		t.Errorf("expected maxTokens %d, got %d", DefaultMaxTokens, p.maxTokens)
	}

	p = New(Config{APIKey: "test-key", Model: "claude-opus-4-20250514", MaxTokens: 8192})
	if p.Model() != "claude-opus-4-20250514" || p.maxTokens != 8192 {
		t.Errorf("expected overrides, got %s/%d", p.Model(), p.maxTokens)
	}
}

func TestParamsJoinsSystemMessages(t *testing.T) {
	p := New(Config{APIKey: "k"})
	params := p.params(llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are the verifier."},
			{Role: llm.RoleSystem, Content: "Be strict."},
			{Role: llm.RoleUser, Content: "Review this."},
		},
		MaxTokens: 512,
	})
	if len(params.System) != 1 || params.System[0].Text != "You are the verifier.\n\nBe strict." {
		t.Errorf("unexpected system prompt %+v", params.System)
	}
	if len(params.Messages) != 1 {
		t.Errorf("expected system messages to be removed from the list, got %d", len(params.Messages))
	}
	if params.MaxTokens != 512 {
		t.Errorf("expected request max tokens, got %d", params.MaxTokens)
	}
}

func TestConvertMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  llm.Message
	}{
		{name: "user", msg: llm.Message{Role: llm.RoleUser, Content: "Hello"}},
		{name: "assistant", msg: llm.Message{Role: llm.RoleAssistant, Content: "Hi"}},
		{name: "assistant tool use", msg: llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID: "toolu_1", Type: llm.ToolTypeFunction,
			Function: llm.FunctionCall{Name: "internet_search", Arguments: `{"query":"crewai"}`},
		}}}},
		{name: "tool result", msg: llm.Message{Role: llm.RoleTool, Content: "[]", ToolCallID: "toolu_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = convertMessage(tt.msg)
		})
	}
}

func TestConvertTool(t *testing.T) {
	tool := llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        "internet_search",
			Description: "Search the web",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
				},
				"required": []string{"query"},
			},
		},
	}
	got := convertTool(tool)
	if got.OfTool == nil || got.OfTool.Name != "internet_search" {
		t.Fatalf("unexpected tool %+v", got)
	}
}
