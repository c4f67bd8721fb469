// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"testing"

	"github.com/jllopis/specforge/pkg/llm"
	"google.golang.org/genai"
)

func TestConvertMessages(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are the infra planner"},
		{Role: llm.RoleUser, Content: "Plan this"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID: "internet_search", Type: llm.ToolTypeFunction,
			Function: llm.FunctionCall{Name: "internet_search", Arguments: `{"query":"pricing"}`},
		}}},
		{Role: llm.RoleTool, Content: "not json", ToolCallID: "internet_search"},
	}

	contents, system := convertMessages(messages)
	if system != "You are the infra planner" {
		t.Errorf("unexpected system instruction %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != "model" || contents[1].Parts[0].FunctionCall == nil {
		t.Errorf("expected model function call content")
	}
	resp := contents[2].Parts[0].FunctionResponse
	if resp == nil || resp.Response["result"] != "not json" {
		t.Errorf("expected wrapped non-JSON tool result, got %+v", resp)
	}
}

func TestConvertTools(t *testing.T) {
	tools := []llm.Tool{{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        "search_official_site",
			Description: "Search official docs",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tool_name": map[string]interface{}{"type": "string"},
				},
			},
		},
	}}
	result := convertTools(tools)
	if len(result) != 1 || result[0].Name != "search_official_site" {
		t.Fatalf("unexpected declarations %+v", result)
	}
}

func TestReadCandidate(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Hello "},
				{Text: "world"},
				{FunctionCall: &genai.FunctionCall{Name: "internet_search", Args: map[string]any{"query": "x"}}},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{TotalTokenCount: 7},
	}
	text, calls := readCandidate(resp)
	if text != "Hello world" {
		t.Errorf("unexpected text %q", text)
	}
	if len(calls) != 1 || calls[0].Function.Arguments != `{"query":"x"}` {
		t.Errorf("unexpected calls %+v", calls)
	}
	if u := usageOf(resp); u == nil || u.TotalTokens != 7 {
		t.Errorf("unexpected usage %+v", u)
	}
	if text, calls := readCandidate(nil); text != "" || calls != nil {
		t.Errorf("expected empty result for nil response")
	}
}

func TestClose(t *testing.T) {
	if err := (&Provider{}).Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
