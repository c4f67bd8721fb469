// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestRunAttributesTruncatesIdea(t *testing.T) {
	m := attrMap(RunAttributes("run-1", strings.Repeat("x", 500)))
	if m[AttrRunID].AsString() != "run-1" {
		t.Errorf("expected run id")
	}
	if got := len(m[AttrRunIdea].AsString()); got != maxAttrLen+3 {
		t.Errorf("expected truncated idea, got length %d", got)
	}
}

func TestRoleAttributes(t *testing.T) {
	m := attrMap(RoleAttributes("verifier", 5, ""))
	if m[AttrRoleName].AsString() != "verifier" || m[AttrRoleStep].AsInt64() != 5 {
		t.Errorf("unexpected attributes %v", m)
	}
	if _, ok := m[AttrRoleModel]; ok {
		t.Errorf("empty model must be omitted")
	}
}

func TestToolCallAttributes(t *testing.T) {
	m := attrMap(ToolCallAttributes("internet_search", "call_1", `{"query":"q"}`, 2))
	if m[AttrToolName].AsString() != "internet_search" || m[AttrToolRound].AsInt64() != 2 {
		t.Errorf("unexpected attributes %v", m)
	}
	if m[AttrToolCallID].AsString() != "call_1" {
		t.Errorf("expected call id")
	}
}

func TestSearchAttributes(t *testing.T) {
	m := attrMap(SearchAttributes("tavily", "langgraph", -1))
	if _, ok := m[AttrSearchResults]; ok {
		t.Errorf("negative result count must be omitted")
	}
	m = attrMap(SearchAttributes("tavily", "langgraph", 3))
	if m[AttrSearchResults].AsInt64() != 3 {
		t.Errorf("expected result count")
	}
}

func TestLLMUsageAttributes(t *testing.T) {
	if len(LLMUsageAttributes(0, 0, 0)) != 0 {
		t.Errorf("expected no attributes for zero usage")
	}
	m := attrMap(LLMUsageAttributes(10, 5, 1))
	if m[AttrLLMTokensTotal].AsInt64() != 15 || m[AttrLLMToolCalls].AsInt64() != 1 {
		t.Errorf("unexpected usage attributes %v", m)
	}
	if !attrMap(LLMAttributes("gpt-4o-mini", 2, true))[AttrLLMStreaming].AsBool() {
		t.Errorf("expected streaming flag")
	}
}
