// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for specforge spans and metrics.
const (
	// Run attributes
	AttrRunID      = "specforge.run.id"
	AttrRunIdea    = "specforge.run.idea"
	AttrRunOutcome = "specforge.run.outcome"
	AttrRunFailed  = "specforge.run.failed_roles"

	// Role attributes
	AttrRoleName   = "specforge.role.name"
	AttrRoleStep   = "specforge.role.step"
	AttrRoleStatus = "specforge.role.status"
	AttrRoleModel  = "specforge.role.model"

	// Tool attributes
	AttrToolName    = "specforge.tool.name"
	AttrToolCallID  = "specforge.tool.call_id"
	AttrToolArgs    = "specforge.tool.arguments"
	AttrToolSuccess = "specforge.tool.success"
	AttrToolRound   = "specforge.tool.round"

	// Search attributes
	AttrSearchProvider = "specforge.search.provider"
	AttrSearchQuery    = "specforge.search.query"
	AttrSearchResults  = "specforge.search.results"

	// LLM attributes (gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMToolCalls    = "gen_ai.tool_calls"
	AttrLLMStreaming    = "gen_ai.request.stream"

	// Error attributes
	AttrErrorCode = "error.code"
)

const maxAttrLen = 200

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// RunAttributes returns attributes for the Orchestrator.Run span.
func RunAttributes(runID, idea string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrRunID, runID)}
	if idea != "" {
		attrs = append(attrs, attribute.String(AttrRunIdea, truncate(idea, maxAttrLen)))
	}
	return attrs
}

// RoleAttributes returns attributes for role spans and metrics.
func RoleAttributes(role string, step int, model string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrRoleName, role)}
	if step > 0 {
		attrs = append(attrs, attribute.Int(AttrRoleStep, step))
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrRoleModel, model))
	}
	return attrs
}

// ToolCallAttributes returns attributes for a tool call span.
func ToolCallAttributes(name, callID, args string, round int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.Int(AttrToolRound, round),
	}
	if callID != "" {
		attrs = append(attrs, attribute.String(AttrToolCallID, callID))
	}
	if args != "" {
		attrs = append(attrs, attribute.String(AttrToolArgs, truncate(args, 500)))
	}
	return attrs
}

// SearchAttributes returns attributes for a Search.Query span.
func SearchAttributes(provider, query string, results int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSearchProvider, provider),
		attribute.String(AttrSearchQuery, truncate(query, maxAttrLen)),
	}
	if results >= 0 {
		attrs = append(attrs, attribute.Int(AttrSearchResults, results))
	}
	return attrs
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model string, msgCount int, streaming bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrLLMMessages, msgCount),
		attribute.Bool(AttrLLMStreaming, streaming),
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrLLMModel, model))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens, toolCalls int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if toolCalls > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCalls))
	}
	return attrs
}
