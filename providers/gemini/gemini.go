// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package gemini adapts the Google Gen AI SDK to llm.StreamingProvider.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/specforge/pkg/llm"
	"google.golang.org/genai"
)

// DefaultModel is used when neither the provider nor the request names one.
const DefaultModel = "gemini-2.5-flash"

// Provider implements llm.StreamingProvider for the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// Config configures the Provider. An empty APIKey lets the SDK read
// GOOGLE_API_KEY or GEMINI_API_KEY.
type Config struct {
	APIKey string
	Model  string
}

// New creates a new Gemini provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	var cc *genai.ClientConfig
	if cfg.APIKey != "" {
		cc = &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{client: client, model: model}, nil
}

// Model returns the default model name.
func (p *Provider) Model() string { return p.model }

func (p *Provider) request(req llm.ChatRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	contents, system := convertMessages(req.Messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: convertTools(req.Tools)}}
	}
	return model, contents, config
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model, contents, config := p.request(req)
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}
	out := &llm.ChatResponse{}
	text, calls := readCandidate(resp)
	out.Content = text
	out.ToolCalls = calls
	if u := usageOf(resp); u != nil {
		out.Usage = *u
	}
	return out, nil
}

// ChatStream implements llm.StreamingProvider.
func (p *Provider) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	model, contents, config := p.request(req)
	chunks := make(chan llm.StreamChunk, 100)

	go func() {
		defer close(chunks)

		var calls []llm.ToolCall
		var usage *llm.Usage
		for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				chunks <- llm.StreamChunk{Error: fmt.Errorf("gemini stream failed: %w", err)}
				return
			}
			text, tc := readCandidate(resp)
			calls = append(calls, tc...)
			if u := usageOf(resp); u != nil {
				usage = u
			}
			if text == "" {
				continue
			}
			select {
			case chunks <- llm.StreamChunk{Content: text}:
			case <-ctx.Done():
				chunks <- llm.StreamChunk{Error: ctx.Err()}
				return
			}
		}
		chunks <- llm.StreamChunk{Done: true, ToolCalls: calls, Usage: usage}
	}()

	return chunks, nil
}

// Close is a no-op; the Gemini client holds no resources.
func (p *Provider) Close() error {
	return nil
}

func convertMessages(messages []llm.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llm.RoleAssistant:
			content := &genai.Content{Role: "model"}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				args := map[string]any{}
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Function.Name, Args: args},
				})
			}
			contents = append(contents, content)
		case llm.RoleTool:
			// Gemini matches results by function name, which doubles as the
			// call id in readCandidate.
			var result map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
				result = map[string]any{"result": msg.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{Name: msg.ToolCallID, Response: result},
				}},
			})
		}
	}
	return contents, strings.Join(system, "\n\n")
}

func convertTools(tools []llm.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schema *genai.Schema
		if raw, err := json.Marshal(tool.Function.Parameters); err == nil {
			_ = json.Unmarshal(raw, &schema)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func readCandidate(resp *genai.GenerateContentResponse) (string, []llm.ToolCall) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var text strings.Builder
	var calls []llm.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			calls = append(calls, llm.ToolCall{
				ID:   part.FunctionCall.Name,
				Type: llm.ToolTypeFunction,
				Function: llm.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		}
	}
	return text.String(), calls
}

func usageOf(resp *genai.GenerateContentResponse) *llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

var _ llm.StreamingProvider = (*Provider)(nil)
