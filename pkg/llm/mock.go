package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider is a testing implementation of Provider.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Chat returns ChatFunc's result when set, otherwise Err or Response.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// StreamingMockProvider wraps a Provider and replays each response as
// word-sized stream chunks.
type StreamingMockProvider struct {
	Provider
}

// ChatStream implements StreamingProvider.
func (s *StreamingMockProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	resp, err := s.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(resp.Content, " ") {
			if word == "" {
				continue
			}
			select {
			case out <- StreamChunk{Content: word}:
			case <-ctx.Done():
				out <- StreamChunk{Error: ctx.Err()}
				return
			}
		}
		usage := resp.Usage
		out <- StreamChunk{Done: true, ToolCalls: resp.ToolCalls, Usage: &usage}
	}()
	return out, nil
}

// FailingMockProvider always fails.
type FailingMockProvider struct {
	Err error
}

// Chat implements Provider.
func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock error")
	}
	return nil, f.Err
}

var _ StreamingProvider = (*StreamingMockProvider)(nil)
