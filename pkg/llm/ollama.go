package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements StreamingProvider against Ollama's /api/chat.
type OllamaProvider struct {
	baseURL string
	client  *http.Client
}

// NewOllama creates a new OllamaProvider. An empty baseURL selects the
// local default; a zero timeout leaves cancellation to the context.
func NewOllama(baseURL string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Tools    []Tool                 `json:"tools,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ollamaEvent is both the non-streaming body and one NDJSON stream line.
type ollamaEvent struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func (e ollamaEvent) usage() Usage {
	return Usage{
		PromptTokens:     e.PromptEvalCount,
		CompletionTokens: e.EvalCount,
		TotalTokens:      e.PromptEvalCount + e.EvalCount,
	}
}

func (p *OllamaProvider) post(ctx context.Context, req ChatRequest, stream bool) (*http.Response, error) {
	oReq := ollamaRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   stream,
		Tools:    req.Tools,
	}
	opts := map[string]interface{}{}
	if req.Temperature != 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) > 0 {
		oReq.Options = opts
	}

	body, err := json.Marshal(oReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama api call failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return resp, nil
}

// Chat sends a non-streaming chat request.
func (p *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := p.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ev ollamaEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if ev.Error != "" {
		return nil, fmt.Errorf("ollama: %s", ev.Error)
	}
	return &ChatResponse{
		Content:   ev.Message.Content,
		ToolCalls: ev.Message.ToolCalls,
		Usage:     ev.usage(),
	}, nil
}

// ChatStream streams the NDJSON response as chunks.
func (p *OllamaProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	resp, err := p.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 100)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		var toolCalls []ToolCall
		for scanner.Scan() {
			if ctx.Err() != nil {
				chunks <- StreamChunk{Error: ctx.Err()}
				return
			}
			var ev ollamaEvent
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				continue
			}
			if ev.Error != "" {
				chunks <- StreamChunk{Error: fmt.Errorf("ollama: %s", ev.Error)}
				return
			}
			// Ollama sends whole tool calls, never deltas.
			if len(ev.Message.ToolCalls) > 0 {
				toolCalls = ev.Message.ToolCalls
			}
			if ev.Message.Content != "" {
				chunks <- StreamChunk{Content: ev.Message.Content}
			}
			if ev.Done {
				usage := ev.usage()
				chunks <- StreamChunk{Done: true, ToolCalls: toolCalls, Usage: &usage}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			chunks <- StreamChunk{Error: err}
		}
	}()
	return chunks, nil
}

var _ StreamingProvider = (*OllamaProvider)(nil)
