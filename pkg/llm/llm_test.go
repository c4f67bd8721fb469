package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Hello world"}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", resp.Content)
	}
}

func TestScriptedMockProvider(t *testing.T) {
	mock := NewScriptedMockProvider("first")
	mock.AddToolCall("call-1", "internet_search", `{"query":"go"}`)

	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil || resp.Content != "first" {
		t.Fatalf("unexpected first response: %v %v", resp, err)
	}
	resp, err = mock.Chat(context.Background(), ChatRequest{})
	if err != nil || len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "internet_search" {
		t.Fatalf("expected tool call response, got %+v %v", resp, err)
	}
	if _, err := mock.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error once the script is exhausted")
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestCollectStreamingMock(t *testing.T) {
	p := &StreamingMockProvider{Provider: &MockProvider{Response: "one two three"}}
	stream, err := p.ChatStream(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	var deltas []string
	resp, err := Collect(stream, func(s string) { deltas = append(deltas, s) })
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if resp.Content != "one two three" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if len(deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %v", deltas)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Fatalf("expected usage from final chunk, got %+v", resp.Usage)
	}
}

func TestCollectReturnsChunkError(t *testing.T) {
	ch := make(chan StreamChunk, 3)
	ch <- StreamChunk{Content: "partial"}
	ch <- StreamChunk{Error: errors.New("boom")}
	ch <- StreamChunk{Content: "ignored"}
	close(ch)
	if _, err := Collect(ch, nil); err == nil {
		t.Fatal("expected chunk error")
	}
}

func TestOllamaChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Stream {
			t.Errorf("expected non-streaming request")
		}
		if req.Options["num_predict"] != float64(256) {
			t.Errorf("expected num_predict option, got %v", req.Options)
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"hi"},"done":true,"prompt_eval_count":3,"eval_count":2}`)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, 0)
	resp, err := p.Chat(context.Background(), ChatRequest{Model: "llama3", MaxTokens: 256})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hi" || resp.Usage.TotalTokens != 5 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestOllamaChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintln(w, `{"message":{"content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true,"prompt_eval_count":1,"eval_count":2}`)
	}))
	defer srv.Close()

	stream, err := NewOllama(srv.URL, 0).ChatStream(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	resp, err := Collect(stream, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if resp.Content != "Hello" || resp.Usage.TotalTokens != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestOllamaStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewOllama(srv.URL, 0).Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected status error")
	}
}
