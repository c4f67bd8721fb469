package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	serrors "github.com/jllopis/specforge/pkg/errors"
	"github.com/jllopis/specforge/pkg/resilience"
	"github.com/jllopis/specforge/pkg/telemetry"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestQueryNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Query
		want Query
	}{
		{
			name: "defaults",
			in:   Query{Text: "q"},
			want: Query{Text: "q", MaxResults: 5, Topic: TopicGeneral, Depth: DepthBasic},
		},
		{
			name: "keeps valid values",
			in:   Query{Text: "q", MaxResults: 3, Topic: TopicNews, Depth: DepthAdvanced},
			want: Query{Text: "q", MaxResults: 3, Topic: TopicNews, Depth: DepthAdvanced},
		},
		{
			name: "clamps and repairs",
			in:   Query{Text: "q", MaxResults: 99, Topic: "sports", Depth: "deep"},
			want: Query{Text: "q", MaxResults: 20, Topic: TopicGeneral, Depth: DepthBasic},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(0)
			if got.Text != tt.want.Text || got.MaxResults != tt.want.MaxResults ||
				got.Topic != tt.want.Topic || got.Depth != tt.want.Depth {
				t.Errorf("Normalize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewTavilyRequiresKey(t *testing.T) {
	_, err := NewTavily(TavilyConfig{})
	if !serrors.IsCode(err, serrors.CodeConfigError) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tvly-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["query"] != "langgraph official site" || body["search_depth"] != "advanced" {
			t.Errorf("unexpected body %v", body)
		}
		if excl, _ := body["exclude_domains"].([]any); len(excl) != 1 {
			t.Errorf("expected exclude_domains, got %v", body["exclude_domains"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"langgraph official site","results":[{"title":"LangGraph","url":"https://langchain.com/langgraph","content":"docs","score":0.9}]}`))
	}))
	defer srv.Close()

	s, err := NewTavily(TavilyConfig{APIKey: "tvly-test", BaseURL: srv.URL, Retry: fastRetry()})
	if err != nil {
		t.Fatalf("NewTavily: %v", err)
	}
	resp, err := s.Search(context.Background(), Query{
		Text:           "langgraph official site",
		MaxResults:     3,
		Depth:          DepthAdvanced,
		Topic:          TopicGeneral,
		ExcludeDomains: []string{"medium.com"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://langchain.com/langgraph" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestTavilyRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"query":"q","results":[]}`))
	}))
	defer srv.Close()

	s, _ := NewTavily(TavilyConfig{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry(), RateLimit: 1000, Burst: 10})
	if _, err := s.Search(context.Background(), Query{Text: "q"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestTavilyDoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, _ := NewTavily(TavilyConfig{APIKey: "bad", BaseURL: srv.URL, Retry: fastRetry()})
	_, err := s.Search(context.Background(), Query{Text: "q"})
	if !serrors.IsCode(err, serrors.CodeSearchError) {
		t.Fatalf("expected search error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

type fakeCaller struct {
	name   string
	args   map[string]interface{}
	result *mcpgo.CallToolResult
	err    error
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
	f.name, f.args = name, args
	return f.result, f.err
}

func textResult(s string) *mcpgo.CallToolResult {
	return &mcpgo.CallToolResult{Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: s}}}
}

func TestMCPSearcher(t *testing.T) {
	caller := &fakeCaller{result: textResult(`{"results":[{"title":"A","url":"https://a.dev","content":"x"}]}`)}
	s := NewMCPSearcher(caller, "")
	resp, err := s.Search(context.Background(), Query{Text: "agents", MaxResults: 2, Topic: TopicNews, Depth: DepthBasic})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if caller.name != DefaultMCPTool {
		t.Errorf("expected default tool name, got %s", caller.name)
	}
	if caller.args["topic"] != "news" || caller.args["max_results"] != 2 {
		t.Errorf("unexpected args %v", caller.args)
	}
	if resp.Query != "agents" || len(resp.Results) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if s.Name() != "mcp:tavily-search" {
		t.Errorf("unexpected name %s", s.Name())
	}
}

func TestMCPSearcherErrors(t *testing.T) {
	s := NewMCPSearcher(&fakeCaller{err: errors.New("broken pipe")}, "web_search")
	if _, err := s.Search(context.Background(), Query{Text: "q"}); !serrors.IsCode(err, serrors.CodeSearchError) {
		t.Fatalf("expected search error, got %v", err)
	}

	res := textResult("quota exceeded")
	res.IsError = true
	s = NewMCPSearcher(&fakeCaller{result: res}, "web_search")
	if _, err := s.Search(context.Background(), Query{Text: "q"}); !serrors.IsCode(err, serrors.CodeSearchError) {
		t.Fatalf("expected search error for tool error result, got %v", err)
	}
}

func TestParseToolOutput(t *testing.T) {
	if got := parseToolOutput("q", `[{"title":"T","url":"u"}]`); len(got.Results) != 1 || got.Query != "q" {
		t.Errorf("expected array form to decode, got %+v", got)
	}
	if got := parseToolOutput("q", "plain summary"); len(got.Results) != 1 || got.Results[0].Content != "plain summary" {
		t.Errorf("expected plain text to become one result, got %+v", got)
	}
	if got := parseToolOutput("q", ""); len(got.Results) != 0 {
		t.Errorf("expected no results for empty output, got %+v", got)
	}
}

func TestMockSearcherLimit(t *testing.T) {
	m := NewMockSearcher(Result{Title: "a"}, Result{Title: "b"}, Result{Title: "c"})
	resp, _ := m.Search(context.Background(), Query{Text: "q", MaxResults: 2})
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if len(m.Recorded()) != 1 {
		t.Fatalf("expected recorded query")
	}
}

func TestInstrumentPassesThrough(t *testing.T) {
	mock := NewMockSearcher(Result{Title: "a"})
	s := Instrument(mock, telemetry.DiscardLogger(), nil)
	if s.Name() != "mock" {
		t.Fatalf("expected wrapped name, got %s", s.Name())
	}
	if _, err := s.Search(context.Background(), Query{Text: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	mock.Err = errors.New("down")
	if _, err := s.Search(context.Background(), Query{Text: "q"}); err == nil {
		t.Fatal("expected error to pass through")
	}
}
