package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jllopis/specforge/pkg/search"
)

func TestInternetSearchDefaults(t *testing.T) {
	mock := search.NewMockSearcher(search.Result{Title: "CrewAI", URL: "https://crewai.com"})
	tool := NewInternetSearch(mock, 5)

	out, err := tool.Call(context.Background(), `{"query":"crewai pricing"}`)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	q := mock.Recorded()[0]
	if q.Text != "crewai pricing" || q.MaxResults != 5 || q.Topic != search.TopicGeneral || q.Depth != search.DepthBasic {
		t.Errorf("unexpected query %+v", q)
	}
	var resp search.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://crewai.com" {
		t.Errorf("unexpected output %s", out)
	}
}

func TestInternetSearchPassesOptions(t *testing.T) {
	mock := search.NewMockSearcher()
	tool := NewInternetSearch(mock, 5)
	if _, err := tool.Call(context.Background(), `{"query":"q","max_results":2,"topic":"news","search_depth":"advanced"}`); err != nil {
		t.Fatalf("Call: %v", err)
	}
	q := mock.Recorded()[0]
	if q.MaxResults != 2 || q.Topic != search.TopicNews || q.Depth != search.DepthAdvanced {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestInternetSearchArgumentErrors(t *testing.T) {
	tool := NewInternetSearch(search.NewMockSearcher(), 5)
	if _, err := tool.Call(context.Background(), `not json`); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := tool.Call(context.Background(), `{"query":"  "}`); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestSearchFailureIsReportedToModel(t *testing.T) {
	mock := search.NewMockSearcher()
	mock.Err = errors.New("quota exceeded")
	out, err := NewInternetSearch(mock, 5).Call(context.Background(), `{"query":"q"}`)
	if err != nil {
		t.Fatalf("search failures must not fail the tool call: %v", err)
	}
	if !strings.Contains(out, `"error":"Search failed: quota exceeded"`) {
		t.Errorf("unexpected output %s", out)
	}
}

func TestOfficialSiteSearch(t *testing.T) {
	mock := search.NewMockSearcher()
	tool := NewOfficialSiteSearch(mock)
	if _, err := tool.Call(context.Background(), `{"tool_name":"LangGraph"}`); err != nil {
		t.Fatalf("Call: %v", err)
	}
	q := mock.Recorded()[0]
	if q.Text != "LangGraph official site" {
		t.Errorf("unexpected query text %q", q.Text)
	}
	if q.MaxResults != 3 || q.Depth != search.DepthAdvanced {
		t.Errorf("unexpected query %+v", q)
	}
	if len(q.ExcludeDomains) != len(BlogDomains) {
		t.Errorf("expected blog domains to be excluded, got %v", q.ExcludeDomains)
	}
	if _, err := tool.Call(context.Background(), `{}`); err == nil {
		t.Error("expected error for missing tool_name")
	}
}

func TestSetSelect(t *testing.T) {
	s := search.NewMockSearcher()
	set := NewSet(NewInternetSearch(s, 5), NewOfficialSiteSearch(s))

	names := set.Names()
	if len(names) != 2 || names[0] != InternetSearchName {
		t.Fatalf("unexpected names %v", names)
	}
	selected, err := set.Select([]string{OfficialSiteSearchName})
	if err != nil || len(selected) != 1 || selected[0].Name() != OfficialSiteSearchName {
		t.Fatalf("unexpected selection %v %v", selected, err)
	}
	_, err = set.Select([]string{"shell"})
	if err == nil || !strings.Contains(err.Error(), "available: internet_search, search_official_site") {
		t.Fatalf("expected unknown tool error listing the set, got %v", err)
	}
	if defs := Definitions(selected); len(defs) != 1 || defs[0].Function.Name != OfficialSiteSearchName {
		t.Fatalf("unexpected definitions %+v", defs)
	}
	if Definitions(nil) != nil {
		t.Fatal("expected nil definitions for no tools")
	}
	var nilSet *Set
	if _, ok := nilSet.Lookup("x"); ok {
		t.Fatal("nil set should find nothing")
	}
}
