package search

import (
	"context"
	"sync"
)

// MockSearcher implements Searcher for testing.
type MockSearcher struct {
	mu      sync.Mutex
	Results []Result
	Err     error
	Queries []Query
}

// NewMockSearcher creates a mock searcher returning results.
func NewMockSearcher(results ...Result) *MockSearcher {
	return &MockSearcher{Results: results}
}

// Name implements Searcher.
func (m *MockSearcher) Name() string { return "mock" }

// Search records q and returns up to q.MaxResults results.
func (m *MockSearcher) Search(ctx context.Context, q Query) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, q)
	if m.Err != nil {
		return nil, m.Err
	}
	results := m.Results
	if q.MaxResults > 0 && q.MaxResults < len(results) {
		results = results[:q.MaxResults]
	}
	return &Response{Query: q.Text, Results: results}, nil
}

// Recorded returns a copy of the queries received.
func (m *MockSearcher) Recorded() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Query, len(m.Queries))
	copy(out, m.Queries)
	return out
}
