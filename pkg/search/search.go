// Package search is the web search capability the researcher role reaches
// through its tools.
package search

import (
	"context"
)

// Topic narrows a search to a category of sources.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
	TopicFinance Topic = "finance"
)

// Depth selects how thoroughly the backend searches.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Query is one search request.
type Query struct {
	Text           string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	Topic          Topic    `json:"topic,omitempty"`
	Depth          Depth    `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

// Result is a single hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Response is what a backend returns for a Query.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Searcher runs web searches.
type Searcher interface {
	// Name identifies the backend in logs and spans.
	Name() string
	Search(ctx context.Context, q Query) (*Response, error)
}

// Normalize fills defaults and clamps values a backend would reject.
func (q Query) Normalize(defaultMax int) Query {
	if defaultMax <= 0 {
		defaultMax = 5
	}
	if q.MaxResults <= 0 {
		q.MaxResults = defaultMax
	}
	if q.MaxResults > 20 {
		q.MaxResults = 20
	}
	switch q.Topic {
	case TopicGeneral, TopicNews, TopicFinance:
	default:
		q.Topic = TopicGeneral
	}
	switch q.Depth {
	case DepthBasic, DepthAdvanced:
	default:
		q.Depth = DepthBasic
	}
	return q
}
