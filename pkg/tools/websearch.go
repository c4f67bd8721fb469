package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/specforge/pkg/llm"
	"github.com/jllopis/specforge/pkg/search"
)

const (
	InternetSearchName     = "internet_search"
	OfficialSiteSearchName = "search_official_site"
)

// BlogDomains are excluded from official-site searches.
var BlogDomains = []string{
	"medium.com",
	"dev.to",
	"hackernoon.com",
	"towardsdatascience.com",
	"stackoverflow.blog",
	"news.ycombinator.com",
	"reddit.com",
}

// InternetSearch searches the web for current information.
type InternetSearch struct {
	searcher   search.Searcher
	defaultMax int
}

// NewInternetSearch creates the internet_search tool. defaultMax is used
// when the model does not pass max_results.
func NewInternetSearch(s search.Searcher, defaultMax int) *InternetSearch {
	if defaultMax <= 0 {
		defaultMax = 5
	}
	return &InternetSearch{searcher: s, defaultMax: defaultMax}
}

// Name implements Tool.
func (t *InternetSearch) Name() string { return InternetSearchName }

// Definition implements Tool.
func (t *InternetSearch) Definition() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        InternetSearchName,
			Description: "Search the internet for current information about tools, frameworks, pricing, and best practices.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query.",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results to return.",
						"default":     t.defaultMax,
					},
					"topic": map[string]any{
						"type":        "string",
						"enum":        []string{"general", "news", "finance"},
						"description": "Search topic category.",
					},
					"search_depth": map[string]any{
						"type":        "string",
						"enum":        []string{"basic", "advanced"},
						"description": "Use advanced for more thorough results.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

type internetSearchArgs struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	Topic       string `json:"topic"`
	SearchDepth string `json:"search_depth"`
}

// Call implements Tool.
func (t *InternetSearch) Call(ctx context.Context, arguments string) (string, error) {
	var args internetSearchArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Query) == "" {
		return "", fmt.Errorf("%s: query is required", InternetSearchName)
	}
	q := search.Query{
		Text:       args.Query,
		MaxResults: args.MaxResults,
		Topic:      search.Topic(args.Topic),
		Depth:      search.Depth(args.SearchDepth),
	}.Normalize(t.defaultMax)
	return runSearch(ctx, t.searcher, q), nil
}

// OfficialSiteSearch finds the official website or documentation of a
// named tool, skipping blog aggregators.
type OfficialSiteSearch struct {
	searcher search.Searcher
}

// NewOfficialSiteSearch creates the search_official_site tool.
func NewOfficialSiteSearch(s search.Searcher) *OfficialSiteSearch {
	return &OfficialSiteSearch{searcher: s}
}

// Name implements Tool.
func (t *OfficialSiteSearch) Name() string { return OfficialSiteSearchName }

// Definition implements Tool.
func (t *OfficialSiteSearch) Definition() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        OfficialSiteSearchName,
			Description: "Search for the official website or documentation of a specific tool or framework.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tool_name": map[string]any{
						"type":        "string",
						"description": "Name of the tool or framework, e.g. LangGraph or CrewAI.",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results to return.",
						"default":     3,
					},
				},
				"required": []string{"tool_name"},
			},
		},
	}
}

type officialSiteArgs struct {
	ToolName   string `json:"tool_name"`
	MaxResults int    `json:"max_results"`
}

// Call implements Tool.
func (t *OfficialSiteSearch) Call(ctx context.Context, arguments string) (string, error) {
	var args officialSiteArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	name := strings.TrimSpace(args.ToolName)
	if name == "" {
		return "", fmt.Errorf("%s: tool_name is required", OfficialSiteSearchName)
	}
	q := search.Query{
		Text:           name + " official site",
		MaxResults:     args.MaxResults,
		Topic:          search.TopicGeneral,
		Depth:          search.DepthAdvanced,
		ExcludeDomains: BlogDomains,
	}.Normalize(3)
	return runSearch(ctx, t.searcher, q), nil
}

func decodeArgs(arguments string, v any) error {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), v); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

// runSearch reports search failures to the model as a JSON error object
// rather than failing the tool call.
func runSearch(ctx context.Context, s search.Searcher, q search.Query) string {
	resp, err := s.Search(ctx, q)
	if err != nil {
		return encode(map[string]string{"error": "Search failed: " + err.Error()})
	}
	return encode(resp)
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

var (
	_ Tool = (*InternetSearch)(nil)
	_ Tool = (*OfficialSiteSearch)(nil)
)
