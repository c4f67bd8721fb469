// Package tools holds the function tools a role may call during its
// delegation.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jllopis/specforge/pkg/llm"
)

// Tool is a function the model can call. Arguments arrive as the raw JSON
// object the model produced; the result is text handed back to the model.
type Tool interface {
	Name() string
	Definition() llm.Tool
	Call(ctx context.Context, arguments string) (string, error)
}

// Set is a named collection of tools.
type Set struct {
	byName map[string]Tool
}

// NewSet builds a Set. Later tools replace earlier ones with the same name.
func NewSet(tools ...Tool) *Set {
	s := &Set{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.byName[t.Name()] = t
	}
	return s
}

// Lookup returns the tool called name.
func (s *Set) Lookup(name string) (Tool, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.byName[name]
	return t, ok
}

// Names returns the tool names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the tools named, in the given order. Unknown names are
// an error so a misconfigured role fails at startup.
func (s *Set) Select(names []string) ([]Tool, error) {
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(s.Names(), ", "))
		}
		out = append(out, t)
	}
	return out, nil
}

// Definitions returns the LLM tool definitions for tools.
func Definitions(tools []Tool) []llm.Tool {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]llm.Tool, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs
}
