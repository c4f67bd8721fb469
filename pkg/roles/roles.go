// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package roles holds the fixed role table of the spec pipeline.
//
// A role is instructions plus the capabilities it may use. Role definitions
// are Markdown files with YAML frontmatter; the defaults are embedded in the
// binary and a directory of replacement files can override them. The table is
// loaded once and injected into the orchestrator as an immutable *Registry.
package roles

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role identifiers.
const (
	Lead            = "lead"
	Researcher      = "researcher"
	Designer        = "designer"
	WorkflowPlanner = "workflow_planner"
	InfraPlanner    = "infra_planner"
	Verifier        = "verifier"
)

// Pipeline is the fixed execution order of the delegated roles.
var Pipeline = []string{Researcher, Designer, WorkflowPlanner, InfraPlanner, Verifier}

//go:embed prompts/*.md
var embedded embed.FS

// Role is one pipeline stage: instructions plus permitted capabilities.
type Role struct {
	Name         string
	Description  string
	Title        string
	Activity     string
	Step         int
	Tools        []string
	Model        string
	Instructions string
	// Source is the file the role was read from.
	Source string
}

// Registry is an immutable role table.
type Registry struct {
	roles map[string]Role
}

// New builds a registry from roles. It must contain the lead and every
// pipeline role, with steps matching the pipeline order.
func New(rs ...Role) (*Registry, error) {
	reg := &Registry{roles: make(map[string]Role, len(rs))}
	for _, r := range rs {
		if _, dup := reg.roles[r.Name]; dup {
			return nil, fmt.Errorf("duplicate role %q", r.Name)
		}
		reg.roles[r.Name] = r
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Default returns the embedded role table.
func Default() (*Registry, error) {
	rs, err := loadFS(embedded, "prompts")
	if err != nil {
		return nil, err
	}
	return New(rs...)
}

// Load returns the embedded table with every role file found in dir
// replacing the embedded role of the same name. An empty dir yields Default.
func Load(dir string) (*Registry, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return base, nil
	}
	overrides, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	merged := base.clone()
	for _, r := range overrides {
		if _, ok := merged[r.Name]; !ok {
			return nil, fmt.Errorf("%s: unknown role %q", r.Source, r.Name)
		}
		merged[r.Name] = r
	}
	return New(values(merged)...)
}

// LoadDir parses every *.md file in dir.
func LoadDir(dir string) ([]Role, error) {
	return loadFS(os.DirFS(dir), ".")
}

// Parse reads a role from Markdown with YAML frontmatter.
func Parse(source string, data []byte) (Role, error) {
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return Role{}, fmt.Errorf("%s: %w", source, err)
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return Role{}, fmt.Errorf("%s: parse frontmatter: %w", source, err)
	}
	r := Role{
		Name:         strings.TrimSpace(parsed.Name),
		Description:  strings.TrimSpace(parsed.Description),
		Title:        strings.TrimSpace(parsed.Title),
		Activity:     strings.TrimSpace(parsed.Activity),
		Step:         parsed.Step,
		Tools:        dedupe(parsed.Tools),
		Model:        strings.TrimSpace(parsed.Model),
		Instructions: body,
		Source:       source,
	}
	if r.Title == "" {
		r.Title = r.Name
	}
	if err := r.validate(); err != nil {
		return Role{}, fmt.Errorf("%s: %w", source, err)
	}
	return r, nil
}

// Get returns the role named name.
func (g *Registry) Get(name string) (Role, bool) {
	r, ok := g.roles[name]
	return r, ok
}

// Lead returns the lead role.
func (g *Registry) Lead() Role {
	return g.roles[Lead]
}

// Ordered returns the pipeline roles in execution order.
func (g *Registry) Ordered() []Role {
	out := make([]Role, 0, len(Pipeline))
	for _, name := range Pipeline {
		out = append(out, g.roles[name])
	}
	return out
}

// Names returns every role name, sorted.
func (g *Registry) Names() []string {
	out := make([]string, 0, len(g.roles))
	for name := range g.roles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WithModels returns a copy of the registry with per-role model overrides.
// Empty values leave the role's model unchanged.
func (g *Registry) WithModels(models map[string]string) (*Registry, error) {
	merged := g.clone()
	for name, model := range models {
		r, ok := merged[name]
		if !ok {
			return nil, fmt.Errorf("model override for unknown role %q (known roles: %s)",
				name, strings.Join(g.Names(), ", "))
		}
		if m := strings.TrimSpace(model); m != "" {
			r.Model = m
			merged[name] = r
		}
	}
	return &Registry{roles: merged}, nil
}

func (g *Registry) clone() map[string]Role {
	out := make(map[string]Role, len(g.roles))
	for k, v := range g.roles {
		v.Tools = append([]string(nil), v.Tools...)
		out[k] = v
	}
	return out
}

func (g *Registry) validate() error {
	if _, ok := g.roles[Lead]; !ok {
		return errors.New("missing lead role")
	}
	for i, name := range Pipeline {
		r, ok := g.roles[name]
		if !ok {
			return fmt.Errorf("missing role %q", name)
		}
		if r.Step != i+1 {
			return fmt.Errorf("role %q has step %d, want %d", name, r.Step, i+1)
		}
	}
	return nil
}

type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Title       string   `yaml:"title"`
	Activity    string   `yaml:"activity"`
	Step        int      `yaml:"step"`
	Tools       []string `yaml:"tools"`
	Model       string   `yaml:"model"`
}

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)*$`)

func (r Role) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !namePattern.MatchString(r.Name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	if r.Step < 0 {
		return errors.New("step must not be negative")
	}
	if strings.TrimSpace(r.Instructions) == "" {
		return errors.New("instructions are required")
	}
	return nil
}

func loadFS(fsys fs.FS, dir string) ([]Role, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var out []Role
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		name := pathJoin(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		r, err := Parse(name, data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func pathJoin(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return dir + "/" + name
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", errors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("invalid frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func values(m map[string]Role) []Role {
	out := make([]Role, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
