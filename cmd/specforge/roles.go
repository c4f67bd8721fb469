// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jllopis/specforge/pkg/config"
	"github.com/jllopis/specforge/pkg/roles"
)

type roleResult struct {
	Step        int      `json:"step"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tools       []string `json:"tools,omitempty"`
	Model       string   `json:"model,omitempty"`
	Source      string   `json:"source"`
}

// runRoles lists the lead and the pipeline roles in execution order.
func runRoles(w io.Writer, flags globalFlags, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return NewInvalidArgumentError(args[0], "roles takes no arguments")
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return NewConfigError(err, "")
	}

	all := []roleResult{toRoleResult(registry.Lead())}
	for _, r := range registry.Ordered() {
		all = append(all, toRoleResult(r))
	}
	for i := range all {
		if all[i].Model == "" {
			all[i].Model = cfg.LLM.Model
		}
	}

	if flags.JSON {
		return printJSON(w, all)
	}
	tw := newTabWriter(w)
	writeRow(tw, "STEP", "ROLE", "TITLE", "TOOLS", "MODEL")
	for _, r := range all {
		step := strconv.Itoa(r.Step)
		if r.Step == 0 {
			step = "-"
		}
		tools := strings.Join(r.Tools, ",")
		if tools == "" {
			tools = "-"
		}
		model := r.Model
		if model == "" {
			model = fmt.Sprintf("(%s default)", cfg.LLM.Provider)
		}
		writeRow(tw, step, r.Name, r.Title, tools, model)
	}
	return tw.Flush()
}

func toRoleResult(r roles.Role) roleResult {
	return roleResult{
		Step:        r.Step,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		Tools:       r.Tools,
		Model:       r.Model,
		Source:      r.Source,
	}
}
