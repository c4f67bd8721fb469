// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jllopis/specforge/pkg/core"
	kerrors "github.com/jllopis/specforge/pkg/errors"
)

const verdictProceed = "PROCEED"

// clarifyLine matches a CLARIFY verdict with any separator before the
// message: "CLARIFY: x", "CLARIFY - x", "**CLARIFY** x".
var clarifyLine = regexp.MustCompile(`(?i)^clarify\b[\s:*\-–—.,]*(.*)$`)

// screenIdea asks the lead whether the idea can be delegated. Only an
// explicit clarification request rejects the idea; a failed or unreadable
// screening lets the run proceed.
func (o *Orchestrator) screenIdea(ctx context.Context, runID, idea string) *kerrors.Error {
	lead := o.registry.Lead()
	ctx = core.WithRole(ctx, lead.Name)
	start := time.Now()
	o.emit(ctx, runID, core.EventRoleStarted, lead.Name, 0, map[string]any{
		"title":    lead.Title,
		"activity": lead.Activity,
	})

	reply, err := o.exec.Execute(ctx, lead, idea)
	if err != nil {
		o.logger.WarnContext(ctx, "orchestrator.screen.error",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		o.emit(ctx, runID, core.EventRoleCompleted, lead.Name, 0, map[string]any{
			"duration": time.Since(start),
			"verdict":  "skipped",
		})
		return nil
	}

	proceed, msg := ParseScreening(reply)
	o.logger.InfoContext(ctx, "orchestrator.screen.complete",
		slog.String("run_id", runID),
		slog.Bool("proceed", proceed),
	)
	if proceed {
		o.emit(ctx, runID, core.EventRoleCompleted, lead.Name, 0, map[string]any{
			"duration": time.Since(start),
			"verdict":  verdictProceed,
		})
		return nil
	}
	o.emit(ctx, runID, core.EventRoleFailed, lead.Name, 0, map[string]any{
		"duration": time.Since(start),
		"reason":   msg,
	})
	return NewInputRejected(msg).
		WithContext("run_id", runID).
		WithContext("idea", idea)
}

// ParseScreening reads the lead's reply. The first non-empty line is either
// PROCEED or CLARIFY followed by a message; anything else counts as
// PROCEED.
func ParseScreening(reply string) (proceed bool, message string) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*`"))
		if line == "" {
			continue
		}
		if m := clarifyLine.FindStringSubmatch(line); m != nil {
			message = strings.TrimSpace(m[1])
			if message == "" {
				message = "the idea needs clarification"
			}
			return false, message
		}
		return true, ""
	}
	return true, ""
}
