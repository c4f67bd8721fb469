// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress renders run events for a human watching the terminal.
// It only observes; nothing it does affects the run.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/jllopis/specforge/pkg/core"
)

const rule = "============================================================"

// Console prints progress lines such as "[2/5] Agent Designer  (42s elapsed)".
type Console struct {
	mu        sync.Mutex
	w         io.Writer
	verbose   bool
	now       func() time.Time
	runStart  time.Time
	roleStart map[string]time.Time
	streaming bool

	title   lipgloss.Style
	done    lipgloss.Style
	failed  lipgloss.Style
	faint   lipgloss.Style
	colored bool
}

// NewConsole returns a Console writing to w. Colour is used only when w is
// a terminal. With verbose set, streamed text is echoed as it arrives.
func NewConsole(w io.Writer, verbose bool) *Console {
	c := &Console{
		w:         w,
		verbose:   verbose,
		now:       time.Now,
		roleStart: make(map[string]time.Time),
		colored:   IsTerminal(w),
	}
	r := lipgloss.NewRenderer(w)
	c.title = r.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	c.done = r.NewStyle().Foreground(lipgloss.Color("42"))
	c.failed = r.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	c.faint = r.NewStyle().Faint(true)
	return c
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Emit implements core.EventEmitter.
func (c *Console) Emit(_ context.Context, ev core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := ev.Timestamp
	if at.IsZero() {
		at = c.now()
	}

	switch ev.Type {
	case core.EventRunStarted:
		c.runStart = at
		idea, _ := ev.Payload["idea"].(string)
		c.printf("\n  Generating specification for: %s\n", strings.Join(strings.Fields(idea), " "))
		c.printf("%s\n  Pipeline: Lead -> %d roles\n%s\n", rule, ev.Total, rule)

	case core.EventRoleStarted:
		c.roleStart[ev.Role] = at
		title, _ := ev.Payload["title"].(string)
		activity, _ := ev.Payload["activity"].(string)
		elapsed := FormatDuration(at.Sub(c.runStart))
		if ev.Step == 0 {
			c.printf("\n  %s %s...  (%s elapsed)\n", c.style(c.title, "["+title+"]"), activity, elapsed)
			return
		}
		c.printf("\n  %s  (%s elapsed)\n", c.style(c.title, fmt.Sprintf("[%d/%d] %s", ev.Step, ev.Total, title)), elapsed)
		if activity != "" {
			c.printf("  %s...\n", activity)
		}

	case core.EventRoleChunk:
		if !c.verbose {
			return
		}
		content, _ := ev.Payload["content"].(string)
		c.streaming = true
		c.printf("%s", c.style(c.faint, content))

	case core.EventRoleCompleted:
		c.endStream()
		c.printf("  %s\n", c.style(c.done, "Done ("+FormatDuration(c.duration(ev, at))+")"))

	case core.EventRoleFailed:
		c.endStream()
		reason, _ := ev.Payload["reason"].(string)
		c.printf("  %s\n", c.style(c.failed, fmt.Sprintf("Failed (%s): %s", FormatDuration(c.duration(ev, at)), reason)))

	case core.EventRunCompleted:
		outcome, _ := ev.Payload["outcome"].(string)
		if outcome == "rejected" {
			return
		}
		total := FormatDuration(at.Sub(c.runStart))
		c.printf("\n%s\n", rule)
		if outcome == "completed" {
			c.printf("  Completed in %s\n", total)
		} else {
			reason, _ := ev.Payload["reason"].(string)
			c.printf("  %s\n", c.style(c.failed, fmt.Sprintf("Run failed after %s: %s", total, reason)))
		}
		c.printf("%s\n", rule)
	}
}

func (c *Console) duration(ev core.Event, at time.Time) time.Duration {
	if d, ok := ev.Payload["duration"].(time.Duration); ok {
		return d
	}
	if start, ok := c.roleStart[ev.Role]; ok {
		return at.Sub(start)
	}
	return 0
}

func (c *Console) endStream() {
	if c.streaming {
		c.printf("\n")
		c.streaming = false
	}
}

func (c *Console) style(s lipgloss.Style, text string) string {
	if !c.colored {
		return text
	}
	return s.Render(text)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

// FormatDuration renders d as "42s" under a minute and "3m 5s" otherwise.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0 {
		secs = 0
	}
	if secs < 60 {
		return fmt.Sprintf("%.0fs", secs)
	}
	whole := int(secs)
	return fmt.Sprintf("%dm %ds", whole/60, whole%60)
}
