// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/jllopis/specforge/pkg/config"
	"github.com/jllopis/specforge/pkg/core"
	"github.com/jllopis/specforge/pkg/orchestrator"
	"github.com/jllopis/specforge/pkg/progress"
	"github.com/jllopis/specforge/pkg/telemetry"
)

var separator = strings.Repeat("=", 60)

type runResult struct {
	RunID    string               `json:"run_id"`
	Path     string               `json:"path,omitempty"`
	Length   int                  `json:"length"`
	Failed   int                  `json:"failed_roles"`
	Summary  orchestrator.Summary `json:"summary"`
	Document string               `json:"document"`
}

func runRun(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	cmd.SetOutput(os.Stderr)
	verbose := cmd.Bool("verbose", false, "Show streamed model output while roles work")
	noSave := cmd.Bool("no-save", false, "Print the document without saving it")
	outDir := cmd.String("out", "", "Directory for the saved document (default output.dir)")
	noTelemetry := cmd.Bool("no-telemetry", false, "Disable telemetry export")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("run", err.Error())
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	idea := strings.Join(cmd.Args(), " ")
	if strings.TrimSpace(idea) == "" && !isatty.IsTerminal(os.Stdin.Fd()) {
		text, err := readIdea(os.Stdin)
		if err != nil {
			return NewInvalidArgumentError("idea", err.Error())
		}
		idea = text
	}

	exporter := cfg.Telemetry.Exporter
	if *noTelemetry {
		exporter = "none"
	}
	shutdown, err := telemetry.InitWithConfig("specforge", version, telemetry.Config{
		Exporter:     exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	}()

	var emitter core.EventEmitter
	if !flags.JSON {
		emitter = progress.NewConsole(os.Stderr, *verbose)
	}
	a, err := buildApp(ctx, cfg, appOptions{emitter: emitter, logOutput: os.Stderr})
	if err != nil {
		return NewConfigError(err, "")
	}
	defer a.Close()

	return generate(ctx, a, idea, !*noSave, os.Stdout, flags.JSON)
}

// generate performs one run, saves the document when save is set and
// prints it to w.
func generate(ctx context.Context, a *app, idea string, save bool, w io.Writer, asJSON bool) error {
	doc, err := a.orch.Run(ctx, idea)
	if err != nil {
		return WrapRunError(err)
	}

	result := runResult{
		RunID:    doc.RunID,
		Length:   len(doc.Text),
		Failed:   doc.Failed(),
		Summary:  doc.Summary,
		Document: doc.Text,
	}
	if save {
		path, err := a.store.Save(idea, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		result.Path = path
	}

	if asJSON {
		return printJSON(w, result)
	}
	fmt.Fprintf(w, "\n%s\n", doc.Text)
	fmt.Fprintf(w, "\n%s\n", separator)
	if result.Path != "" {
		fmt.Fprintf(w, "  Saved to: %s\n", result.Path)
	}
	fmt.Fprintf(w, "  Length: %s characters\n", groupThousands(result.Length))
	if result.Failed > 0 {
		fmt.Fprintf(w, "  Failed roles: %d\n", result.Failed)
	}
	return nil
}

// readIdea reads a piped idea, joining its lines.
func readIdea(r io.Reader) (string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, " "), nil
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
