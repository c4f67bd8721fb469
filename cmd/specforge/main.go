// Copyright 2026 © The Specforge Authors
// SPDX-License-Identifier: Apache-2.0

// Command specforge turns a one-line idea for an agentic application into a
// multi-section specification by delegating to a fixed pipeline of roles.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jllopis/specforge/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	ConfigArgs []string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(NewInvalidArgumentError("flags", err.Error()), false)
	}
	if global.Help || len(args) == 0 {
		printUsage(os.Stdout)
		return
	}

	switch args[0] {
	case "help":
		printUsage(os.Stdout)
		return
	case "version":
		printVersion(os.Stdout, global.JSON)
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		fatal(NewConfigError(err, configPath(global.ConfigArgs)), global.JSON)
	}

	switch args[0] {
	case "run":
		err = runRun(ctx, global, cfg, args[1:])
	case "roles":
		err = runRoles(os.Stdout, global, cfg, args[1:])
	case "adapters":
		err = runAdapters(os.Stdout, global, args[1:])
	case "mcp":
		err = runMCP(ctx, global, cfg, args[1:])
	default:
		err = NewInvalidArgumentError(args[0], fmt.Sprintf("unknown command %q", args[0]))
	}
	if err != nil {
		fatal(err, global.JSON)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config", arg == "--set", arg == "--profile":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="),
			strings.HasPrefix(arg, "--set="),
			strings.HasPrefix(arg, "--profile="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

// configPath extracts the --config value for error hints.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func printJSON(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeRow(w *tabwriter.Writer, cols ...string) {
	_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func printVersion(w io.Writer, asJSON bool) {
	if asJSON {
		_ = printJSON(w, map[string]string{"version": version})
		return
	}
	fmt.Fprintln(w, version)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `specforge turns an idea into an agentic application specification.

Usage:
  specforge [global flags] <command> [args]

Global flags:
  --config <path>      YAML config file
  --profile <name>     Overlay config.<name>.yaml from the config directory
  --set key=value      Override config (repeatable)
  --json               JSON output and errors

Commands:
  run [--verbose] [--no-save] <idea...>   Generate a specification
  roles                                  List the pipeline roles in order
  adapters [--type llm|search|telemetry] List the available backends
  mcp [--http <addr>]                    Serve generate_spec over MCP (stdio by default)
  version
  help

Environment:
  SPECFORGE_<SECTION>_<KEY> overrides a setting (SPECFORGE_LLM_MODEL=gpt-4o).
  TAVILY_API_KEY is used when search.api_key is not set.
`)
}

func fatal(err error, asJSON bool) {
	if cliErr, ok := err.(*CLIError); ok {
		cliErr.PrintError(os.Stderr, asJSON)
	} else {
		PrintSimpleError(os.Stderr, err, asJSON)
	}
	os.Exit(1)
}
