package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
)

func resetKoanf(t *testing.T) {
	t.Helper()
	k = koanf.New(".")
}

func TestLoadWithCLIOverrides(t *testing.T) {
	resetKoanf(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := []byte(`
llm:
  provider: ollama
  model: model-a
telemetry:
  exporter: stdout
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SPECFORGE_LLM_PROVIDER", "openai")

	cfg, err := LoadWithCLI([]string{
		"run",
		"--config", path,
		"--set", "llm.provider=anthropic",
		"--set", "lead.screen=false",
		"--set", "worker.max_tool_rounds=2",
		"--set", "worker.timeout=45s",
		"--set", "llm.temperature=0.7",
		`--set`, `roles.models={"designer":"claude-sonnet-4-5","verifier":"claude-haiku-4-5"}`,
		`--set=search.mcp.args=["--stdio","--quiet"]`,
		"build", "a", "bot",
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Fatalf("expected cli override provider, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "model-a" {
		t.Fatalf("expected model from file, got %s", cfg.LLM.Model)
	}
	if cfg.Lead.Screen {
		t.Fatalf("expected lead.screen=false")
	}
	if cfg.Worker.MaxToolRounds != 2 {
		t.Fatalf("expected worker.max_tool_rounds override, got %d", cfg.Worker.MaxToolRounds)
	}
	if cfg.Worker.Timeout.Seconds() != 45 {
		t.Fatalf("expected 45s timeout, got %s", cfg.Worker.Timeout)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("expected temperature override, got %v", cfg.LLM.Temperature)
	}
	if cfg.Roles.Models["designer"] != "claude-sonnet-4-5" || cfg.Roles.Models["verifier"] != "claude-haiku-4-5" {
		t.Fatalf("unexpected role models %v", cfg.Roles.Models)
	}
	if len(cfg.Search.MCP.Args) != 2 || cfg.Search.MCP.Args[1] != "--quiet" {
		t.Fatalf("unexpected mcp args %v", cfg.Search.MCP.Args)
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Fatalf("expected exporter from file, got %s", cfg.Telemetry.Exporter)
	}
}

func TestLoadWithCLIProfile(t *testing.T) {
	tmpDir := t.TempDir()
	basePath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(basePath, []byte("llm:\n  provider: \"ollama\"\n"), 0644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}
	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	if err := os.WriteFile(devPath, []byte("llm:\n  provider: \"mock\"\n"), 0644); err != nil {
		t.Fatalf("failed to write dev config: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"profile flag", []string{"--config", basePath, "--profile", "dev"}},
		{"env flag alias", []string{"--config", basePath, "--env", "dev"}},
		{"profile with equals", []string{"--config=" + basePath, "--profile=dev"}},
		{"env with equals", []string{"--config=" + basePath, "--env=dev"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadWithCLI(tc.args)
			if err != nil {
				t.Fatalf("LoadWithCLI failed: %v", err)
			}
			if cfg.LLM.Provider != "mock" {
				t.Errorf("provider: got %s, want mock", cfg.LLM.Provider)
			}
		})
	}
}

func TestParseCLIOverridesErrors(t *testing.T) {
	resetKoanf(t)
	if _, _, err := parseCLIOverrides([]string{"--config"}); err == nil {
		t.Fatalf("expected error for missing --config value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set"}); err == nil {
		t.Fatalf("expected error for missing --set value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set", "invalid"}); err == nil {
		t.Fatalf("expected error for invalid --set value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set", "=value"}); err == nil {
		t.Fatalf("expected error for empty --set key")
	}
}

func TestParseSetValues(t *testing.T) {
	tests := []struct {
		raw  string
		key  string
		want any
	}{
		{"llm.model=gpt-4o", "llm.model", "gpt-4o"},
		{"worker.stream=true", "worker.stream", true},
		{"worker.max_tool_rounds=4", "worker.max_tool_rounds", float64(4)},
		{"output.dir=out=dir", "output.dir", "out=dir"},
		{"llm.api_key=", "llm.api_key", ""},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			o, err := parseSet(tc.raw)
			if err != nil {
				t.Fatalf("parseSet failed: %v", err)
			}
			if o.key != tc.key || o.value != tc.want {
				t.Errorf("parseSet(%q) = %q=%v, want %q=%v", tc.raw, o.key, o.value, tc.key, tc.want)
			}
		})
	}
}
