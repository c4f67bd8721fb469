// Package config loads specforge settings from defaults, an optional YAML
// file, SPECFORGE_* environment variables and --set overrides, in that
// order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/specforge/pkg/errors"
)

const envPrefix = "SPECFORGE_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Lead      LeadConfig      `koanf:"lead"`
	Worker    WorkerConfig    `koanf:"worker"`
	Roles     RolesConfig     `koanf:"roles"`
	Search    SearchConfig    `koanf:"search"`
	Output    OutputConfig    `koanf:"output"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // openai, anthropic, gemini, ollama, mock
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// LeadConfig controls the lead's screening call before delegation.
type LeadConfig struct {
	Screen bool   `koanf:"screen"`
	Model  string `koanf:"model"`
}

type WorkerConfig struct {
	Timeout       time.Duration `koanf:"timeout"`
	MaxToolRounds int           `koanf:"max_tool_rounds"`
	Stream        bool          `koanf:"stream"`
}

// RolesConfig points at replacement role files and per-role model
// overrides keyed by role name.
type RolesConfig struct {
	Dir    string            `koanf:"dir"`
	Models map[string]string `koanf:"models"`
}

type SearchConfig struct {
	Provider          string        `koanf:"provider"` // tavily, mcp, mock
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RateLimit         float64       `koanf:"rate_limit"`
	Burst             int           `koanf:"burst"`
	DefaultMaxResults int           `koanf:"default_max_results"`
	MCP               MCPConfig     `koanf:"mcp"`
}

// MCPConfig locates an MCP server exposing a search tool. Command starts
// a stdio server; URL dials a streamable HTTP one.
type MCPConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
	URL     string   `koanf:"url"`
	Tool    string   `koanf:"tool"`
}

type OutputConfig struct {
	Dir string `koanf:"dir"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Global k instance
var k = koanf.New(".")

func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile loads path and then config.<profile>.yaml next to it,
// when that file exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI extracts --config, --profile/--env and --set flags from args
// and loads the configuration they describe. Other arguments are ignored.
func LoadWithCLI(args []string) (*Config, error) {
	opts, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(opts.path, opts.profile, sets)
}

func load(path, profile string, sets []override) (*Config, error) {
	k = koanf.New(".")
	setDefaults()

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.New(errors.CodeConfigError, "failed to read config file", err).
				WithContext("path", path)
		}
		if p := profileConfigPath(path, profile); p != "" {
			if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
				return nil, errors.New(errors.CodeConfigError, "failed to read profile config", err).
					WithContext("path", p)
			}
		}
	}

	// 2. Load from ENV (SPECFORGE_LLM_MODEL -> llm.model)
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, errors.New(errors.CodeConfigError, "failed to read environment", err)
	}
	if !k.Exists("search.api_key") || k.String("search.api_key") == "" {
		if key := os.Getenv("TAVILY_API_KEY"); key != "" {
			_ = k.Set("search.api_key", key)
		}
	}

	// 3. Apply --set overrides
	for _, o := range sets {
		if err := k.Set(o.key, o.value); err != nil {
			return nil, errors.New(errors.CodeConfigError, "invalid --set override", err).
				WithContext("key", o.key)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.New(errors.CodeConfigError, "failed to decode config", err)
	}
	return &cfg, nil
}

func setDefaults() {
	k.Set("log.level", "warn")
	k.Set("log.format", "text")

	k.Set("llm.provider", "openai")
	k.Set("llm.temperature", 0.2)

	k.Set("lead.screen", true)

	k.Set("worker.timeout", "5m")
	k.Set("worker.max_tool_rounds", 8)
	k.Set("worker.stream", true)

	k.Set("search.provider", "tavily")
	k.Set("search.timeout", "30s")
	k.Set("search.rate_limit", 2.0)
	k.Set("search.burst", 4)
	k.Set("search.default_max_results", 5)
	k.Set("search.mcp.tool", "tavily-search")

	k.Set("output.dir", "output")

	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.otlp_endpoint", "localhost:4317")
	k.Set("telemetry.otlp_insecure", true)
}

// envKey maps an environment variable to a config key. A double
// underscore separates every level (SPECFORGE_ROLES__MODELS__VERIFIER);
// otherwise only the first underscore does, so multi-word keys survive
// (SPECFORGE_WORKER_MAX_TOOL_ROUNDS -> worker.max_tool_rounds).
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}
	return strings.Replace(key, "_", ".", 1)
}

// profileConfigPath returns config.<profile>.yaml beside base, or "" when
// there is no profile or no such file.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	p := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

type cliOptions struct {
	path    string
	profile string
}

type override struct {
	key   string
	value any
}

func parseCLIOverrides(args []string) (cliOptions, []override, error) {
	var (
		opts cliOptions
		sets []override
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--config", "--profile", "--env", "--set":
		default:
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return opts, nil, fmt.Errorf("missing value for %s", name)
			}
			i++
			value = args[i]
		}
		switch name {
		case "--config":
			opts.path = value
		case "--profile", "--env":
			opts.profile = value
		case "--set":
			o, err := parseSet(value)
			if err != nil {
				return opts, nil, err
			}
			sets = append(sets, o)
		}
	}
	return opts, sets, nil
}

// parseSet splits key=value. JSON values (objects, arrays, numbers,
// booleans) are decoded; anything else is kept as a string.
func parseSet(raw string) (override, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return override{}, fmt.Errorf("invalid --set value %q, expected key=value", raw)
	}
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return override{key: key, value: decoded}, nil
	}
	return override{key: key, value: value}, nil
}

var (
	llmProviders    = []string{"openai", "anthropic", "gemini", "ollama", "mock"}
	searchProviders = []string{"tavily", "mcp", "mock"}
	exporters       = []string{"none", "stdout", "otlp"}
	logFormats      = []string{"text", "json"}
)

// Validate reports the first invalid setting as CONFIG_ERROR.
func (c *Config) Validate() error {
	if err := oneOf("llm.provider", c.LLM.Provider, llmProviders); err != nil {
		return err
	}
	if err := oneOf("search.provider", c.Search.Provider, searchProviders); err != nil {
		return err
	}
	if err := oneOf("telemetry.exporter", c.Telemetry.Exporter, exporters); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, logFormats); err != nil {
		return err
	}
	switch {
	case c.LLM.Temperature < 0 || c.LLM.Temperature > 2:
		return invalid("llm.temperature", "must be between 0 and 2")
	case c.LLM.MaxTokens < 0:
		return invalid("llm.max_tokens", "must not be negative")
	case c.Worker.Timeout <= 0:
		return invalid("worker.timeout", "must be positive")
	case c.Worker.MaxToolRounds < 0:
		return invalid("worker.max_tool_rounds", "must not be negative")
	case c.Search.DefaultMaxResults <= 0:
		return invalid("search.default_max_results", "must be positive")
	case c.Search.Provider == "tavily" && strings.TrimSpace(c.Search.APIKey) == "":
		return invalid("search.api_key", "required for tavily (set TAVILY_API_KEY)")
	case c.Search.Provider == "mcp" && c.Search.MCP.Command == "" && c.Search.MCP.URL == "":
		return invalid("search.mcp.command", "command or url required for mcp search")
	case strings.TrimSpace(c.Output.Dir) == "":
		return invalid("output.dir", "must not be empty")
	}
	return nil
}

func oneOf(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(key, fmt.Sprintf("%q is not one of %s", value, strings.Join(allowed, ", ")))
}

func invalid(key, msg string) error {
	return errors.New(errors.CodeConfigError, key+" "+msg, nil).WithContext("setting", key)
}
