package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "gptstac.yaml"

// Config captures every knob shared by the HTTP server, the CLI and the TUI.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Tools   ToolsConfig   `yaml:"tools"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects the completion service.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	OllamaEndpoint string        `yaml:"ollama_endpoint"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	Timeout        time.Duration `yaml:"timeout"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	MaxTurns int  `yaml:"max_turns"`
	Debug    bool `yaml:"debug"`
}

// ToolsConfig points the adapters at their services.
type ToolsConfig struct {
	STACEndpoint      string        `yaml:"stac_endpoint"`
	MaxItems          int           `yaml:"max_items"`
	WikipediaEndpoint string        `yaml:"wikipedia_endpoint"`
	GeocodeEndpoint   string        `yaml:"geocode_endpoint"`
	GeocodeAPIKey     string        `yaml:"opencage_api_key"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	TemplatesDir   string        `yaml:"templates_dir"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	// File receives NDJSON telemetry when set.
	File string `yaml:"file"`
	// TraceFile receives OpenTelemetry spans as JSON when set.
	TraceFile string `yaml:"trace_file"`
	LLMDebug  bool   `yaml:"llm_debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-3.5-turbo",
			OllamaEndpoint: "http://localhost:11434",
			Timeout:        2 * time.Minute,
		},
		Agent: AgentConfig{MaxTurns: 5},
		Tools: ToolsConfig{
			STACEndpoint:      "https://planetarycomputer.microsoft.com/api/stac/v1",
			MaxItems:          10,
			WikipediaEndpoint: "https://en.wikipedia.org",
			GeocodeEndpoint:   "https://api.opencagedata.com",
			Timeout:           30 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			TemplatesDir:   "templates",
			RequestTimeout: 2 * time.Minute,
		},
	}
}

// Load reads path over the defaults, then applies the environment. A missing
// file is not an error. The result is normalized but not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = decode(data); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", framework.ErrConfiguration, path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("%w: read %s: %v", framework.ErrConfiguration, path, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalize()
	return cfg, nil
}

// Parse decodes a config document over the defaults and normalizes it.
// Unknown keys and values of the wrong type are errors. The environment is
// not consulted.
func Parse(data []byte) (Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", framework.ErrConfiguration, err)
	}
	cfg.Normalize()
	return cfg, nil
}

func decode(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("OPENAI_API_KEY", &c.LLM.APIKey)
	set("OPENAI_BASE_URL", &c.LLM.BaseURL)
	set("GPTSTAC_PROVIDER", &c.LLM.Provider)
	set("GPTSTAC_MODEL", &c.LLM.Model)
	set("OLLAMA_ENDPOINT", &c.LLM.OllamaEndpoint)
	set("OPENCAGE_API_KEY", &c.Tools.GeocodeAPIKey)
	set("STAC_ENDPOINT", &c.Tools.STACEndpoint)
	set("GPTSTAC_ADDR", &c.Server.Addr)
}

// Normalize fills missing defaults so callers never re-check them.
func (c *Config) Normalize() {
	def := Default()
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.Model == "" && c.LLM.Provider == def.LLM.Provider {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.OllamaEndpoint == "" {
		c.LLM.OllamaEndpoint = def.LLM.OllamaEndpoint
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = def.LLM.Timeout
	}
	if c.Agent.MaxTurns == 0 {
		c.Agent.MaxTurns = def.Agent.MaxTurns
	}
	if c.Tools.STACEndpoint == "" {
		c.Tools.STACEndpoint = def.Tools.STACEndpoint
	}
	if c.Tools.MaxItems <= 0 {
		c.Tools.MaxItems = def.Tools.MaxItems
	}
	if c.Tools.WikipediaEndpoint == "" {
		c.Tools.WikipediaEndpoint = def.Tools.WikipediaEndpoint
	}
	if c.Tools.GeocodeEndpoint == "" {
		c.Tools.GeocodeEndpoint = def.Tools.GeocodeEndpoint
	}
	if c.Tools.Timeout <= 0 {
		c.Tools.Timeout = def.Tools.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.TemplatesDir == "" {
		c.Server.TemplatesDir = def.Server.TemplatesDir
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = def.Server.RequestTimeout
	}
}

// Validate reports missing credentials and impossible limits. Every problem is
// listed; the error matches framework.ErrConfiguration.
func (c Config) Validate() error {
	var problems []string
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			problems = append(problems, "OPENAI_API_KEY must be defined in your environment")
		}
	case "ollama":
		if c.LLM.Model == "" {
			problems = append(problems, "llm.model is required for the ollama provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.Tools.GeocodeAPIKey == "" {
		problems = append(problems, "OPENCAGE_API_KEY is required")
	}
	if c.Agent.MaxTurns < 1 {
		problems = append(problems, fmt.Sprintf("agent.max_turns must be at least 1, got %d", c.Agent.MaxTurns))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", framework.ErrConfiguration, strings.Join(problems, "; "))
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.LLM.APIKey = redact(c.LLM.APIKey)
	c.Tools.GeocodeAPIKey = redact(c.Tools.GeocodeAPIKey)
	return c
}

// YAML renders the configuration with secrets redacted.
func (c Config) YAML() (string, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:3] + "****" + secret[len(secret)-2:]
}
