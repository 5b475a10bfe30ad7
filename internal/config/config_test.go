package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gptstac.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o-mini
agent:
  max_turns: 3
tools:
  max_items: 4
  timeout: 5s
server:
  addr: ":9999"
logging:
  file: telemetry.ndjson
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Agent.MaxTurns)
	assert.Equal(t, 4, cfg.Tools.MaxItems)
	assert.Equal(t, 5*time.Second, cfg.Tools.Timeout)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "telemetry.ndjson", cfg.Logging.File)
	assert.Equal(t, "https://planetarycomputer.microsoft.com/api/stac/v1", cfg.Tools.STACEndpoint)
	assert.Equal(t, 2*time.Minute, cfg.Server.RequestTimeout)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, framework.ErrConfiguration)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, framework.ErrConfiguration)
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "from-file"
	cfg.ApplyEnv(envMap(map[string]string{
		"OPENAI_API_KEY":   "sk-env",
		"OPENCAGE_API_KEY": "oc-env",
		"GPTSTAC_PROVIDER": "ollama",
		"GPTSTAC_MODEL":    "llama3",
		"STAC_ENDPOINT":    "http://stac.local",
		"GPTSTAC_ADDR":     "   ",
	}))
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "oc-env", cfg.Tools.GeocodeAPIKey)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "http://stac.local", cfg.Tools.STACEndpoint)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.ErrorIs(t, err, framework.ErrConfiguration)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "OPENCAGE_API_KEY")

	cfg.LLM.APIKey = "sk"
	cfg.Tools.GeocodeAPIKey = "oc"
	assert.NoError(t, cfg.Validate())

	cfg.Agent.MaxTurns = -1
	assert.ErrorIs(t, cfg.Validate(), framework.ErrConfiguration)

	ollama := Default()
	ollama.LLM.Provider = "ollama"
	ollama.Tools.GeocodeAPIKey = "oc"
	assert.NoError(t, ollama.Validate())

	ollama.Tools.GeocodeAPIKey = ""
	assert.ErrorIs(t, ollama.Validate(), framework.ErrConfiguration)
}

func TestYAMLRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "sk-1234567890abcdef"
	cfg.Tools.GeocodeAPIKey = "short"
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, out, "1234567890abcdef")
	assert.Contains(t, out, "sk-****ef")
	assert.NotContains(t, out, "short")
	assert.Contains(t, out, "timeout: 30s")
	assert.Equal(t, "sk-1234567890abcdef", cfg.LLM.APIKey)
}

func TestParseRejectsUnknownKeysAndBadTypes(t *testing.T) {
	_, err := Parse([]byte("agent:\n  max_turn: 3\n"))
	assert.ErrorIs(t, err, framework.ErrConfiguration)

	_, err = Parse([]byte("agent:\n  max_turns: five\n"))
	assert.ErrorIs(t, err, framework.ErrConfiguration)

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Agent.MaxTurns)

	cfg, err = Parse([]byte("tools:\n  timeout: 45s\n"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Tools.Timeout)
}
