package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/internal/config"
)

func TestConfigDocLookupAndAssign(t *testing.T) {
	doc := configDoc{
		"agent": map[string]any{"max_turns": 5},
	}
	value, ok := doc.lookup("agent.max_turns")
	require.True(t, ok)
	require.Equal(t, 5, value)

	require.NoError(t, doc.assign("agent.max_turns", 8))
	value, ok = doc.lookup("agent.max_turns")
	require.True(t, ok)
	require.Equal(t, 8, value)

	require.NoError(t, doc.assign("tools.stac_endpoint", "http://localhost:8081"))
	value, ok = doc.lookup("tools.stac_endpoint")
	require.True(t, ok)
	require.Equal(t, "http://localhost:8081", value)

	_, ok = doc.lookup("agent.max_turns.nested")
	require.False(t, ok)
	require.Error(t, doc.assign("agent.max_turns.nested", 1))
}

func TestParseValue(t *testing.T) {
	require.Equal(t, true, parseValue("agent.debug", "true"))
	require.Equal(t, int64(1), parseValue("agent.max_turns", "1"))
	require.Equal(t, int64(-3), parseValue("x", "-3"))
	require.Equal(t, 0.5, parseValue("llm.temperature", "0.5"))
	require.Equal(t, "ollama", parseValue("llm.provider", "ollama"))
	require.Equal(t, "00123", parseValue("x", "00123"))
	require.Equal(t, "123456", parseValue("llm.api_key", "123456"))
	require.Equal(t, "30s", parseValue("tools.timeout", "30s"))
}

func TestConfigSetRefusesInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptstac.yaml")
	original := "agent:\n  max_turns: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	_, err := runCLI(t, "--config", path, "config", "set", "agent.max_turns", "five")
	require.ErrorIs(t, err, framework.ErrConfiguration)
	_, err = runCLI(t, "--config", path, "config", "set", "agent.max_turn", "4")
	require.ErrorIs(t, err, framework.ErrConfiguration)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, string(data))

	out, err := runCLI(t, "--config", path, "config", "set", "agent.max_turns", "4")
	require.NoError(t, err)
	require.Contains(t, out, "agent.max_turns updated")
}

func TestConfigSetRepairsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptstac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_turns: five\n"), 0o644))

	_, err := runCLI(t, "--config", path, "config", "validate")
	require.ErrorIs(t, err, framework.ErrConfiguration)

	_, err = runCLI(t, "--config", path, "config", "set", "agent.max_turns", "5")
	require.NoError(t, err)
	out, err := runCLI(t, "--config", path, "config", "get", "agent.max_turns")
	require.NoError(t, err)
	require.Equal(t, "5\n", out)
}

func TestConfigSetCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gptstac.yaml")

	_, err := runCLI(t, "--config", path, "config", "set", "tools.stac_endpoint", "http://localhost:8081")
	require.NoError(t, err)

	cfg, err := config.Parse(mustRead(t, path))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8081", cfg.Tools.STACEndpoint)
}

func TestConfigSetKeepsSecretsAsStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptstac.yaml")

	_, err := runCLI(t, "--config", path, "config", "set", "tools.opencage_api_key", "0012345")
	require.NoError(t, err)

	cfg, err := config.Parse(mustRead(t, path))
	require.NoError(t, err)
	require.Equal(t, "0012345", cfg.Tools.GeocodeAPIKey)
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestConfigSetThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptstac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0o644))

	out, err := runCLI(t, "--config", path, "config", "set", "agent.max_turns", "7")
	require.NoError(t, err)
	require.Contains(t, out, "agent.max_turns updated")

	out, err = runCLI(t, "--config", path, "config", "get", "agent.max_turns")
	require.NoError(t, err)
	require.Equal(t, "7\n", out)

	out, err = runCLI(t, "--config", path, "config", "get", "llm.provider")
	require.NoError(t, err)
	require.Equal(t, "openai\n", out)

	_, err = runCLI(t, "--config", path, "config", "get", "llm.missing")
	require.Error(t, err)
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptstac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  llm_debug: false\n"), 0o644))
	t.Setenv("OPENAI_API_KEY", "sk-verysecretvalue")
	t.Setenv("OPENCAGE_API_KEY", "opencage-secret-key")

	out, err := runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	require.NotContains(t, out, "verysecret")
	require.NotContains(t, out, "secret-key")
	require.Contains(t, out, "provider: openai")
}

func TestConfigValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptstac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0o644))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENCAGE_API_KEY", "")

	_, err := runCLI(t, "--config", path, "config", "validate")
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENCAGE_API_KEY", "oc-test")
	out, err := runCLI(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	require.Equal(t, "configuration ok\n", out)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
