package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err, "marshal config")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600), "write config")
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.MCP.ServerURL, cfg.MCP.ServerURL)
	assert.Equal(t, 20, cfg.Agent.OpenAIMaxIterations)
	assert.Equal(t, 60, cfg.Agent.GeminiMaxIterations)
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"server": map[string]any{"port": 8080},
		"providers": map[string]any{
			"openai": map[string]any{"apiKey": "sk-test"},
		},
		"agent": map[string]any{"geminiMaxIterations": 15},
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, 15, cfg.Agent.GeminiMaxIterations)
	// untouched keys keep their defaults
	assert.Equal(t, "gpt-3.5-turbo", cfg.Providers.OpenAI.DefaultModel)
	assert.Equal(t, 20, cfg.Agent.OpenAIMaxIterations)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [port: {"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err, "invalid YAML falls back to defaults")
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SOPHIA_SERVER_PORT", "9191")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("MCP_SERVER_URL", "http://mcp:3000/mcp")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "http://ollama:11434", cfg.Providers.Ollama.Host)
	assert.Equal(t, "http://mcp:3000/mcp", cfg.MCP.ServerURL)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("SOPHIA_PROVIDERS_GEMINI_APIKEY", "new-key")
	t.Setenv("GEMINI_API_KEY", "old-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "new-key", cfg.Providers.Gemini.APIKey)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Providers.Anthropic.APIKey = "ak-123"
	cfg.Agent.ParallelTools = true
	require.NoError(t, Save(&cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ak-123", loaded.Providers.Anthropic.APIKey)
	assert.True(t, loaded.Agent.ParallelTools)
}

func TestDatabasePath_ExpandsHome(t *testing.T) {
	cfg := DefaultConfig()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sophia", "tutorchat.db"), cfg.DatabasePath())

	cfg.Storage.Path = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath())
}
