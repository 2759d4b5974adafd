package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every key-derived environment variable,
// e.g. SOPHIA_SERVER_PORT for server.port.
const envPrefix = "SOPHIA"

// legacyEnv maps config keys to the variable names used by the previous
// deployment. They are consulted after the SOPHIA_ variables.
var legacyEnv = map[string][]string{
	"server.port":                {"PORT"},
	"mcp.serverUrl":              {"MCP_SERVER_URL"},
	"courses.baseUrl":            {"COURSE_SERVICE_URL"},
	"providers.openai.apiKey":    {"OPENAI_API_KEY"},
	"providers.gemini.apiKey":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"providers.anthropic.apiKey": {"ANTHROPIC_API_KEY"},
	"providers.ollama.host":      {"OLLAMA_HOST"},
	"providers.ollama.model":     {"OLLAMA_MODEL"},
}

// ConfigPath returns the default configuration file path: ~/.sophia/config.yaml.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sophia/config.yaml"
	}
	return filepath.Join(home, ".sophia", "config.yaml")
}

// DataDir returns the service data directory: ~/.sophia.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sophia"
	}
	return filepath.Join(home, ".sophia")
}

// Load reads the YAML config file at path and applies environment overrides.
// If path is empty, ConfigPath() is used. A missing file yields the defaults;
// on parse failure it logs a warning and ignores the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := newViper()
	v.SetConfigFile(path)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("failed to parse config, using defaults", "path", path, "err", err)
			v = newViper()
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Watch reloads path whenever it changes on disk and passes the fresh config
// to onChange. It returns immediately; watching stops with the process.
func Watch(path string, onChange func(*Config)) error {
	if path == "" {
		path = ConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watch config %s: %w", path, err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config changed", "file", e.Name, "op", e.Op.String())
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config reload failed", "err", err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, envKey}, names...)...)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.readTimeoutSeconds", def.Server.ReadTimeoutSeconds)
	v.SetDefault("server.writeTimeoutSeconds", def.Server.WriteTimeoutSeconds)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.watch", def.Log.Watch)

	v.SetDefault("storage.path", def.Storage.Path)

	v.SetDefault("mcp.serverUrl", def.MCP.ServerURL)
	v.SetDefault("mcp.refreshSchedule", def.MCP.RefreshSchedule)
	v.SetDefault("mcp.healthIntervalSeconds", def.MCP.HealthIntervalSeconds)
	v.SetDefault("mcp.callTimeoutSeconds", def.MCP.CallTimeoutSeconds)

	v.SetDefault("courses.baseUrl", def.Courses.BaseURL)
	v.SetDefault("courses.timeoutSeconds", def.Courses.TimeoutSeconds)

	for name, p := range map[string]ProviderConfig{
		"openai":    def.Providers.OpenAI,
		"gemini":    def.Providers.Gemini,
		"anthropic": def.Providers.Anthropic,
	} {
		v.SetDefault("providers."+name+".apiKey", p.APIKey)
		v.SetDefault("providers."+name+".apiBase", p.APIBase)
		v.SetDefault("providers."+name+".defaultModel", p.DefaultModel)
	}
	v.SetDefault("providers.ollama.host", def.Providers.Ollama.Host)
	v.SetDefault("providers.ollama.model", def.Providers.Ollama.Model)

	v.SetDefault("agent.defaultProvider", def.Agent.DefaultProvider)
	v.SetDefault("agent.openaiModel", def.Agent.OpenAIModel)
	v.SetDefault("agent.geminiModel", def.Agent.GeminiModel)
	v.SetDefault("agent.openaiMaxIterations", def.Agent.OpenAIMaxIterations)
	v.SetDefault("agent.geminiMaxIterations", def.Agent.GeminiMaxIterations)
	v.SetDefault("agent.runTimeoutSeconds", def.Agent.RunTimeoutSeconds)
	v.SetDefault("agent.parallelTools", def.Agent.ParallelTools)
}
