// Package config defines the configuration schema for the tutor chat service.
//
// Keys use camelCase in the YAML file. Every key can be overridden from the
// environment with the SOPHIA_ prefix (dots become underscores), and the
// variable names of the previous Node deployment are still honoured.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host                string `mapstructure:"host" yaml:"host"`
	Port                int    `mapstructure:"port" yaml:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"readTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `mapstructure:"writeTimeoutSeconds" yaml:"writeTimeoutSeconds"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:                "0.0.0.0",
		Port:                3000,
		ReadTimeoutSeconds:  30,
		WriteTimeoutSeconds: 900,
	}
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug | info | warn | error
	Format string `mapstructure:"format" yaml:"format"` // text | json
	Watch  bool   `mapstructure:"watch" yaml:"watch"`   // re-apply level when the file changes
}

func defaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}

// StorageConfig locates the SQLite conversation store.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

func defaultStorageConfig() StorageConfig {
	return StorageConfig{Path: "~/.sophia/tutorchat.db"}
}

// MCPConfig points at the course MCP server.
type MCPConfig struct {
	ServerURL             string `mapstructure:"serverUrl" yaml:"serverUrl"`
	RefreshSchedule       string `mapstructure:"refreshSchedule" yaml:"refreshSchedule"`
	HealthIntervalSeconds int    `mapstructure:"healthIntervalSeconds" yaml:"healthIntervalSeconds"`
	CallTimeoutSeconds    int    `mapstructure:"callTimeoutSeconds" yaml:"callTimeoutSeconds"`
}

func defaultMCPConfig() MCPConfig {
	return MCPConfig{
		ServerURL:             "http://localhost:3000/mcp",
		RefreshSchedule:       "@every 10m",
		HealthIntervalSeconds: 60,
		CallTimeoutSeconds:    60,
	}
}

// CoursesConfig points at the course REST API used as the fallback transport.
type CoursesConfig struct {
	BaseURL        string `mapstructure:"baseUrl" yaml:"baseUrl"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
}

func defaultCoursesConfig() CoursesConfig {
	return CoursesConfig{BaseURL: "http://localhost:3000/api/v1", TimeoutSeconds: 30}
}

// ProviderConfig holds credentials for one hosted LLM provider.
type ProviderConfig struct {
	APIKey       string `mapstructure:"apiKey" yaml:"apiKey"`
	APIBase      string `mapstructure:"apiBase" yaml:"apiBase,omitempty"`
	DefaultModel string `mapstructure:"defaultModel" yaml:"defaultModel"`
}

// OllamaConfig points at a local Ollama daemon.
type OllamaConfig struct {
	Host  string `mapstructure:"host" yaml:"host"`
	Model string `mapstructure:"model" yaml:"model"`
}

// ProvidersConfig holds every supported LLM backend.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai" yaml:"openai"`
	Gemini    ProviderConfig `mapstructure:"gemini" yaml:"gemini"`
	Anthropic ProviderConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Ollama    OllamaConfig   `mapstructure:"ollama" yaml:"ollama"`
}

func defaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		OpenAI:    ProviderConfig{DefaultModel: "gpt-3.5-turbo"},
		Gemini:    ProviderConfig{DefaultModel: "gemini-2.0-flash"},
		Anthropic: ProviderConfig{DefaultModel: "claude-3-5-haiku-latest"},
		Ollama:    OllamaConfig{Host: "http://localhost:11434", Model: "Llama2:7b-chat"},
	}
}

// AgentConfig bounds agent runs. Iteration caps count full
// model-call/tool-execution round-trips for both dialects.
type AgentConfig struct {
	DefaultProvider     string `mapstructure:"defaultProvider" yaml:"defaultProvider"`
	OpenAIModel         string `mapstructure:"openaiModel" yaml:"openaiModel"`
	GeminiModel         string `mapstructure:"geminiModel" yaml:"geminiModel"`
	OpenAIMaxIterations int    `mapstructure:"openaiMaxIterations" yaml:"openaiMaxIterations"`
	GeminiMaxIterations int    `mapstructure:"geminiMaxIterations" yaml:"geminiMaxIterations"`
	RunTimeoutSeconds   int    `mapstructure:"runTimeoutSeconds" yaml:"runTimeoutSeconds"`
	ParallelTools       bool   `mapstructure:"parallelTools" yaml:"parallelTools"`
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		DefaultProvider:     "openai",
		OpenAIModel:         "gpt-4o",
		GeminiModel:         "gemini-2.0-flash",
		OpenAIMaxIterations: 20,
		GeminiMaxIterations: 60,
		RunTimeoutSeconds:   600,
	}
}

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	MCP       MCPConfig       `mapstructure:"mcp" yaml:"mcp"`
	Courses   CoursesConfig   `mapstructure:"courses" yaml:"courses"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Server:    defaultServerConfig(),
		Log:       defaultLogConfig(),
		Storage:   defaultStorageConfig(),
		MCP:       defaultMCPConfig(),
		Courses:   defaultCoursesConfig(),
		Providers: defaultProvidersConfig(),
		Agent:     defaultAgentConfig(),
	}
}

// DatabasePath returns the expanded absolute path to the SQLite database.
func (c *Config) DatabasePath() string {
	p := c.Storage.Path
	if p == "" {
		return filepath.Join(DataDir(), "tutorchat.db")
	}
	return expandHome(p)
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
