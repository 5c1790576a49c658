// Package config provides configuration management for Reverie.
// Settings are resolved in three layers: built-in defaults, an optional YAML
// config file (REVERIE_CONFIG or ./reverie.yaml), and environment variables
// with the REVERIE_ prefix. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Reverie engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Security SecurityConfig `yaml:"security"`
	Engine   EngineConfig   `yaml:"engine"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"` // default: 127.0.0.1
	Port int    `yaml:"port"` // default: 7171
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	Engine      string `yaml:"engine"`       // storage engine: sqlite, postgres (default: sqlite)
	DataPath    string `yaml:"data_path"`    // sqlite data directory (default: ./data)
	PostgresDSN string `yaml:"postgres_dsn"` // postgres connection string
}

// LLMConfig contains LLM provider configuration for extraction and embeddings.
type LLMConfig struct {
	Provider             string `yaml:"provider"`               // ollama, openai, anthropic (default: ollama)
	OllamaURL            string `yaml:"ollama_url"`             // default: http://localhost:11434
	OllamaModel          string `yaml:"ollama_model"`           // extraction model (default: qwen2.5:7b)
	OllamaEmbeddingModel string `yaml:"ollama_embedding_model"` // default: nomic-embed-text
	OpenAIAPIKey         string `yaml:"openai_api_key"`
	OpenAIModel          string `yaml:"openai_model"` // default: gpt-4o-mini
	AnthropicAPIKey      string `yaml:"anthropic_api_key"`
	AnthropicModel       string `yaml:"anthropic_model"`
}

// SecurityConfig contains authentication settings for the HTTP surface.
type SecurityConfig struct {
	Mode     string `yaml:"mode"`      // development, production (default: development)
	APIToken string `yaml:"api_token"` // Bearer token required in production mode
}

// EngineConfig contains tunables for the extraction queue, recall path and
// decay job. Zero values are replaced with defaults by Normalize.
type EngineConfig struct {
	TaskPause     time.Duration `yaml:"task_pause"`     // pause between queue tasks (default: 100ms)
	RecallTimeout time.Duration `yaml:"recall_timeout"` // recall latency budget (default: 1.5s)
	DecayInterval time.Duration `yaml:"decay_interval"` // decay job period (default: 24h)
}

// Defaults for EngineConfig.
const (
	DefaultTaskPause     = 100 * time.Millisecond
	DefaultRecallTimeout = 1500 * time.Millisecond
	DefaultDecayInterval = 24 * time.Hour
)

// Normalize fills zero-valued engine tunables with their defaults.
func (e *EngineConfig) Normalize() {
	if e.TaskPause <= 0 {
		e.TaskPause = DefaultTaskPause
	}
	if e.RecallTimeout <= 0 {
		e.RecallTimeout = DefaultRecallTimeout
	}
	if e.DecayInterval <= 0 {
		e.DecayInterval = DefaultDecayInterval
	}
}

// LoadConfig resolves configuration from defaults, the optional YAML file and
// environment variables, in that order of precedence (env wins).
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	path := os.Getenv("REVERIE_CONFIG")
	if path == "" {
		path = "reverie.yaml"
	}
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	cfg.Engine.Normalize()
	return cfg, nil
}

// loadFile merges a YAML config file into cfg. A missing file is not an
// error — the file layer is optional.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays REVERIE_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("REVERIE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("REVERIE_PORT", cfg.Server.Port)

	cfg.Storage.Engine = getEnv("REVERIE_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DataPath = getEnv("REVERIE_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.PostgresDSN = getEnv("REVERIE_POSTGRES_DSN", cfg.Storage.PostgresDSN)

	cfg.LLM.Provider = getEnv("REVERIE_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.OllamaURL = getEnv("REVERIE_OLLAMA_URL", cfg.LLM.OllamaURL)
	cfg.LLM.OllamaModel = getEnv("REVERIE_OLLAMA_MODEL", cfg.LLM.OllamaModel)
	cfg.LLM.OllamaEmbeddingModel = getEnv("REVERIE_EMBEDDING_MODEL", cfg.LLM.OllamaEmbeddingModel)
	cfg.LLM.OpenAIAPIKey = getEnv("REVERIE_OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIModel = getEnv("REVERIE_OPENAI_MODEL", cfg.LLM.OpenAIModel)
	cfg.LLM.AnthropicAPIKey = getEnv("REVERIE_ANTHROPIC_API_KEY", cfg.LLM.AnthropicAPIKey)
	cfg.LLM.AnthropicModel = getEnv("REVERIE_ANTHROPIC_MODEL", cfg.LLM.AnthropicModel)

	cfg.Security.Mode = getEnv("REVERIE_SECURITY_MODE", cfg.Security.Mode)
	cfg.Security.APIToken = getEnv("REVERIE_API_TOKEN", cfg.Security.APIToken)

	cfg.Engine.TaskPause = getEnvDuration("REVERIE_TASK_PAUSE", cfg.Engine.TaskPause)
	cfg.Engine.RecallTimeout = getEnvDuration("REVERIE_RECALL_TIMEOUT", cfg.Engine.RecallTimeout)
	cfg.Engine.DecayInterval = getEnvDuration("REVERIE_DECAY_INTERVAL", cfg.Engine.DecayInterval)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7171,
		},
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data",
		},
		LLM: LLMConfig{
			Provider:             "ollama",
			OllamaURL:            "http://localhost:11434",
			OllamaModel:          "qwen2.5:7b",
			OllamaEmbeddingModel: "nomic-embed-text",
			OpenAIModel:          "gpt-4o-mini",
		},
		Security: SecurityConfig{
			Mode: "development",
		},
		Engine: EngineConfig{
			TaskPause:     DefaultTaskPause,
			RecallTimeout: DefaultRecallTimeout,
			DecayInterval: DefaultDecayInterval,
		},
	}
}

// getEnv retrieves a string environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default.
// Unparseable values fall back silently.
func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration retrieves a duration environment variable ("90s", "24h")
// with a fallback default.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
