package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store types understood by the loader.
const (
	StoreTypeFile   = "file"
	StoreTypeSQLite = "sqlite"
	StoreTypeQdrant = "qdrant"
)

// Context modes for the prompt's context field.
const (
	ContextModeRetrieved = "retrieved"
	ContextModeAll       = "all"
)

// ServerConfig configures the HTTP endpoint layer.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig holds configuration for the OpenAI-compatible chat-completion client.
type LLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig configures the remote embedder used for stores built with remote embeddings.
type EmbedderConfig struct {
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// StoreConfig declares one embedding store. Order in the config is load order.
type StoreConfig struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Path   string        `yaml:"path,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes per-store retrieval and prompt assembly.
type RetrievalConfig struct {
	TopK        int    `yaml:"top_k"`
	ContextMode string `yaml:"context_mode"`
}

// HistoryConfig bounds the conversation window included in prompts.
type HistoryConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Stores    []StoreConfig   `yaml:"stores"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	History   HistoryConfig   `yaml:"history"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/quranrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/quranrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the service cannot start with.
func (c *AppConfig) Validate() error {
	if len(c.Stores) == 0 {
		return errors.New("config: no stores configured")
	}
	seen := make(map[string]struct{}, len(c.Stores))
	for i, s := range c.Stores {
		if s.Name == "" {
			return fmt.Errorf("config: stores[%d]: name is required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("config: duplicate store name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
		switch s.Type {
		case StoreTypeFile, StoreTypeSQLite:
			if s.Path == "" {
				return fmt.Errorf("config: store %q: path is required", s.Name)
			}
		case StoreTypeQdrant:
			if s.Qdrant == nil || s.Qdrant.Collection == "" {
				return fmt.Errorf("config: store %q: qdrant collection is required", s.Name)
			}
		default:
			return fmt.Errorf("config: store %q: unknown type %q", s.Name, s.Type)
		}
	}
	switch c.Retrieval.ContextMode {
	case ContextModeRetrieved, ContextModeAll:
	default:
		return fmt.Errorf("config: unknown context_mode %q", c.Retrieval.ContextMode)
	}
	if c.History.MaxTurns < 0 {
		return fmt.Errorf("config: history.max_turns %d is negative", c.History.MaxTurns)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "quranrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Stores: []StoreConfig{
			{Name: "tafsir", Type: StoreTypeFile, Path: "tafsir_english_embeddings.json"},
			{Name: "quran", Type: StoreTypeFile, Path: "quran_english_embeddings.json"},
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "0.0.0.0:8000"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.aimlapi.com"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "AIML_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4-turbo"
	}
	if o := cfg.Embedder.OpenAI; o != nil {
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
	for i := range cfg.Stores {
		s := &cfg.Stores[i]
		if s.Type == "" {
			s.Type = StoreTypeFile
		}
		if s.Qdrant != nil {
			if s.Qdrant.Host == "" {
				s.Qdrant.Host = "localhost"
			}
			if s.Qdrant.Port == 0 {
				s.Qdrant.Port = 6334
			}
		}
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.ContextMode == "" {
		cfg.Retrieval.ContextMode = ContextModeRetrieved
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "quranrag"
	}
	if cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 1.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
