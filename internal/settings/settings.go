// Package settings holds the AI provider configuration and the single path
// through which it is saved.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderAzure  Provider = "azure"
	ProviderOllama Provider = "ollama"
)

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" json:"apiKey"`
	Model  string `mapstructure:"model" json:"model"`
}

type AzureConfig struct {
	Endpoint   string `mapstructure:"endpoint" json:"endpoint"`
	Deployment string `mapstructure:"deployment" json:"deployment"`
	APIKey     string `mapstructure:"api_key" json:"apiKey"`
	APIVersion string `mapstructure:"api_version" json:"apiVersion"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url" json:"baseUrl"`
	Model   string `mapstructure:"model" json:"model"`
}

// AiConfig selects a provider and carries per-provider connection settings.
// It is passed by value into every provider call.
type AiConfig struct {
	Provider Provider     `mapstructure:"provider" json:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini" json:"gemini"`
	Azure    AzureConfig  `mapstructure:"azure" json:"azure"`
	Ollama   OllamaConfig `mapstructure:"ollama" json:"ollama"`
}

const (
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultAzureAPIVersion = "2024-02-01"
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultOllamaModel     = "llama3.1"
)

// Default returns the configuration used when no settings file exists.
func Default() AiConfig {
	return AiConfig{
		Provider: ProviderGemini,
		Gemini:   GeminiConfig{Model: DefaultGeminiModel},
		Azure:    AzureConfig{APIVersion: DefaultAzureAPIVersion},
		Ollama:   OllamaConfig{BaseURL: DefaultOllamaBaseURL, Model: DefaultOllamaModel},
	}
}

// Redacted blanks secrets so the value can be shown to a client.
func (c AiConfig) Redacted() AiConfig {
	if c.Gemini.APIKey != "" {
		c.Gemini.APIKey = "********"
	}
	if c.Azure.APIKey != "" {
		c.Azure.APIKey = "********"
	}
	return c
}

func newViper(path string) *viper.Viper {
	def := Default()
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("SOPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key list AutomaticEnv consults during Unmarshal.
	v.SetDefault("provider", string(def.Provider))
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", def.Gemini.Model)
	v.SetDefault("azure.endpoint", "")
	v.SetDefault("azure.deployment", "")
	v.SetDefault("azure.api_key", "")
	v.SetDefault("azure.api_version", def.Azure.APIVersion)
	v.SetDefault("ollama.base_url", def.Ollama.BaseURL)
	v.SetDefault("ollama.model", def.Ollama.Model)
	return v
}

// Load reads the settings file at path. A missing file yields defaults
// overlaid with SOPFLOW_* environment variables.
func Load(path string) (AiConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return AiConfig{}, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	var cfg AiConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AiConfig{}, fmt.Errorf("decode settings: %w", err)
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY"))
	}
	cfg.Provider = Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg AiConfig) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	v := viper.New()
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	v.Set("provider", string(cfg.Provider))
	v.Set("gemini.api_key", cfg.Gemini.APIKey)
	v.Set("gemini.model", cfg.Gemini.Model)
	v.Set("azure.endpoint", cfg.Azure.Endpoint)
	v.Set("azure.deployment", cfg.Azure.Deployment)
	v.Set("azure.api_key", cfg.Azure.APIKey)
	v.Set("azure.api_version", cfg.Azure.APIVersion)
	v.Set("ollama.base_url", cfg.Ollama.BaseURL)
	v.Set("ollama.model", cfg.Ollama.Model)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// Manager keeps the current configuration in memory and persists every
// change through Save.
type Manager struct {
	path string
	mu   sync.RWMutex
	cur  AiConfig
}

// NewManager loads path and returns a manager over it.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cur: cfg}, nil
}

// NewStaticManager returns a manager that never touches disk.
func NewStaticManager(cfg AiConfig) *Manager {
	return &Manager{cur: cfg}
}

func (m *Manager) Current() AiConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

func (m *Manager) Path() string { return m.path }

// Save replaces the configuration. Empty secret fields in cfg keep the
// previously stored secret so a redacted round-trip does not wipe keys.
// Keys supplied by the environment stay in memory but are not written.
func (m *Manager) Save(cfg AiConfig) (AiConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.Gemini.APIKey == "" || cfg.Gemini.APIKey == "********" {
		cfg.Gemini.APIKey = m.cur.Gemini.APIKey
	}
	if cfg.Azure.APIKey == "" || cfg.Azure.APIKey == "********" {
		cfg.Azure.APIKey = m.cur.Azure.APIKey
	}
	cfg.Provider = Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	if m.path != "" {
		if err := Save(m.path, withoutEnvSecrets(cfg)); err != nil {
			return m.cur, err
		}
	}
	m.cur = cfg
	return cfg, nil
}

// withoutEnvSecrets blanks API keys that equal an environment variable Load
// reads them from. Load restores them on the next start.
func withoutEnvSecrets(cfg AiConfig) AiConfig {
	if fromEnv(cfg.Gemini.APIKey, "SOPFLOW_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY") {
		cfg.Gemini.APIKey = ""
	}
	if fromEnv(cfg.Azure.APIKey, "SOPFLOW_AZURE_API_KEY") {
		cfg.Azure.APIKey = ""
	}
	return cfg
}

func fromEnv(value string, keys ...string) bool {
	if value == "" {
		return false
	}
	for _, k := range keys {
		if os.Getenv(k) == value {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
