package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	UI         UIConfig         `yaml:"ui"`
	Providers  ProvidersConfig  `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig locates the application data directory.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// GenerationConfig carries defaults applied to every provider request.
type GenerationConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// PromptsConfig lets the user customise the chat-mode system prompt.
// Revise mode always uses the fixed full-document instruction.
type PromptsConfig struct {
	ChatSystemPrompt string `yaml:"chat_system_prompt"`
}

// UIConfig holds interaction behaviour the shell asks the backend about.
type UIConfig struct {
	// ClearPromptOnFailure controls whether the shell clears the prompt
	// input when a generation fails. Defaults to true, matching the
	// behaviour the editor always shipped with.
	ClearPromptOnFailure *bool `yaml:"clear_prompt_on_failure"`
}

// ProvidersConfig catalogues per-provider overrides.
type ProvidersConfig struct {
	Anthropic ProviderConfig `yaml:"anthropic"`
	Google    ProviderConfig `yaml:"google"`
}

// ProviderConfig captures endpoint overrides for a provider. API keys are
// never configured here; they live in the credential store.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
}

const (
	defaultPort      = 8791
	defaultMaxTokens = 2048
)

// Load reads YAML configuration from disk, applies defaults, and
// validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns a configuration suitable for running without a file.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = defaultStorageDir()
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = defaultMaxTokens
	}
	if c.UI.ClearPromptOnFailure == nil {
		v := true
		c.UI.ClearPromptOnFailure = &v
	}
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scriptstudio"
	}
	return filepath.Join(home, ".scriptstudio")
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must be provided")
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	return nil
}

// ClearPromptOnFailure reports the resolved clear-on-failure behaviour.
func (c Config) ClearPromptOnFailure() bool {
	if c.UI.ClearPromptOnFailure == nil {
		return true
	}
	return *c.UI.ClearPromptOnFailure
}
