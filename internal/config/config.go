// Package config provides YAML-based configuration loading for the planner
// library. Every field has a working default; an embedding application can
// run with an empty config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultStoragePath = "planner.db"
)

// DefaultPersona is the fixed system instruction sent with every completion
// request.
const DefaultPersona = "You are an expert travel assistant. You help users plan trips, " +
	"recommend destinations, provide travel tips, suggest itineraries, and answer " +
	"questions about travel costs, logistics, and local attractions. Be concise, " +
	"friendly, and helpful."

// Config is the top-level planner configuration, loaded from planner.yaml.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant"`
	Storage   StorageConfig   `yaml:"storage"`
}

// AssistantConfig holds completion-request settings.
type AssistantConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"` // empty means the provider default
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Persona     string  `yaml:"persona"`
}

// StorageConfig locates the durable key-value medium.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in unset values.
func (c *Config) applyDefaults() {
	if c.Assistant.Model == "" {
		c.Assistant.Model = DefaultModel
	}
	if c.Assistant.MaxTokens == 0 {
		c.Assistant.MaxTokens = DefaultMaxTokens
	}
	if c.Assistant.Temperature == 0 {
		c.Assistant.Temperature = DefaultTemperature
	}
	if c.Assistant.Persona == "" {
		c.Assistant.Persona = DefaultPersona
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
}

// validate checks that all fields are in range.
func (c *Config) validate() error {
	if c.Assistant.MaxTokens < 0 {
		return fmt.Errorf("config: assistant.max_tokens must not be negative, got %d", c.Assistant.MaxTokens)
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		return fmt.Errorf("config: assistant.temperature must be between 0 and 2, got %g", c.Assistant.Temperature)
	}
	return nil
}
