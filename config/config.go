package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the applydiff configuration.
type Config struct {
	DefaultFuzz float64 `json:"default_fuzz"` // Match threshold for blocks without one
	MaxFileSize int64   `json:"max_file_size"`
	Model       string  `json:"model"`    // Model for the chat round-trip
	APIKey      string  `json:"api_key"`  // API key for the LLM provider
	BaseURL     string  `json:"base_url"` // Base URL for OpenAI-compatible endpoints (optional)
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		DefaultFuzz: 0.85,
		MaxFileSize: 10 * 1024 * 1024,
		Model:       "gpt-4o",
	}
}

// Load loads configuration from global and local sources. Local values take
// precedence over global ones, which take precedence over defaults.
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()

	if globalCfg, err := loadGlobalConfig(); err == nil {
		mergeCfg(cfg, globalCfg)
	}
	if localCfg, err := loadLocalConfig(root); err == nil {
		mergeCfg(cfg, localCfg)
	}

	return cfg, nil
}

// Get retrieves a configuration value by key.
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "default_fuzz":
		return c.DefaultFuzz, nil
	case "max_file_size":
		return c.MaxFileSize, nil
	case "model":
		return c.Model, nil
	case "api_key":
		return c.APIKey, nil
	case "base_url":
		return c.BaseURL, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value by key.
func (c *Config) Set(key string, value interface{}) error {
	// CLI input is always a string.
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string value for %s", key)
	}

	switch key {
	case "default_fuzz":
		val, err := strconv.ParseFloat(str, 64)
		if err != nil || val < 0 || val > 1 {
			return fmt.Errorf("expected a number in [0,1] for default_fuzz, got: %s", str)
		}
		c.DefaultFuzz = val
		return nil
	case "max_file_size":
		val, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return fmt.Errorf("expected numeric value for max_file_size, got: %s", str)
		}
		c.MaxFileSize = val
		return nil
	case "model":
		c.Model = str
		return nil
	case "api_key":
		c.APIKey = str
		return nil
	case "base_url":
		c.BaseURL = str
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

// loadGlobalConfig loads configuration from ~/.applydiff/config.json.
func loadGlobalConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return loadConfigFromFile(filepath.Join(homeDir, ".applydiff", "config.json"))
}

// loadLocalConfig loads configuration from <root>/.applydiff/config.json.
func loadLocalConfig(root string) (*Config, error) {
	return loadConfigFromFile(filepath.Join(root, ".applydiff", "config.json"))
}

// loadConfigFromFile loads configuration from a specific file.
func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveLocal saves configuration to <root>/.applydiff/config.json.
func SaveLocal(root string, cfg *Config) error {
	configDir := filepath.Join(root, ".applydiff")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

// mergeCfg merges source config into destination config.
func mergeCfg(dst, src *Config) {
	if src.DefaultFuzz != 0 {
		dst.DefaultFuzz = src.DefaultFuzz
	}
	if src.MaxFileSize != 0 {
		dst.MaxFileSize = src.MaxFileSize
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
}
