// Package config loads and persists IKB configuration from .ikb/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the supported config schema version
const CurrentVersion = 1

// Config represents the complete IKB configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Snapshot SnapshotConfig `json:"snapshot" mapstructure:"snapshot"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// StorageConfig contains store configuration
type StorageConfig struct {
	// CompressRawPayloads gzips raw coverage payloads before persisting
	CompressRawPayloads bool `json:"compressRawPayloads" mapstructure:"compressRawPayloads"`
	// HistoryLimit caps the number of reports returned by history queries
	HistoryLimit int `json:"historyLimit" mapstructure:"historyLimit"`
}

// SnapshotConfig contains the daily metrics snapshot schedule
type SnapshotConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Expression string `json:"expression" mapstructure:"expression"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentVersion,
		RepoRoot: ".",
		Storage: StorageConfig{
			CompressRawPayloads: true,
			HistoryLimit:        30,
		},
		Snapshot: SnapshotConfig{
			Enabled:    true,
			Expression: "daily at 02:00",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .ikb/config.json, falling back to
// defaults when the file does not exist
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", CurrentVersion)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".ikb"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .ikb/config.json
func (c *Config) Save(repoRoot string) error {
	configPath := filepath.Join(repoRoot, ".ikb", "config.json")

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Storage.HistoryLimit < 0 {
		return &ConfigError{Field: "storage.historyLimit", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
