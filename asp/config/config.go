package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/hornetworks/aspcache/asp"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ASP ASPConfig `mapstructure:"asp"`
}

// ASPConfig stores solver and cache configurations.
type ASPConfig struct {
	// Cache settings
	CacheEnabled       bool  `mapstructure:"cache_enabled"`        // Enable the result cache
	CacheCapacityBytes int64 `mapstructure:"cache_capacity_bytes"` // Result cache byte budget

	// Reference resolution
	StrictReferences bool `mapstructure:"strict_references"` // Fail solves on unknown fragment references

	// Engine
	FactLimit int `mapstructure:"fact_limit"` // Max facts one evaluation may derive

	// Batch execution
	BatchConcurrency int `mapstructure:"batch_concurrency"` // Max concurrent batch solves

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"` // Enable structured span tracing
	EnableMetrics bool `mapstructure:"enable_metrics"` // Enable the metrics collector

	Journal  JournalConfig  `mapstructure:"journal"`
	Manifest ManifestConfig `mapstructure:"manifest"`
}

// JournalConfig stores solve journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"` // Record solve executions to the journal database
	Path    string `mapstructure:"path"`    // Journal database file
}

// ManifestConfig stores fragment loading settings.
type ManifestConfig struct {
	Path  string `mapstructure:"path"`  // Manifest file or fragment directory
	Watch bool   `mapstructure:"watch"` // Reload fragments when files change
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Cache defaults
	viper.SetDefault("asp.cache_enabled", true)
	viper.SetDefault("asp.cache_capacity_bytes", 16<<20) // 16 MiB

	// Resolution defaults
	viper.SetDefault("asp.strict_references", false)

	// Engine defaults
	viper.SetDefault("asp.fact_limit", 500000)

	// Batch defaults
	viper.SetDefault("asp.batch_concurrency", 4)

	// Telemetry defaults
	viper.SetDefault("asp.enable_tracing", true)
	viper.SetDefault("asp.enable_metrics", true)

	// Journal defaults (off unless a database is configured)
	viper.SetDefault("asp.journal.enabled", false)
	viper.SetDefault("asp.journal.path", internal.DefaultJournalPath)

	// Manifest defaults
	viper.SetDefault("asp.manifest.path", "")
	viper.SetDefault("asp.manifest.watch", false)

	viper.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. asp.cache_enabled becomes ASP_CACHE_ENABLED
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
