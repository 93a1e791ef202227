package config

import (
	"os"
	"strconv"
	"time"

	"climatrend/domain/climate"
	"climatrend/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Charts   ChartsConfig
	Archive  ArchiveConfig
	Analysis AnalysisConfig
}

// ServerConfig holds the JSON API server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DataConfig holds input dataset settings
type DataConfig struct {
	// File is the multi-section source file path
	File string
	// Section is the initially selected dataset section label
	Section string
}

// ChartsConfig holds static chart responder settings
type ChartsConfig struct {
	// Dir is the directory of pre-rendered chart files
	Dir string
	// PortBase is the first port probed; up to PortAttempts consecutive
	// ports are tried before giving up
	PortBase     int
	PortAttempts int
	Enabled      bool
}

// ArchiveConfig holds the optional Postgres snapshot archive settings
type ArchiveConfig struct {
	// URL empty means the archive is disabled
	URL string
}

// AnalysisConfig holds statistics defaults
type AnalysisConfig struct {
	// RollingWindow is the default trailing window for rolling means
	RollingWindow int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   loadServerConfig(),
		Data:     loadDataConfig(),
		Charts:   loadChartsConfig(),
		Archive:  loadArchiveConfig(),
		Analysis: loadAnalysisConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadDataConfig() DataConfig {
	return DataConfig{
		File:    getEnvOrDefault("DATA_FILE", ""),
		Section: getEnvOrDefault("DATASET", climate.DefaultSection.String()),
	}
}

func loadChartsConfig() ChartsConfig {
	return ChartsConfig{
		Dir:          getEnvOrDefault("CHARTS_DIR", "outputs"),
		PortBase:     getEnvIntOrDefault("CHARTS_PORT_BASE", 5500),
		PortAttempts: getEnvIntOrDefault("CHARTS_PORT_ATTEMPTS", 10),
		Enabled:      getEnvBoolOrDefault("CHARTS_ENABLED", true),
	}
}

func loadArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		URL: getEnvOrDefault("ARCHIVE_URL", ""),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		RollingWindow: getEnvIntOrDefault("ROLLING_WINDOW", 10),
	}
}

func validateConfig(config *Config) error {
	if _, err := climate.ParseSection(config.Data.Section); err != nil {
		return errors.ConfigInvalid("DATASET must name a known section: " + err.Error())
	}
	if config.Analysis.RollingWindow < 1 {
		return errors.ConfigInvalid("ROLLING_WINDOW must be at least 1")
	}
	if config.Charts.PortBase < 1 || config.Charts.PortBase > 65535 {
		return errors.ConfigInvalid("CHARTS_PORT_BASE must be a valid port")
	}
	if config.Charts.PortAttempts < 1 {
		return errors.ConfigInvalid("CHARTS_PORT_ATTEMPTS must be at least 1")
	}
	return nil
}

// Section returns the validated initial dataset section
func (c *Config) Section() climate.Section {
	section, err := climate.ParseSection(c.Data.Section)
	if err != nil {
		return climate.DefaultSection
	}
	return section
}

// ArchiveEnabled reports whether the Postgres snapshot archive is configured
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.URL != ""
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
