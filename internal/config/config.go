// Package config loads and validates the memory controller configuration.
// Files may be TOML or YAML; the format is selected by file extension.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the memory controller.
type Config struct {
	Redis    RedisConfig    `toml:"redis" yaml:"redis"`
	Memory   MemoryConfig   `toml:"memory" yaml:"memory"`
	Pressure PressureConfig `toml:"pressure" yaml:"pressure"`
	Cleanup  CleanupConfig  `toml:"cleanup" yaml:"cleanup"`
	Health   HealthConfig   `toml:"health" yaml:"health"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// RedisConfig holds connection parameters for the remote key-value backend.
type RedisConfig struct {
	Addr                string `toml:"addr" yaml:"addr"`
	Password            string `toml:"password" yaml:"password"`
	DB                  int    `toml:"db" yaml:"db"`
	DialTimeoutSeconds  int    `toml:"dial_timeout_seconds" yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	ConnectAttempts     int    `toml:"connect_attempts" yaml:"connect_attempts"`
}

// MemoryConfig holds per-namespace default TTLs.
type MemoryConfig struct {
	VectorTTLSeconds  int `toml:"vector_ttl_seconds" yaml:"vector_ttl_seconds"`
	WorkingTTLSeconds int `toml:"working_ttl_seconds" yaml:"working_ttl_seconds"`
	CacheTTLSeconds   int `toml:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
}

// PressureConfig holds the memory usage thresholds (percent of system memory)
// at which the cleanup loop escalates.
type PressureConfig struct {
	WarningPercent   float64 `toml:"warning_percent" yaml:"warning_percent"`
	CriticalPercent  float64 `toml:"critical_percent" yaml:"critical_percent"`
	EmergencyPercent float64 `toml:"emergency_percent" yaml:"emergency_percent"`
}

// CleanupConfig holds cleanup engine and scheduler tuning.
type CleanupConfig struct {
	IntervalSeconds            int    `toml:"interval_seconds" yaml:"interval_seconds"`
	MaxWorkingAgeSeconds       int    `toml:"max_working_age_seconds" yaml:"max_working_age_seconds"`
	MaxVectorAgeSeconds        int    `toml:"max_vector_age_seconds" yaml:"max_vector_age_seconds"`
	EmergencyWorkingAgeSeconds int    `toml:"emergency_working_age_seconds" yaml:"emergency_working_age_seconds"`
	BCMMaxAgeDays              int    `toml:"bcm_max_age_days" yaml:"bcm_max_age_days"`
	CacheBatchSize             int    `toml:"cache_batch_size" yaml:"cache_batch_size"`
	VectorBatchSize            int    `toml:"vector_batch_size" yaml:"vector_batch_size"`
	HistorySize                int    `toml:"history_size" yaml:"history_size"`
	Cron                       string `toml:"cron" yaml:"cron"` // optional deep-maintenance schedule
}

// HealthConfig holds thresholds for the health check surface.
type HealthConfig struct {
	DegradedLatencyMs     float64 `toml:"degraded_latency_ms" yaml:"degraded_latency_ms"`
	UnhealthyLatencyMs    float64 `toml:"unhealthy_latency_ms" yaml:"unhealthy_latency_ms"`
	DegradedErrorPercent  float64 `toml:"degraded_error_percent" yaml:"degraded_error_percent"`
	UnhealthyErrorPercent float64 `toml:"unhealthy_error_percent" yaml:"unhealthy_error_percent"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}

// Load reads a configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (expected: .toml, .yaml, .yml)", filepath.Ext(path))
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Validate checks the configuration for consistency and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Pressure.WarningPercent <= 0 || c.Pressure.WarningPercent > 100 {
		errors = append(errors, fmt.Errorf("pressure.warning_percent must be in (0, 100], got %.1f", c.Pressure.WarningPercent))
	}
	if c.Pressure.CriticalPercent <= c.Pressure.WarningPercent {
		errors = append(errors, fmt.Errorf("pressure.critical_percent (%.1f) must exceed warning_percent (%.1f)",
			c.Pressure.CriticalPercent, c.Pressure.WarningPercent))
	}
	if c.Pressure.EmergencyPercent <= c.Pressure.CriticalPercent {
		errors = append(errors, fmt.Errorf("pressure.emergency_percent (%.1f) must exceed critical_percent (%.1f)",
			c.Pressure.EmergencyPercent, c.Pressure.CriticalPercent))
	}
	if c.Pressure.EmergencyPercent > 100 {
		errors = append(errors, fmt.Errorf("pressure.emergency_percent must not exceed 100, got %.1f", c.Pressure.EmergencyPercent))
	}

	if c.Cleanup.IntervalSeconds <= 0 {
		errors = append(errors, fmt.Errorf("cleanup.interval_seconds must be positive, got %d", c.Cleanup.IntervalSeconds))
	}
	if c.Cleanup.CacheBatchSize <= 0 {
		errors = append(errors, fmt.Errorf("cleanup.cache_batch_size must be positive, got %d", c.Cleanup.CacheBatchSize))
	}
	if c.Cleanup.VectorBatchSize <= 0 {
		errors = append(errors, fmt.Errorf("cleanup.vector_batch_size must be positive, got %d", c.Cleanup.VectorBatchSize))
	}
	if c.Cleanup.HistorySize <= 0 {
		errors = append(errors, fmt.Errorf("cleanup.history_size must be positive, got %d", c.Cleanup.HistorySize))
	}

	if c.Health.UnhealthyLatencyMs <= c.Health.DegradedLatencyMs {
		errors = append(errors, fmt.Errorf("health.unhealthy_latency_ms (%.1f) must exceed degraded_latency_ms (%.1f)",
			c.Health.UnhealthyLatencyMs, c.Health.DegradedLatencyMs))
	}
	if c.Health.UnhealthyErrorPercent <= c.Health.DegradedErrorPercent {
		errors = append(errors, fmt.Errorf("health.unhealthy_error_percent (%.1f) must exceed degraded_error_percent (%.1f)",
			c.Health.UnhealthyErrorPercent, c.Health.DegradedErrorPercent))
	}

	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}
	if c.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	return errors
}
