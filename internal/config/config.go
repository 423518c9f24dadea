// Package config loads pipeline configuration from built-in defaults,
// an optional YAML file, and environment variables (prefix EPIPULSE),
// in that precedence order: environment beats file beats defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Anomaly AnomalyConfig `yaml:"anomaly" envconfig:"ANOMALY"`
	Cache   CacheConfig   `yaml:"cache" envconfig:"CACHE"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// AnomalyConfig contains outlier-model configuration. Contamination is the
// expected fraction of anomalous points and must stay inside (0, 1).
type AnomalyConfig struct {
	Contamination   float64 `yaml:"contamination" envconfig:"CONTAMINATION" validate:"gt=0,lt=1"`
	Trees           int     `yaml:"trees" envconfig:"TREES" validate:"gt=0"`
	JointTrees      int     `yaml:"joint_trees" envconfig:"JOINT_TREES" validate:"gt=0"`
	Seed            int64   `yaml:"seed" envconfig:"SEED"`
	ScanConcurrency int     `yaml:"scan_concurrency" envconfig:"SCAN_CONCURRENCY" validate:"gt=0"`
}

// CacheConfig contains result-cache configuration.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxSize int           `yaml:"max_size" envconfig:"MAX_SIZE" validate:"gte=0"`
}

// Load builds the configuration: defaults first, then the YAML file at
// path when present, then any EPIPULSE_* environment variables. An empty
// path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// Only variables actually set in the environment override; unset
	// variables leave the defaults and file values intact.
	if err := envconfig.Process("EPIPULSE", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Output: "stdout", FilePath: "logs/pipeline.log"},
		Paths:   PathsConfig{DataDir: "data", ReportsDir: "data/reports", LogsDir: "logs"},
		Anomaly: AnomalyConfig{Contamination: 0.1, Trees: 100, JointTrees: 200, Seed: 42, ScanConcurrency: 4},
		Cache:   CacheConfig{TTL: 30 * time.Minute, MaxSize: 256},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
