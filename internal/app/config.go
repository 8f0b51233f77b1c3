package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/specialistvlad/burstflow/internal/checkpoint"
	"gopkg.in/yaml.v3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	NetworkPath string `yaml:"network"` // .hcl file or directory

	Workers     int           `yaml:"workers"`
	BufferSize  int           `yaml:"buffer"`
	Concurrency int           `yaml:"concurrency"`
	TaskTimeout time.Duration `yaml:"task_timeout"`

	LogFormat       string `yaml:"log_format"`
	LogLevel        string `yaml:"log_level"`
	HealthcheckPort int    `yaml:"healthcheck_port"`

	// Checkpoint enables the Redis checkpoint store when set.
	Checkpoint *checkpoint.RedisConfig `yaml:"checkpoint_redis"`
}

// DefaultConfig returns the values used when neither a flag nor the config
// file sets a field.
func DefaultConfig() Config {
	return Config{
		Workers:   10,
		LogFormat: "json",
		LogLevel:  "info",
	}
}

// LoadConfigFile decodes a YAML config file on top of base. Unknown keys are
// rejected.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	cfg := base
	if err := dec.Decode(&cfg); err != nil {
		return base, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.NetworkPath == "" {
		return nil, errors.New("NetworkPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 || cfg.BufferSize < 0 || cfg.Concurrency < 0 || cfg.TaskTimeout < 0 {
		return nil, errors.New("workers, buffer, concurrency and task timeout must not be negative")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.Checkpoint != nil && cfg.Checkpoint.Addr == "" {
		return nil, errors.New("checkpoint_redis.addr cannot be empty")
	}
	return &cfg, nil
}
