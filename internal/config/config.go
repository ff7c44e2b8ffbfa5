// Package config loads runtime settings from an optional TOML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"aniso-smooth/internal/logger"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel = "LOG_LEVEL"
	EnvDebugAll = "ANISO_DEBUG_ALL"
	EnvWorkers  = "ANISO_WORKERS"
)

type Config struct {
	LogLevel         string            `toml:"log_level"`
	Workers          int               `toml:"workers"`
	MemoryLimitMB    int64             `toml:"memory_limit_mb"`
	DefaultAlgorithm string            `toml:"default_algorithm"`
	Presets          map[string]Preset `toml:"presets"`
}

func Default() *Config {
	return &Config{
		LogLevel:         "info",
		MemoryLimitMB:    2048,
		DefaultAlgorithm: AlgorithmAnisotropic,
		Presets:          builtinPresets(),
	}
}

// Load reads path on top of the defaults. An empty path yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		var file Config
		md, err := toml.DecodeFile(path, &file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
		}
		cfg.merge(&file)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) merge(file *Config) {
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.Workers != 0 {
		c.Workers = file.Workers
	}
	if file.MemoryLimitMB != 0 {
		c.MemoryLimitMB = file.MemoryLimitMB
	}
	if file.DefaultAlgorithm != "" {
		c.DefaultAlgorithm = file.DefaultAlgorithm
	}
	for name, p := range file.Presets {
		c.Presets[name] = p
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	} else if os.Getenv(EnvDebugAll) == "true" {
		c.LogLevel = "debug"
	}

	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be 0 (auto) or positive, got: %d", c.Workers)
	}
	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory_limit_mb must be positive, got: %d", c.MemoryLimitMB)
	}
	if !IsAlgorithm(c.DefaultAlgorithm) {
		return fmt.Errorf("unknown default_algorithm: %q", c.DefaultAlgorithm)
	}
	for name, p := range c.Presets {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return nil
}

// Level resolves LogLevel, falling back to info for unknown names.
func (c *Config) Level() zerolog.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

func (c *Config) MemoryLimitBytes() int64 {
	return c.MemoryLimitMB * 1024 * 1024
}
