// Package config loads runtime settings for the siteplanner binary: logging,
// simulator constants, persistence and the dev server. Settings come from an
// optional YAML file and SITEPLANNER_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
)

// envPrefix is the environment variable prefix for all settings.
const envPrefix = "SITEPLANNER"

// Config is the full runtime configuration.
type Config struct {
	Log       logging.Config   `mapstructure:"log"`
	Simulator simulator.Config `mapstructure:"simulator"`
	Store     StoreConfig      `mapstructure:"store"`
	Server    ServerConfig     `mapstructure:"server"`
}

// StoreConfig selects the SQLite database used to persist runs. An empty
// path disables persistence.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds dev server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := simulator.DefaultConfig()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("simulator.min_polygon_area", def.MinPolygonArea)
	v.SetDefault("simulator.max_generation_distance", def.MaxGenerationDistance)
	v.SetDefault("simulator.dedupe_radius", def.DedupeRadius)
	v.SetDefault("simulator.dedupe_min_points", def.DedupeMinPoints)
	v.SetDefault("simulator.max_iterations", def.MaxIterations)
	v.SetDefault("simulator.workers", runtime.NumCPU())
	v.SetDefault("store.path", "")
	v.SetDefault("server.port", 3000)
	return v
}

// Load reads the settings file at path (skipped when path is empty), applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks that every numeric setting is in range.
func (c *Config) Validate() error {
	var errs []error
	s := c.Simulator
	if s.MinPolygonArea < 0 {
		errs = append(errs, fmt.Errorf("simulator.min_polygon_area must be >= 0 (got %v)", s.MinPolygonArea))
	}
	if s.MaxGenerationDistance < 0 {
		errs = append(errs, fmt.Errorf("simulator.max_generation_distance must be >= 0 (got %v)", s.MaxGenerationDistance))
	}
	if s.DedupeRadius < 0 {
		errs = append(errs, fmt.Errorf("simulator.dedupe_radius must be >= 0 (got %v)", s.DedupeRadius))
	}
	if s.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("simulator.max_iterations must be >= 0 (got %d)", s.MaxIterations))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("simulator.workers must be >= 1 (got %d)", s.Workers))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range (got %d)", c.Server.Port))
	}
	return errors.Join(errs...)
}
