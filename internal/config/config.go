// Package config loads runtime settings for the rules engine tools.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OPCG_LOGGING_LEVEL.
const EnvPrefix = "OPCG"

// Config is the full configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Scripts  ScriptsConfig  `mapstructure:"scripts"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig tunes the engine.
type EngineConfig struct {
	// ResourceBonus is the power each attached resource adds.
	ResourceBonus int `mapstructure:"resource_bonus"`
	MaxChainDepth int `mapstructure:"max_chain_depth"`
}

// ScriptsConfig points at the Lua effect scripts.
type ScriptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ScenarioConfig names the default scenario file.
type ScenarioConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("engine.resource_bonus", 1000)
	v.SetDefault("engine.max_chain_depth", 32)
	v.SetDefault("scripts.dir", "scripts")
	v.SetDefault("scenario.path", "")
}

// Load reads the YAML file at path, then applies environment overrides.
// A missing file leaves the defaults in place; an unreadable or malformed
// one is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	if c.Engine.ResourceBonus < 0 {
		errs = append(errs, fmt.Errorf("engine.resource_bonus must not be negative, got %d", c.Engine.ResourceBonus))
	}
	if c.Engine.MaxChainDepth <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_chain_depth must be positive, got %d", c.Engine.MaxChainDepth))
	}
	return errors.Join(errs...)
}
