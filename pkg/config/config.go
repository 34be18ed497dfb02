// Package config provides configuration loading and validation for
// relfang. Values come from an optional relfang.yaml, RELFANG_*
// environment overrides and built-in defaults, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/relfang/pkg/notes"
)

// Sentinel validation errors.
var (
	ErrInvalidConcurrency = errors.New("lookup concurrency must be positive")
	ErrInvalidTimeout     = errors.New("lookup timeout must be positive")
	ErrInvalidFormat      = errors.New("invalid output format")
)

// Default configuration values.
const (
	defaultLookupConcurrency = 4
	defaultLookupTimeout     = "5s"
	defaultFormat            = "markdown"
	defaultHost              = "github.com"
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
	defaultSampleRatio       = 1.0
)

// Config holds all configuration for relfang.
type Config struct {
	Lookup  LookupConfig  `mapstructure:"lookup"`
	Output  OutputConfig  `mapstructure:"output"`
	Forge   ForgeConfig   `mapstructure:"forge"`
	Logging LoggingConfig `mapstructure:"logging"`
	OTel    OTelConfig    `mapstructure:"otel"`
}

// LookupConfig controls author attribution lookups.
type LookupConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// OutputConfig controls document rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// ForgeConfig identifies the forge hyperlinks point at. BaseURL routes
// API calls to an enterprise host; empty uses the public API.
type ForgeConfig struct {
	Host    string `mapstructure:"host"`
	BaseURL string `mapstructure:"base_url"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OTelConfig holds telemetry export configuration. An empty endpoint
// keeps every provider a noop.
type OTelConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Headers     string  `mapstructure:"headers"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Verbose     bool    `mapstructure:"verbose"`
	Debug       bool    `mapstructure:"debug"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches relfang.yaml in the working directory,
// $HOME/.config/relfang and /etc/relfang; a missing file is fine,
// an unreadable or invalid one is not.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("relfang")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/relfang")
		viperCfg.AddConfigPath("/etc/relfang")
	}

	viperCfg.SetEnvPrefix("RELFANG")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Lookup defaults.
	viperCfg.SetDefault("lookup.enabled", true)
	viperCfg.SetDefault("lookup.concurrency", defaultLookupConcurrency)
	viperCfg.SetDefault("lookup.timeout", defaultLookupTimeout)

	// Output defaults.
	viperCfg.SetDefault("output.format", defaultFormat)
	viperCfg.SetDefault("output.color", true)

	// Forge defaults.
	viperCfg.SetDefault("forge.host", defaultHost)
	viperCfg.SetDefault("forge.base_url", "")

	// Logging defaults.
	viperCfg.SetDefault("logging.level", defaultLogLevel)
	viperCfg.SetDefault("logging.format", defaultLogFormat)

	// Telemetry defaults.
	viperCfg.SetDefault("otel.endpoint", "")
	viperCfg.SetDefault("otel.headers", "")
	viperCfg.SetDefault("otel.insecure", false)
	viperCfg.SetDefault("otel.sample_ratio", defaultSampleRatio)
	viperCfg.SetDefault("otel.verbose", false)
	viperCfg.SetDefault("otel.debug", false)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Lookup.Concurrency <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, config.Lookup.Concurrency)
	}

	if config.Lookup.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, config.Lookup.Timeout)
	}

	if _, err := notes.ParseFormat(config.Output.Format); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	return nil
}
