package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/fileserver/pkg/adapter/http"
	"github.com/spf13/viper"
)

// Config represents the complete fileserver configuration.
//
// This structure captures all configurable aspects of the server including:
//   - Logging configuration
//   - Server-wide settings
//   - Content provider selection and configuration (provider-specific)
//   - Protocol adapter configurations
//   - Prometheus metrics exposure
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FILESERVER_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Provider Configuration Pattern:
// Each provider implementation defines its own configuration type and factory
// function. ContentConfig carries type-specific option maps (content.memory,
// content.filesystem, ...) and only the one matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Content specifies the content provider type and type-specific configuration
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters" yaml:"adapters"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout bounds how long each adapter gets to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// ContentConfig specifies content provider configuration.
//
// The Type field determines which provider implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content provider implementation to use
	// Valid values: memory, filesystem, s3, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3 badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// Cache wraps the selected provider in a read-through cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// CacheConfig controls the read-through content cache.
type CacheConfig struct {
	// Enabled turns the cache on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MaxBytes bounds the total size of cached file bodies
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes" validate:"min=0"`

	// TTL expires cached entries; 0 keeps them until evicted
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"min=0"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// HTTP contains HTTP protocol configuration.
	// Uses the http.HTTPConfig type directly to avoid duplication.
	HTTP http.HTTPConfig `mapstructure:"http" yaml:"http"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled exposes /metrics and records adapter metrics
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILESERVER_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	// Map keys under content.*.files are paths like "/index.html"; the default
	// "." delimiter would split them into nested keys.
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FILESERVER_ prefix and underscores
	// Example: FILESERVER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FILESERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	// AutomaticEnv only overrides keys viper already knows about, so the
	// scalar keys are bound explicitly for env-only deployments.
	for _, key := range envKeys {
		_ = v.BindEnv(strings.ReplaceAll(key, ".", keyDelimiter))
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/fileserver/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// keyDelimiter separates nested viper keys.
const keyDelimiter = "::"

// envKeys lists the keys that can be set from the environment alone.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"content.type",
	"content.cache.enabled",
	"content.cache.max_bytes",
	"content.cache.ttl",
	"adapters.http.enabled",
	"adapters.http.port",
	"adapters.http.workers",
	"adapters.http.queue_size",
	"adapters.http.max_request_line_bytes",
	"adapters.http.read_timeout",
	"adapters.http.write_timeout",
	"adapters.http.shutdown_timeout",
	"adapters.http.accept_rate",
	"adapters.http.accept_burst",
	"adapters.http.metrics_log_interval",
	"metrics.enabled",
	"metrics.port",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults. Viper reports a
		// missing explicit path (SetConfigFile) as a plain fs error.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fileserver")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fileserver")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
