// Package config provides configuration management for the embedded server.
// Configuration is loaded from YAML files with ${VAR} environment variable
// substitution; every section has defaults so an empty file is a valid config.
package config

import (
	"time"

	"github.com/vyrodovalexey/embhttp/internal/util"
)

// Default server configuration values.
const (
	// DefaultPort is the port the server listens on.
	DefaultPort = 8080

	// DefaultAdmissionCapacity is the number of permits in the admission
	// gate, bounding concurrently pending accept operations.
	DefaultAdmissionCapacity = 20

	// DefaultReadTimeout is the maximum duration for reading a request.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout is the maximum duration for writing a response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds all configuration settings for the embedded server.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ServerConfig represents the listening and admission configuration.
type ServerConfig struct {
	// Port is bound on every local interface address discovered at
	// startup, plus loopback.
	Port int `yaml:"port" json:"port"`

	// AdmissionCapacity is the admission gate permit count. Zero means
	// DefaultAdmissionCapacity.
	AdmissionCapacity int `yaml:"admissionCapacity,omitempty" json:"admissionCapacity,omitempty"`

	// AcceptRate limits accepted connections per second across all
	// listeners. Zero disables the limiter.
	AcceptRate float64 `yaml:"acceptRate,omitempty" json:"acceptRate,omitempty"`

	// AcceptBurst is the burst size for the accept rate limiter.
	AcceptBurst int `yaml:"acceptBurst,omitempty" json:"acceptBurst,omitempty"`

	// ReadTimeout is the maximum duration for reading a request from a
	// connection.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// WriteTimeout is the maximum duration for writing a response to a
	// connection.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// MetricsConfig represents metrics exposure configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServerConfig(),
		Logging: DefaultLoggingConfig(),
		Metrics: DefaultMetricsConfig(),
	}
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:              DefaultPort,
		AdmissionCapacity: DefaultAdmissionCapacity,
		ReadTimeout:       Duration(DefaultReadTimeout),
		WriteTimeout:      Duration(DefaultWriteTimeout),
		ShutdownTimeout:   Duration(DefaultShutdownTimeout),
	}
}

// DefaultLoggingConfig returns a LoggingConfig with default values.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// DefaultMetricsConfig returns a MetricsConfig with default values.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		Path:    "/metrics",
	}
}

// GetEffectiveAdmissionCapacity returns the effective admission gate capacity.
func (c *ServerConfig) GetEffectiveAdmissionCapacity() int {
	if c.AdmissionCapacity <= 0 {
		return DefaultAdmissionCapacity
	}
	return c.AdmissionCapacity
}

// GetEffectiveReadTimeout returns the effective read timeout.
func (c *ServerConfig) GetEffectiveReadTimeout() time.Duration {
	if c.ReadTimeout == 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout.Duration()
}

// GetEffectiveWriteTimeout returns the effective write timeout.
func (c *ServerConfig) GetEffectiveWriteTimeout() time.Duration {
	if c.WriteTimeout == 0 {
		return DefaultWriteTimeout
	}
	return c.WriteTimeout.Duration()
}

// GetEffectiveShutdownTimeout returns the effective shutdown timeout.
func (c *ServerConfig) GetEffectiveShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return DefaultShutdownTimeout
	}
	return c.ShutdownTimeout.Duration()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return util.NewConfigError("server.port", "must be between 1 and 65535")
	}
	if c.AdmissionCapacity < 0 {
		return util.NewConfigError("server.admissionCapacity", "must not be negative")
	}
	if c.AcceptRate < 0 {
		return util.NewConfigError("server.acceptRate", "must not be negative")
	}
	if c.AcceptBurst < 0 {
		return util.NewConfigError("server.acceptBurst", "must not be negative")
	}
	if c.AcceptRate > 0 && c.AcceptBurst == 0 {
		return util.NewConfigError("server.acceptBurst", "must be positive when acceptRate is set")
	}
	return nil
}

// Validate validates the logging configuration.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return util.NewConfigError("logging.level", "must be one of debug, info, warn, error")
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return util.NewConfigError("logging.format", "must be json or console")
	}
	return nil
}
