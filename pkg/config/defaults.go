package config

import (
	"os"
	"strconv"
	"time"
)

// Default values for configuration.
const (
	DefaultExportPath     = "dropbox.log"
	DefaultMaxBytes       = 800 * 1024
	DefaultFileMode       = "0644"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultListen         = ":9310"
	DefaultDebounce       = 2 * time.Second
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvExportPath = "DROPBOXLOG_EXPORT_PATH"
	EnvMaxBytes   = "DROPBOXLOG_MAX_BYTES"
	EnvLogLevel   = "DROPBOXLOG_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Sources: []SourceConfig{},
		Export: ExportConfig{
			Path:     DefaultExportPath,
			MaxBytes: DefaultMaxBytes,
			FileMode: DefaultFileMode,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Serve: ServeConfig{
			Listen:   DefaultListen,
			Debounce: DefaultDebounce,
		},
	}
}

// FromEnvironment returns the defaults with environment overrides applied.
// It is the starting point when no configuration file is given.
func FromEnvironment() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	return cfg
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// Malformed numeric values are ignored.
func (c *Config) applyEnvironmentOverrides() {
	if p := os.Getenv(EnvExportPath); p != "" {
		c.Export.Path = p
	}
	if v := os.Getenv(EnvMaxBytes); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Export.MaxBytes = n
		}
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Log.Level = lvl
	}
}
