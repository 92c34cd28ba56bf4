// Package config provides configuration loading and validation for dropboxlog.
package config

import (
	"os"
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Sources  []SourceConfig  `yaml:"sources"`
	Export   ExportConfig    `yaml:"export"`
	Log      LogConfig       `yaml:"log"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Serve    ServeConfig     `yaml:"serve"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// SourceType identifies where DropBox records come from.
type SourceType string

const (
	// SourceTypeDir reads a DropBox directory (or glob of directories) on disk.
	SourceTypeDir SourceType = "dir"
	// SourceTypeADB pulls the DropBox directory from a device over ADB.
	SourceTypeADB SourceType = "adb"
	// SourceTypeSQLite reads a dropboxlog SQLite archive.
	SourceTypeSQLite SourceType = "sqlite"
)

// SourceConfig defines a single record source.
type SourceConfig struct {
	Type string `yaml:"type"` // dir, adb, sqlite

	// Path is the directory (or glob) for dir sources and the database
	// file for sqlite sources.
	Path string `yaml:"path,omitempty"`

	// ADB fields
	Serial     string `yaml:"serial,omitempty"`
	RemotePath string `yaml:"remote_path,omitempty"`
	ADBPath    string `yaml:"adb_path,omitempty"`
}

// SourceTypeEnum returns the source type as a SourceType enum.
func (s *SourceConfig) SourceTypeEnum() SourceType {
	return SourceType(s.Type)
}

// String describes the source as type:location.
func (s SourceConfig) String() string {
	switch s.SourceTypeEnum() {
	case SourceTypeADB:
		if s.Serial == "" {
			return "adb"
		}
		return "adb:" + s.Serial
	default:
		return s.Type + ":" + s.Path
	}
}

// ExportConfig controls the export file.
type ExportConfig struct {
	// Path is the output file, or a directory to hold dropbox.log.
	Path string `yaml:"path"`

	// MaxBytes caps the text payload written per record.
	MaxBytes int `yaml:"max_bytes"`

	// FileMode is the octal permission string applied to the output file.
	FileMode string `yaml:"file_mode,omitempty"`

	// After is the cursor lower bound in milliseconds.
	After int64 `yaml:"after,omitempty"`

	// fileMode is the parsed FileMode (populated during validation).
	fileMode os.FileMode
}

// Mode returns the parsed file mode.
func (e *ExportConfig) Mode() os.FileMode {
	return e.fileMode
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls metrics output for one-shot exports.
type MetricsConfig struct {
	// Textfile, when set, receives Prometheus metrics after each export.
	Textfile string `yaml:"textfile,omitempty"`
}

// ServeConfig controls the long-running serve mode.
type ServeConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Schedule is a cron expression for periodic exports. Empty disables it.
	Schedule string `yaml:"schedule,omitempty"`

	// Watch re-exports when a dir source changes.
	Watch bool `yaml:"watch,omitempty"`

	// Debounce delays a watch-triggered export until changes settle.
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFailure fires when an export is partial or fails (default).
	WebhookTriggerOnFailure WebhookTrigger = "on_failure"
	// WebhookTriggerAlways fires after every export.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint notified about exports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_failure" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
