package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/dropboxlog/pkg/logging"
)

// Load reads and validates a configuration file.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Parse(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Parse reads a configuration file and applies environment overrides
// without validating it. Callers that overlay command-line settings
// validate once they are done.
func Parse(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Validate checks a configuration for errors and fills in defaults.
func Validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return errors.New("sources: at least one source is required")
	}

	hasDir := false
	for i := range cfg.Sources {
		if err := validateSource(&cfg.Sources[i]); err != nil {
			return fmt.Errorf("sources[%d] (%s): %w", i, cfg.Sources[i].Type, err)
		}
		if cfg.Sources[i].SourceTypeEnum() == SourceTypeDir {
			hasDir = true
		}
	}

	if err := validateExport(&cfg.Export); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if _, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := validateServe(&cfg.Serve, hasDir); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateSource(src *SourceConfig) error {
	switch src.SourceTypeEnum() {
	case SourceTypeDir:
		if src.Path == "" {
			return errors.New("path is required for dir sources")
		}
	case SourceTypeSQLite:
		if src.Path == "" {
			return errors.New("path is required for sqlite sources")
		}
	case SourceTypeADB:
		if src.Serial == "" {
			return errors.New("serial is required for adb sources")
		}
		if src.RemotePath != "" && !strings.HasPrefix(src.RemotePath, "/") {
			return fmt.Errorf("remote_path %q must be absolute", src.RemotePath)
		}
	default:
		return fmt.Errorf("invalid type %q (must be dir, adb, or sqlite)", src.Type)
	}
	return nil
}

func validateExport(exp *ExportConfig) error {
	if exp.Path == "" {
		return errors.New("path is required")
	}
	if exp.MaxBytes < 0 {
		return fmt.Errorf("max_bytes must be >= 0, got %d", exp.MaxBytes)
	}
	if exp.After < 0 {
		return fmt.Errorf("after must be >= 0, got %d", exp.After)
	}

	mode, err := ParseFileMode(exp.FileMode)
	if err != nil {
		return fmt.Errorf("file_mode: %w", err)
	}
	exp.fileMode = mode

	return nil
}

// ParseFileMode parses an octal permission string such as "0644".
// An empty string yields the default mode.
func ParseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		s = DefaultFileMode
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q: %w", s, err)
	}
	if n > 0o777 {
		return 0, fmt.Errorf("mode %q has bits outside 0777", s)
	}
	return os.FileMode(n), nil
}

func validateServe(sc *ServeConfig, hasDir bool) error {
	if sc.Listen == "" {
		sc.Listen = DefaultListen
	}
	if sc.Schedule != "" {
		if _, err := cron.ParseStandard(sc.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", sc.Schedule, err)
		}
	}
	if sc.Watch && !hasDir {
		return errors.New("watch requires at least one dir source")
	}
	if sc.Debounce <= 0 {
		sc.Debounce = DefaultDebounce
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnFailure, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_failure, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnFailure
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
