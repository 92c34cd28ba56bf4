package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/dropboxlog/pkg/config"
	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
	"github.com/ccollicutt/dropboxlog/pkg/logging"
)

// Exit codes.
const (
	ExitOK      = 0 // export complete
	ExitPartial = 1 // export stopped early, partial file kept
	ExitError   = 2 // configuration, source or file creation failure
)

// ExitCode is set by commands to indicate the result
var ExitCode = ExitOK

// adbRunner executes adb for ADB sources. Nil runs the real binary.
var adbRunner dropbox.Runner

// sourceFlags are shared by commands that read DropBox entries.
type sourceFlags struct {
	Dirs      []string
	ADBSerial string
	Archive   string
}

func (f *sourceFlags) bind(cmd *cobra.Command, withArchive bool) {
	cmd.Flags().StringArrayVar(&f.Dirs, "source-dir", nil, "DropBox directory or glob (can be repeated)")
	cmd.Flags().StringVar(&f.ADBSerial, "adb-serial", "", "Pull entries from the device with this serial")
	if withArchive {
		cmd.Flags().StringVar(&f.Archive, "archive", "", "Read entries from a SQLite archive")
	}
}

// sources returns the sources named on the command line, or nil if none were.
func (f *sourceFlags) sources() []config.SourceConfig {
	var out []config.SourceConfig
	for _, d := range f.Dirs {
		out = append(out, config.SourceConfig{Type: string(config.SourceTypeDir), Path: d})
	}
	if f.ADBSerial != "" {
		out = append(out, config.SourceConfig{Type: string(config.SourceTypeADB), Serial: f.ADBSerial})
	}
	if f.Archive != "" {
		out = append(out, config.SourceConfig{Type: string(config.SourceTypeSQLite), Path: f.Archive})
	}
	return out
}

// newLogger builds the logger from the persistent --log-level and
// --log-format flags, falling back to cfg.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	lc := logging.Config{Writer: cmd.ErrOrStderr()}
	if cfg != nil {
		lc.Level = cfg.Log.Level
		lc.Format = cfg.Log.Format
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		lc.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		lc.Format = f.Value.String()
	}

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return logger, nil
}

// loadConfig parses path, or starts from the environment when path is
// empty. The result is not validated; callers overlay their flags first.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnvironment(), nil
	}
	cfg, err := config.Parse(commandContext(cmd), path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
