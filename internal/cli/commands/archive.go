package commands

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/dropboxlog/pkg/config"
	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
)

// ArchiveOptions holds command-line options for the archive command.
type ArchiveOptions struct {
	sourceFlags

	Config   string
	MaxBytes int
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand() *cobra.Command {
	opts := &ArchiveOptions{}

	cmd := &cobra.Command{
		Use:   "archive <db-file>",
		Short: "Copy DropBox entries into a SQLite archive",
		Long: `Copy DropBox entries into a SQLite archive so they outlive the
device's retention. Entries already archived are skipped.

The archive can later be exported with "dropboxlog export --archive <db-file>"
or a sqlite source in a config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, args, opts)
		},
	}

	opts.sourceFlags.bind(cmd, false)
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Read sources from this config file")
	cmd.Flags().IntVar(&opts.MaxBytes, "max-bytes", config.DefaultMaxBytes, "Maximum bytes kept for entries only readable as text")

	return cmd
}

func runArchive(cmd *cobra.Command, args []string, opts *ArchiveOptions) error {
	ctx := commandContext(cmd)
	dbPath := args[0]

	cfg, err := loadConfig(cmd, opts.Config)
	if err != nil {
		return err
	}
	if srcs := opts.sources(); len(srcs) > 0 {
		cfg.Sources = srcs
	}
	if len(cfg.Sources) == 0 {
		return errors.New("no sources: use --source-dir, --adb-serial or --config")
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	archive, err := dropbox.OpenArchive(dbPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	src, err := config.Sources(cfg.Sources, config.SourceOptions{ADBRunner: adbRunner})(ctx)
	if err != nil {
		return fmt.Errorf("opening sources: %w", err)
	}
	defer src.Close()

	added, err := archive.Import(ctx, src, opts.MaxBytes)
	if err != nil {
		return fmt.Errorf("archiving: %w", err)
	}

	total, err := archive.Count(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"path":  dbPath,
		"added": added,
		"total": total,
	}).Debug("archive updated")

	fmt.Fprintf(cmd.OutOrStdout(), "Archived %d new entries into %s (%d total)\n", added, dbPath, total)
	return nil
}
