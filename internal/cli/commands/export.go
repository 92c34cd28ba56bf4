package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/dropboxlog/pkg/config"
	"github.com/ccollicutt/dropboxlog/pkg/metrics"
	"github.com/ccollicutt/dropboxlog/pkg/output"
	"github.com/ccollicutt/dropboxlog/pkg/runner"
)

// ExportOptions holds command-line options for the export command.
type ExportOptions struct {
	sourceFlags

	Dest            string
	MaxBytes        int
	After           int64
	FileMode        string
	MetricsTextfile string

	Output  string
	Verbose bool
	Quiet   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export [config-file]",
		Short: "Export DropBox entries to a text file",
		Long: `Export DropBox entries, oldest first, to a single text file.

Each entry is written as:

  <tag>:\r\n<text>\r\n\r\n

Text is truncated to --max-bytes. If --dest names a directory the file is
written there as dropbox.log; an existing file is replaced.

Sources come from the config file, or from --source-dir, --adb-serial and
--archive, which replace the configured sources.

Exit codes:
  0 - Export complete
  1 - Export stopped early; the partial file was kept
  2 - Configuration, source or file creation error`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, opts)
		},
	}

	opts.sourceFlags.bind(cmd, true)
	cmd.Flags().StringVarP(&opts.Dest, "dest", "d", "", "Output file or directory (default dropbox.log)")
	cmd.Flags().IntVar(&opts.MaxBytes, "max-bytes", config.DefaultMaxBytes, "Maximum text bytes per entry")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "Only export entries after this time (ms since epoch)")
	cmd.Flags().StringVar(&opts.FileMode, "file-mode", config.DefaultFileMode, "Octal permissions of the output file")
	cmd.Flags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file")

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include run ID, sources and duration")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "One-line summary")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnFailure), "When to fire webhook (on_failure|always|never)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string, opts *ExportOptions) error {
	ctx := commandContext(cmd)

	var configPath string
	if len(args) == 1 {
		configPath = args[0]
	}

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	r, err := runner.New(cfg,
		runner.WithLogger(logger),
		runner.WithMetrics(metrics.New(prometheus.NewRegistry())),
		runner.WithConfigFile(configPath),
		runner.WithSourceOptions(config.SourceOptions{ADBRunner: adbRunner}),
	)
	if err != nil {
		return err
	}

	// The export error is carried by the report.
	report, _ := r.Run(ctx)

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	switch report.Summary.Status {
	case output.StatusFailed:
		ExitCode = ExitError
	case output.StatusPartial:
		ExitCode = ExitPartial
	}

	return nil
}

// apply overlays explicitly set flags onto cfg.
func (opts *ExportOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if srcs := opts.sources(); len(srcs) > 0 {
		cfg.Sources = srcs
	}

	flags := cmd.Flags()
	if flags.Changed("dest") {
		cfg.Export.Path = opts.Dest
	}
	if flags.Changed("max-bytes") {
		cfg.Export.MaxBytes = opts.MaxBytes
	}
	if flags.Changed("after") {
		cfg.Export.After = opts.After
	}
	if flags.Changed("file-mode") {
		cfg.Export.FileMode = opts.FileMode
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = opts.MetricsTextfile
	}

	if opts.WebhookURL != "" {
		cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		})
	}
}

func createFormatter(opts *ExportOptions) (output.Formatter, error) {
	return output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
}
