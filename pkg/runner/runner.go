// Package runner executes export runs one at a time and keeps the latest report.
package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/dropboxlog/pkg/config"
	"github.com/ccollicutt/dropboxlog/pkg/exporter"
	"github.com/ccollicutt/dropboxlog/pkg/logging"
	"github.com/ccollicutt/dropboxlog/pkg/metrics"
	"github.com/ccollicutt/dropboxlog/pkg/output"
	"github.com/ccollicutt/dropboxlog/pkg/webhook"
)

// Runner runs exports for a configuration. Concurrent Run calls are serialized
// so two exports never write the same file at once.
type Runner struct {
	cfg        *config.Config
	configFile string
	open       exporter.Opener
	sourceOpts config.SourceOptions
	metrics    *metrics.Collector
	logger     logrus.FieldLogger
	notifier   *webhook.Notifier

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *output.Report
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics records runs on c and enables the metrics textfile.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithConfigFile records the configuration file name in reports.
func WithConfigFile(path string) Option {
	return func(r *Runner) { r.configFile = path }
}

// WithOpener replaces the source opener built from the configuration.
func WithOpener(open exporter.Opener) Option {
	return func(r *Runner) { r.open = open }
}

// WithSourceOptions tunes how configured sources are opened.
func WithSourceOptions(opts config.SourceOptions) Option {
	return func(r *Runner) { r.sourceOpts = opts }
}

// New creates a Runner for cfg.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	r := &Runner{
		cfg:    cfg,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.open == nil {
		r.open = config.Sources(cfg.Sources, r.sourceOpts)
	}
	r.notifier = webhook.NewNotifier(cfg.Webhooks, r.logger)

	return r, nil
}

// Run performs one export and returns its report. The error is the export
// error; the report is returned in every case.
func (r *Runner) Run(ctx context.Context) (*output.Report, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	mode, err := config.ParseFileMode(r.cfg.Export.FileMode)
	if err != nil {
		report := output.NewReport(nil, err, r.configFile, r.sources())
		r.store(report)
		return report, err
	}

	exp := exporter.New(r.open,
		exporter.WithLogger(r.logger),
		exporter.WithMetrics(r.metrics),
		exporter.WithFileMode(mode),
		exporter.WithAfter(r.cfg.Export.After),
	)

	res, err := exp.Export(ctx, r.cfg.Export.Path, r.cfg.Export.MaxBytes)
	report := output.NewReport(res, err, r.configFile, r.sources())

	if r.metrics != nil && r.cfg.Metrics.Textfile != "" {
		if werr := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); werr != nil {
			r.logger.WithError(werr).WithField("path", r.cfg.Metrics.Textfile).Warn("writing metrics textfile failed")
		}
	}

	// Webhook errors are logged, never returned.
	r.notifier.Notify(ctx, report)

	r.store(report)
	return report, err
}

// Latest returns the report of the most recent run, or nil before the first.
func (r *Runner) Latest() *output.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Runner) store(report *output.Report) {
	r.mu.Lock()
	r.latest = report
	r.mu.Unlock()
}

func (r *Runner) sources() []string {
	out := make([]string, 0, len(r.cfg.Sources))
	for _, s := range r.cfg.Sources {
		out = append(out, s.String())
	}
	return out
}
