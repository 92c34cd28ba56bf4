package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/dropboxlog/pkg/config"
	"github.com/ccollicutt/dropboxlog/pkg/metrics"
	"github.com/ccollicutt/dropboxlog/pkg/runner"
	"github.com/ccollicutt/dropboxlog/pkg/schedule"
	"github.com/ccollicutt/dropboxlog/pkg/server"
	"github.com/ccollicutt/dropboxlog/pkg/watch"
)

// ServeOptions holds command-line options for the serve command.
type ServeOptions struct {
	Listen string
	RunNow bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve <config-file>",
		Short: "Run exports on a schedule and serve them over HTTP",
		Long: `Run as a long-lived service. Exports run when:
  - the cron schedule in serve.schedule fires
  - a watched dir source changes (serve.watch)
  - a client sends POST /exports

Endpoints:
  GET  /healthz              liveness
  GET  /metrics              Prometheus metrics
  POST /exports              run an export now
  GET  /exports/latest       report of the latest export
  GET  /exports/latest/file  the latest export file

Stops on SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (overrides serve.listen)")
	cmd.Flags().BoolVar(&opts.RunNow, "run-now", false, "Run one export at startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string, opts *ServeOptions) error {
	configPath := args[0]

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Serve.Listen = opts.Listen
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(registry)

	r, err := runner.New(cfg,
		runner.WithLogger(logger),
		runner.WithMetrics(collector),
		runner.WithConfigFile(configPath),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	}

	if opts.RunNow {
		if err := job(ctx); err != nil {
			logger.WithError(err).Warn("startup export did not complete")
		}
	}

	sched := schedule.New(cfg.Serve.Schedule, job, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Serve.Watch {
		dirs, err := cfg.WatchDirs()
		if err != nil {
			return fmt.Errorf("resolving watch directories: %w", err)
		}
		w := watch.New(dirs, cfg.Serve.Debounce, logger)
		g.Go(func() error {
			return w.Run(ctx, job)
		})
	}

	srv := server.New(r, collector.Handler(), logger)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Serve.Listen)
	})

	return g.Wait()
}
