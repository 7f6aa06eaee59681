package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/report"
	"github.com/copyleftdev/sablcheck/internal/runner"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	baseURL      string
	headless     bool
	headed       bool
	scenariosDir string
	artifactsDir string
	driver       string
	parallel     int
	jsonOut      bool
	noColor      bool
	snapshots    bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [scenario|tag:<name>...]",
		Short: "Run scenarios and exit non-zero when any fails",
		Long: `Run executes the selected scenarios (all of them when none are named),
each in a fresh browser session, and prints one summary line per scenario.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.baseURL, "base-url", "", "target base URL, e.g. http://127.0.0.1:3003")
	f.BoolVar(&opts.headless, "headless", true, "run the browser without a window")
	f.BoolVar(&opts.headed, "headed", false, "show the browser window (same as --headless=false)")
	f.StringVar(&opts.scenariosDir, "scenarios-dir", "", "directory of extra YAML scenario files")
	f.StringVar(&opts.artifactsDir, "artifacts-dir", "", "directory for screenshots")
	f.StringVar(&opts.driver, "driver", "", "browser driver: chromedp or playwright")
	f.IntVar(&opts.parallel, "parallel", 0, "scenarios to run at once")
	f.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	f.BoolVar(&opts.noColor, "no-color", false, "disable coloured output")
	f.BoolVar(&opts.snapshots, "dom", false, "print the DOM snapshot of failed scenarios")
	return cmd
}

func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if o.baseURL != "" {
		cfg.Target.BaseURL = o.baseURL
	}
	if f.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if o.headed {
		cfg.Browser.Headless = false
	}
	if o.scenariosDir != "" {
		cfg.Scenarios.Dir = o.scenariosDir
	}
	if o.artifactsDir != "" {
		cfg.Artifacts.Dir = o.artifactsDir
	}
	if o.driver != "" {
		cfg.Browser.Driver = o.driver
	}
	if o.parallel > 0 {
		cfg.Scenarios.Parallel = o.parallel
	}
}

func (a *app) run(cmd *cobra.Command, args []string, opts runOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := a.logger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := scenario.LoadCatalog(cfg.Scenarios.Dir)
	if err != nil {
		return err
	}
	selected, err := catalog.Select(args...)
	if err != nil {
		return err
	}

	driver, err := a.newDriver(&cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer shutdownDriver(driver, cfg, logger)

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("running scenarios",
		zap.Int("count", len(selected)),
		zap.String("base_url", cfg.Target.BaseURL),
		zap.String("driver", cfg.Browser.Driver))
	results := runner.New(driver, cfg, logger).RunAll(ctx, selected, cfg.Scenarios.Parallel)

	if opts.jsonOut {
		if err := report.WriteJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		p := report.NewPrinter(cmd.OutOrStdout(), !opts.noColor)
		p.Snapshots = opts.snapshots
		if err := p.Print(results); err != nil {
			return err
		}
	}

	if !report.AllPassed(results) {
		return errChecksFailed
	}
	return nil
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
