package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errChecksFailed signals that a command finished but at least one scenario
// or check failed. The summary has already been printed, so main only sets
// the exit code.
var errChecksFailed = errors.New("one or more checks failed")

type driverFactory func(cfg *config.BrowserConfig, logger *zap.Logger) (browser.Driver, error)

// app carries what every subcommand shares; tests swap the driver factory
// and writers.
type app struct {
	stdout, stderr io.Writer
	newDriver      driverFactory

	configPath string
	logLevel   string
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		newDriver: browser.NewDriver,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sablcheck",
		Short:         "sablcheck - end-to-end checks for the SABL website and admin panel",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newDoctorCmd(a))
	return root
}

// loadConfig reads the config file and environment. Commands apply their
// flags on top and validate again.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (a *app) logger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	return logging.New(level, cfg.Log.Development)
}

// shutdownDriver releases the browser within the configured budget.
func shutdownDriver(d browser.Driver, cfg *config.Config, logger *zap.Logger) {
	timeout := cfg.Browser.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		logger.Warn("browser shutdown failed", zap.Error(err))
	}
}
