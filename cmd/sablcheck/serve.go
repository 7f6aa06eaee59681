package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copyleftdev/sablcheck/internal/runner"
	"github.com/copyleftdev/sablcheck/internal/runs"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/copyleftdev/sablcheck/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serverShutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
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
			driver, err := a.newDriver(&cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer shutdownDriver(driver, cfg, logger)

			r := runner.New(driver, cfg, logger)
			rm := runs.NewManager(r, cfg.Browser.MaxSessions, logger)
			srv := server.NewServer(cfg, catalog, rm, r.Recorder(), logger)

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutdown requested")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", zap.Error(err))
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
