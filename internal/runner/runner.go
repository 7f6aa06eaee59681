package runner

import (
	"context"
	"time"

	"github.com/copyleftdev/sablcheck/internal/artifact"
	"github.com/copyleftdev/sablcheck/internal/assertion"
	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/dom"
	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/copyleftdev/sablcheck/internal/sequence"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// snapshotLimit caps the DOM diagnostic attached to a failed result.
	snapshotLimit = 16 * 1024
	// diagnosticTimeout bounds failure screenshots and snapshots, which run
	// after the scenario deadline may already have passed.
	diagnosticTimeout = 10 * time.Second
)

// Runner executes scenarios, each in its own browser session.
type Runner struct {
	driver   browser.Driver
	cfg      *config.Config
	vars     scenario.Vars
	recorder *artifact.Recorder
	logger   *zap.Logger
}

func New(driver browser.Driver, cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		driver:   driver,
		cfg:      cfg,
		vars:     scenario.VarsFromConfig(cfg.Target),
		recorder: artifact.NewRecorder(cfg.Artifacts.Dir, cfg.Artifacts.FullPage, logger),
		logger:   logger.Named("runner"),
	}
}

// Recorder exposes the artifact store, e.g. for serving screenshots.
func (r *Runner) Recorder() *artifact.Recorder {
	return r.recorder
}

// Run executes sc in a fresh session and returns its terminal result. It
// never returns a non-terminal result.
func (r *Runner) Run(ctx context.Context, sc scenario.Scenario) scenario.Result {
	return r.Execute(ctx, sc, scenario.NewRun(sc))
}

// Execute drives an existing pending run, so callers can publish its ID
// before the scenario starts.
func (r *Runner) Execute(ctx context.Context, sc scenario.Scenario, run *scenario.Run) scenario.Result {
	logger := r.logger.With(zap.String("scenario", sc.ID), zap.String("run_id", run.ID().String()))
	if err := run.Start(); err != nil {
		logger.Error("run cannot start", zap.Error(err))
		return run.Result()
	}
	logger.Info("scenario started", zap.Int("steps", len(sc.Steps)))

	err := r.execute(ctx, sc, run, logger)

	res := run.Result()
	logger.Info("scenario finished",
		zap.String("status", string(res.Status)),
		zap.Int("failed_step", res.FailedStep),
		zap.Duration("elapsed", res.Duration()),
		zap.NamedError("reason", err))
	return res
}

func (r *Runner) execute(ctx context.Context, sc scenario.Scenario, run *scenario.Run, logger *zap.Logger) error {
	scCtx := ctx
	if r.cfg.Timeouts.Scenario > 0 {
		var cancel context.CancelFunc
		scCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeouts.Scenario)
		defer cancel()
	}

	session, err := r.driver.NewSession(scCtx)
	if err != nil {
		err = failure.Wrap(failure.BrowserError, err, "open browser session")
		_ = run.Finish(err)
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("failed to close session", zap.Error(cerr))
		}
	}()

	baseURL := r.cfg.Target.BaseURL
	if sc.BaseURL != "" {
		baseURL = sc.BaseURL
	}
	nav, err := browser.NewNavigator(session, baseURL, r.cfg.Timeouts.Navigation, logger)
	if err != nil {
		err = failure.Wrap(failure.InvalidStep, err, "base URL")
		_ = run.Finish(err)
		return err
	}

	interval := r.cfg.Timeouts.PollInterval
	seq := sequence.New(sc.ID, sequence.Deps{
		Page:      session,
		Navigator: nav,
		Locator:   locator.New(session, r.cfg.Timeouts.Locate, interval, logger),
		Engine:    assertion.NewEngine(session, interval, r.cfg.Timeouts.Assertion, logger),
		Recorder:  r.recorder,
		Vars:      r.vars,
		Interval:  interval,
	}, logger)

	out, err := seq.Run(scCtx, sc.Steps)
	for _, p := range out.Artifacts {
		run.AddArtifact(p)
	}
	for _, w := range out.Warnings {
		run.AddWarning(w)
	}

	// The terminal state is recorded before any diagnostics are captured so
	// that a capture problem cannot alter it.
	if ferr := run.Finish(err); ferr != nil {
		logger.Error("terminal state already recorded", zap.Error(ferr))
	}

	diagCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticTimeout)
	defer cancel()

	if err != nil {
		outcome := artifact.OutcomeFailed
		if run.Status() == scenario.StatusTimedOut {
			outcome = artifact.OutcomeTimedOut
		}
		run.AddArtifact(r.recorder.Capture(diagCtx, session, sc.ID, max(failure.StepOf(err), 0), outcome))
		if r.cfg.Artifacts.DOMSnapshot {
			r.attachSnapshot(diagCtx, session, run, logger)
		}
		return err
	}

	if sc.FinalArtifact || r.cfg.Artifacts.CaptureOnSuccess {
		run.AddArtifact(r.recorder.Capture(diagCtx, session, sc.ID, max(len(sc.Steps)-1, 0), artifact.OutcomePassed))
	}
	return nil
}

func (r *Runner) attachSnapshot(ctx context.Context, session browser.Session, run *scenario.Run, logger *zap.Logger) {
	html, err := session.HTML(ctx)
	if err != nil {
		logger.Warn("could not read final DOM", zap.Error(err))
		return
	}
	snap, err := dom.Snapshot(html, snapshotLimit)
	if err != nil {
		logger.Warn("could not simplify final DOM", zap.Error(err))
		return
	}
	run.SetSnapshot(snap)
}

// RunAll executes scenarios with at most parallel sessions at once. Results
// are returned in input order.
func (r *Runner) RunAll(ctx context.Context, scenarios []scenario.Scenario, parallel int) []scenario.Result {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]scenario.Result, len(scenarios))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			results[i] = r.Run(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
