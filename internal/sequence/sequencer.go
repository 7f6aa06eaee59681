package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copyleftdev/sablcheck/internal/artifact"
	"github.com/copyleftdev/sablcheck/internal/assertion"
	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/copyleftdev/sablcheck/internal/poll"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"go.uber.org/zap"
)

// Resolver expands placeholders in step values right before use.
type Resolver interface {
	Resolve(s string) (string, error)
	ResolvePaths(paths []string) ([]string, error)
}

// Outcome is what a sequence produced, whether or not it completed.
type Outcome struct {
	// Completed counts the steps that finished successfully.
	Completed int
	Warnings  []string
	Artifacts []string
}

// Sequencer executes the steps of one scenario against one session. It is
// not safe for concurrent use.
type Sequencer struct {
	ScenarioID string

	page     browser.Session
	nav      *browser.Navigator
	loc      *locator.Locator
	engine   *assertion.Engine
	recorder *artifact.Recorder
	vars     Resolver
	interval time.Duration
	logger   *zap.Logger
}

// Deps groups the per-session components a Sequencer drives.
type Deps struct {
	Page      browser.Session
	Navigator *browser.Navigator
	Locator   *locator.Locator
	Engine    *assertion.Engine
	Recorder  *artifact.Recorder
	Vars      Resolver
	// Interval is the capability re-check interval inside the settle window.
	Interval time.Duration
}

func New(scenarioID string, deps Deps, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		ScenarioID: scenarioID,
		page:       deps.Page,
		nav:        deps.Navigator,
		loc:        deps.Locator,
		engine:     deps.Engine,
		recorder:   deps.Recorder,
		vars:       deps.Vars,
		interval:   deps.Interval,
		logger:     logger.Named("sequence").With(zap.String("scenario", scenarioID)),
	}
}

// Run executes steps strictly in order and stops at the first failure. The
// returned error is a *failure.Error carrying the failing step index.
func (s *Sequencer) Run(ctx context.Context, steps []scenario.Step) (Outcome, error) {
	var out Outcome
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			kind := failure.BrowserError
			if errors.Is(err, context.DeadlineExceeded) {
				kind = failure.ScenarioTimeout
			}
			return out, failure.WithStep(failure.Wrap(kind, err, "before %s", step.Action), i)
		}

		start := time.Now()
		if err := s.runStep(ctx, i, step, &out); err != nil {
			s.logger.Info("step failed",
				zap.Int("step", i),
				zap.String("action", string(step.Action)),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return out, failure.WithStep(err, i)
		}
		out.Completed++
		s.logger.Debug("step completed",
			zap.Int("step", i),
			zap.String("action", string(step.Action)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return out, nil
}

func (s *Sequencer) runStep(ctx context.Context, i int, step scenario.Step, out *Outcome) error {
	switch step.Action {
	case scenario.ActionNavigate:
		target, err := s.resolve(step.Value)
		if err != nil {
			return err
		}
		return s.nav.Goto(ctx, target, step.Wait.Until, step.Wait.Timeout)

	case scenario.ActionFill, scenario.ActionClick, scenario.ActionCheck, scenario.ActionUpload, scenario.ActionScroll:
		return s.interact(ctx, step)

	case scenario.ActionExpectVisible, scenario.ActionExpectHidden, scenario.ActionExpectText:
		cond, err := s.condition(step)
		if err != nil {
			return err
		}
		if s.engine.WaitFor(ctx, cond, step.Timeout) {
			return nil
		}
		if step.Soft {
			msg := fmt.Sprintf("step %d: %s not met", i, cond)
			s.logger.Warn("soft assertion failed", zap.Int("step", i), zap.Stringer("condition", cond))
			out.Warnings = append(out.Warnings, msg)
			return nil
		}
		return failure.New(failure.AssertionTimeout, "%s not met", cond)

	case scenario.ActionScreenshot:
		if s.recorder == nil {
			return nil
		}
		if path := s.recorder.Capture(ctx, s.page, s.ScenarioID, i, artifact.OutcomeStep); path != "" {
			out.Artifacts = append(out.Artifacts, path)
		}
		return nil
	}
	return failure.New(failure.InvalidStep, "unknown action %q", step.Action)
}

func (s *Sequencer) resolve(v string) (string, error) {
	if s.vars == nil {
		return v, nil
	}
	r, err := s.vars.Resolve(v)
	if err != nil {
		return "", failure.Wrap(failure.InvalidStep, err, "resolve value")
	}
	return r, nil
}

func (s *Sequencer) condition(step scenario.Step) (assertion.Condition, error) {
	switch step.Action {
	case scenario.ActionExpectVisible, scenario.ActionExpectHidden:
		if step.Target == nil {
			return assertion.Condition{}, failure.New(failure.InvalidStep, "%s requires a target", step.Action)
		}
		if step.Action == scenario.ActionExpectHidden {
			return assertion.Hidden(*step.Target), nil
		}
		return assertion.Visible(*step.Target), nil
	}
	text, err := s.resolve(step.Value)
	if err != nil {
		return assertion.Condition{}, err
	}
	if step.Target != nil {
		return assertion.TextEquals(*step.Target, text), nil
	}
	return assertion.TextVisible(text), nil
}

// interact resolves the target, waits for it to offer the capability the
// action needs and applies the action.
func (s *Sequencer) interact(ctx context.Context, step scenario.Step) error {
	if step.Target == nil {
		return failure.New(failure.InvalidStep, "%s requires a target", step.Action)
	}
	d := *step.Target
	loc := s.loc.WithTimeout(step.Timeout)

	el, err := loc.Resolve(ctx, d)
	if err != nil {
		return err
	}
	if err := s.settle(ctx, el, d, step.Action.Required(), loc.Timeout()); err != nil {
		return err
	}

	switch step.Action {
	case scenario.ActionFill:
		value, err := s.resolve(step.Value)
		if err != nil {
			return err
		}
		err = el.Fill(ctx, value)
		return actionErr(err, "fill %s", d)
	case scenario.ActionClick:
		return actionErr(el.Click(ctx), "click %s", d)
	case scenario.ActionCheck:
		return actionErr(el.Check(ctx), "check %s", d)
	case scenario.ActionUpload:
		files := step.Files
		if s.vars != nil {
			files, err = s.vars.ResolvePaths(step.Files)
			if err != nil {
				return failure.Wrap(failure.InvalidStep, err, "resolve upload paths")
			}
		}
		return actionErr(el.SetFiles(ctx, files), "upload to %s", d)
	case scenario.ActionScroll:
		return actionErr(el.ScrollIntoView(ctx), "scroll to %s", d)
	}
	return nil
}

// settle polls the element's capabilities until it offers want or the window
// closes.
func (s *Sequencer) settle(ctx context.Context, el locator.Element, d locator.Descriptor, want locator.Capability, window time.Duration) error {
	if want == locator.None {
		return nil
	}
	var last locator.Capability
	ok, err := poll.Until(ctx, s.interval, window, func(ctx context.Context) (bool, error) {
		caps, err := el.Capabilities(ctx)
		if err != nil {
			return false, err
		}
		last = caps
		return caps.Has(want), nil
	})
	if ok {
		return nil
	}
	if err != nil {
		return failure.Wrap(failure.PreconditionFailed, err, "%s is not %s", d, want)
	}
	return failure.New(failure.PreconditionFailed, "%s is %s, requires %s", d, last, want)
}

func actionErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}
	return failure.Wrap(failure.BrowserError, err, format, args...)
}
