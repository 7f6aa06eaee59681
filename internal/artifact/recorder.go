package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/copyleftdev/sablcheck/internal/failure"
	"go.uber.org/zap"
)

// Outcome is the last path segment of an artifact file name.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeStep     Outcome = "step"
)

// Shooter produces a PNG of the current page. browser.Session satisfies it.
type Shooter interface {
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the deterministic artifact name for a scenario step.
func FileName(scenarioID string, stepIndex int, outcome Outcome) string {
	id := unsafeChars.ReplaceAllString(scenarioID, "-")
	return fmt.Sprintf("%s_%d_%s.png", id, stepIndex, outcome)
}

// Recorder writes screenshots into one directory.
type Recorder struct {
	dir      string
	fullPage bool
	logger   *zap.Logger
}

func NewRecorder(dir string, fullPage bool, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{dir: dir, fullPage: fullPage, logger: logger.Named("artifact")}
}

func (r *Recorder) Dir() string {
	return r.dir
}

// Capture screenshots the page and returns the written path. Failures are
// logged as CaptureFailed and reported as an empty path; they never reach the
// caller as errors.
func (r *Recorder) Capture(ctx context.Context, shot Shooter, scenarioID string, stepIndex int, outcome Outcome) string {
	path := filepath.Join(r.dir, FileName(scenarioID, stepIndex, outcome))
	if err := r.write(ctx, shot, path); err != nil {
		ferr := failure.Wrap(failure.CaptureFailed, err, "%s", path)
		r.logger.Warn("screenshot capture failed",
			zap.String("scenario", scenarioID),
			zap.Int("step", stepIndex),
			zap.String("outcome", string(outcome)),
			zap.Error(ferr))
		return ""
	}
	r.logger.Debug("captured screenshot", zap.String("path", path))
	return path
}

func (r *Recorder) write(ctx context.Context, shot Shooter, path string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("screenshot panicked: %v", p)
		}
	}()
	buf, err := shot.Screenshot(ctx, r.fullPage)
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		return fmt.Errorf("empty screenshot")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// Open returns the named artifact from the directory. Names containing path
// separators are rejected.
func (r *Recorder) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}
	return os.Open(filepath.Join(r.dir, name))
}
