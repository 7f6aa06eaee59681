package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/copyleftdev/sablcheck/internal/failure"
	"go.uber.org/zap"
)

// Navigator issues page loads against the target base URL.
type Navigator struct {
	session Session
	base    *url.URL
	timeout time.Duration
	logger  *zap.Logger
}

func NewNavigator(session Session, baseURL string, timeout time.Duration, logger *zap.Logger) (*Navigator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		session: session,
		base:    base,
		timeout: timeout,
		logger:  logger.Named("navigator"),
	}, nil
}

// Resolve turns a scenario target ("/about", "#/admin", or an absolute URL)
// into an absolute URL.
func (n *Navigator) Resolve(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid navigation target %q: %w", target, err)
	}
	return n.base.ResolveReference(ref).String(), nil
}

// Goto navigates to target and waits for state. A zero timeout uses the
// navigator default. Repeated calls with the same target always load a fresh
// document.
func (n *Navigator) Goto(ctx context.Context, target string, state LoadState, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = n.timeout
	}
	if state == "" {
		state = LoadStateLoad
	}
	abs, err := n.Resolve(target)
	if err != nil {
		return failure.Wrap(failure.InvalidStep, err, "navigate")
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err = n.session.Navigate(navCtx, abs, state)
	if err == nil {
		n.logger.Debug("navigated",
			zap.String("url", abs),
			zap.String("state", string(state)),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return failure.Wrap(failure.NavigationTimeout, err, "%s did not reach %s within %s", abs, state, timeout)
	}
	return failure.Wrap(failure.BrowserError, err, "navigate to %s", abs)
}
