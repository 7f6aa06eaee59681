package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"go.uber.org/zap"
)

// LoadState is the readiness a navigation waits for.
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

func ParseLoadState(s string) (LoadState, error) {
	switch LoadState(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoadStateLoad:
		return LoadStateLoad, nil
	case LoadStateDOMContentLoaded:
		return LoadStateDOMContentLoaded, nil
	case LoadStateNetworkIdle, "network-idle":
		return LoadStateNetworkIdle, nil
	}
	return "", fmt.Errorf("unknown load state %q", s)
}

// Session is one scenario's browser context. It is owned by a single
// scenario run and must not be shared.
type Session interface {
	locator.Querier

	// Navigate loads url and returns once state is reached or ctx is done.
	Navigate(ctx context.Context, url string, state LoadState) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Close() error
}

// Driver hands out isolated sessions backed by a browser engine.
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
	Shutdown(ctx context.Context) error
}

// NewDriver builds the driver selected by cfg.Driver.
func NewDriver(cfg *config.BrowserConfig, logger *zap.Logger) (Driver, error) {
	switch cfg.Driver {
	case "", "chromedp":
		return NewChromeDriver(cfg, logger)
	case "playwright":
		return NewPlaywrightDriver(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
}
