package locator

import (
	"context"
	"time"

	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/poll"
	"go.uber.org/zap"
)

// Locator resolves descriptors against one session's page.
type Locator struct {
	page     Querier
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func New(page Querier, timeout, interval time.Duration, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		page:     page,
		timeout:  timeout,
		interval: interval,
		logger:   logger.Named("locator"),
	}
}

// WithTimeout returns a copy of l using timeout for Resolve. A non-positive
// timeout keeps the current one.
func (l *Locator) WithTimeout(timeout time.Duration) *Locator {
	if timeout <= 0 {
		return l
	}
	cp := *l
	cp.timeout = timeout
	return &cp
}

func (l *Locator) Timeout() time.Duration {
	return l.timeout
}

// Resolve polls until d matches at least one element. It fails with
// ElementNotFound when nothing matches within the locate timeout and with
// AmbiguousMatch as soon as several elements match a descriptor that expects
// a unique element.
func (l *Locator) Resolve(ctx context.Context, d Descriptor) (Element, error) {
	if err := d.Validate(); err != nil {
		return nil, failure.Wrap(failure.InvalidStep, err, "%s", d)
	}

	var (
		found     []Element
		ambiguous bool
	)
	ok, lastErr := poll.Until(ctx, l.interval, l.timeout, func(ctx context.Context) (bool, error) {
		matches, err := l.page.Query(ctx, d)
		if err != nil {
			return false, err
		}
		if len(matches) > 1 && !d.First {
			found = matches
			ambiguous = true
			return true, nil
		}
		found = matches
		return len(matches) > 0, nil
	})

	if ambiguous {
		return nil, failure.New(failure.AmbiguousMatch, "%s matched %d elements", d, len(found))
	}
	if !ok {
		if ctx.Err() != nil {
			return nil, failure.Wrap(failure.ElementNotFound, ctx.Err(), "%s", d)
		}
		if lastErr != nil {
			l.logger.Debug("query error while locating", zap.Stringer("locator", d), zap.Error(lastErr))
			return nil, failure.Wrap(failure.ElementNotFound, lastErr, "%s after %s", d, l.timeout)
		}
		return nil, failure.New(failure.ElementNotFound, "%s after %s", d, l.timeout)
	}
	l.logger.Debug("resolved", zap.Stringer("locator", d), zap.Int("matches", len(found)))
	return found[0], nil
}

// Count returns the number of current matches without waiting.
func (l *Locator) Count(ctx context.Context, d Descriptor) (int, error) {
	matches, err := l.page.Query(ctx, d)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
