package assertion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/copyleftdev/sablcheck/internal/poll"
	"go.uber.org/zap"
)

// Condition is a page predicate evaluated by the Engine.
type Condition struct {
	desc string
	eval func(ctx context.Context, page locator.Querier) (bool, error)
}

func (c Condition) String() string {
	return c.desc
}

// Visible holds when at least one match of d is rendered.
func Visible(d locator.Descriptor) Condition {
	return Condition{
		desc: fmt.Sprintf("%s is visible", d),
		eval: func(ctx context.Context, page locator.Querier) (bool, error) {
			return anyVisible(ctx, page, d)
		},
	}
}

// Hidden holds when no match of d is rendered, including when nothing matches.
func Hidden(d locator.Descriptor) Condition {
	return Condition{
		desc: fmt.Sprintf("%s is hidden", d),
		eval: func(ctx context.Context, page locator.Querier) (bool, error) {
			visible, err := anyVisible(ctx, page, d)
			return !visible, err
		},
	}
}

func TextVisible(text string) Condition {
	return Visible(locator.Text(text))
}

func TextHidden(text string) Condition {
	return Hidden(locator.Text(text))
}

// TextEquals holds when the first match of d renders want, ignoring
// surrounding and repeated whitespace.
func TextEquals(d locator.Descriptor, want string) Condition {
	return Condition{
		desc: fmt.Sprintf("%s has text %q", d, want),
		eval: func(ctx context.Context, page locator.Querier) (bool, error) {
			matches, err := page.Query(ctx, d)
			if err != nil || len(matches) == 0 {
				return false, err
			}
			got, err := matches[0].Text(ctx)
			if err != nil {
				return false, err
			}
			return normalize(got) == normalize(want), nil
		},
	}
}

func anyVisible(ctx context.Context, page locator.Querier, d locator.Descriptor) (bool, error) {
	matches, err := page.Query(ctx, d)
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		caps, err := m.Capabilities(ctx)
		if err != nil {
			return false, err
		}
		if caps.Has(locator.Visible) {
			return true, nil
		}
	}
	return false, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Engine polls conditions against one session's page.
type Engine struct {
	page     locator.Querier
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewEngine(page locator.Querier, interval, timeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		page:     page,
		interval: interval,
		timeout:  timeout,
		logger:   logger.Named("assertion"),
	}
}

// WaitFor reports whether cond holds within timeout. It returns false on
// timeout or cancellation and treats evaluation errors as "not yet". A
// non-positive timeout uses the engine default.
func (e *Engine) WaitFor(ctx context.Context, cond Condition, timeout time.Duration) (ok bool) {
	if timeout <= 0 {
		timeout = e.timeout
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("condition panicked", zap.Stringer("condition", cond), zap.Any("panic", r))
			ok = false
		}
	}()

	ok, lastErr := poll.Until(ctx, e.interval, timeout, func(ctx context.Context) (bool, error) {
		return cond.eval(ctx, e.page)
	})
	fields := []zap.Field{
		zap.Stringer("condition", cond),
		zap.Bool("ok", ok),
		zap.Duration("elapsed", time.Since(start)),
	}
	if !ok && lastErr != nil {
		fields = append(fields, zap.NamedError("last_error", lastErr))
	}
	e.logger.Debug("wait finished", fields...)
	return ok
}
