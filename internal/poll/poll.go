package poll

import (
	"context"
	"time"
)

// Check reports whether the awaited condition holds. An error means the
// condition could not be evaluated this round; polling continues.
type Check func(ctx context.Context) (bool, error)

// Until evaluates check immediately and then every interval until it returns
// true, the timeout elapses or ctx is done. It returns false together with the
// last evaluation error when the window closes without success.
func Until(ctx context.Context, interval, timeout time.Duration, check Check) (bool, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := check(waitCtx)
		if err == nil && ok {
			return true, nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			return false, lastErr
		case <-ticker.C:
		}
	}
}
