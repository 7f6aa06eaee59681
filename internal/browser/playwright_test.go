package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	err := translate(fmt.Errorf("locator.click: %w", playwright.ErrTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.ErrorContains(t, err, "locator.click")

	other := errors.New("element is not attached to the DOM")
	err = translate(other)
	assert.Same(t, other, err)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTimeoutMillis(t *testing.T) {
	assert.Nil(t, timeoutMillis(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms := timeoutMillis(ctx)
	require.NotNil(t, ms)
	assert.Greater(t, *ms, 1000.0)
	assert.LessOrEqual(t, *ms, 2000.0)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	ms = timeoutMillis(expired)
	require.NotNil(t, ms)
	assert.Equal(t, 1.0, *ms)
}

func TestWaitUntil(t *testing.T) {
	assert.Equal(t, playwright.WaitUntilStateLoad, waitUntil(LoadStateLoad))
	assert.Equal(t, playwright.WaitUntilStateLoad, waitUntil(""))
	assert.Equal(t, playwright.WaitUntilStateDomcontentloaded, waitUntil(LoadStateDOMContentLoaded))
	assert.Equal(t, playwright.WaitUntilStateNetworkidle, waitUntil(LoadStateNetworkIdle))
}
