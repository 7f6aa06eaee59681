package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	var calls int32
	ok, err := Until(context.Background(), 10*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	})
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUntil_BecomesTrueBeforeTimeout(t *testing.T) {
	start := time.Now()
	becomesTrue := start.Add(50 * time.Millisecond)
	ok, err := Until(context.Background(), 5*time.Millisecond, 2*time.Second, func(ctx context.Context) (bool, error) {
		return time.Now().After(becomesTrue), nil
	})
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUntil_TimesOutWithLastError(t *testing.T) {
	boom := errors.New("boom")
	start := time.Now()
	ok, err := Until(context.Background(), 5*time.Millisecond, 40*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestUntil_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	ok, _ := Until(ctx, 5*time.Millisecond, 10*time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
}
