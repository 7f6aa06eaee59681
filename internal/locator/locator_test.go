package locator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser/mocks"
	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interactive = locator.Visible | locator.Clickable

func newLocator(page locator.Querier, timeout time.Duration) *locator.Locator {
	return locator.New(page, timeout, 10*time.Millisecond, nil)
}

func TestResolveFindsUniqueElement(t *testing.T) {
	page := mocks.NewMockSession(
		&mocks.MockElement{Role: "button", Name: "Add Winner", Caps: interactive},
		&mocks.MockElement{Role: "button", Name: "Login", Caps: interactive},
	)
	l := newLocator(page, 200*time.Millisecond)

	el, err := l.Resolve(context.Background(), locator.Role("button", "Login"))
	require.NoError(t, err)

	text, err := el.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", text)
	require.NoError(t, el.Click(context.Background()))
	assert.Equal(t, 1, page.Find("Login").Clicks)
	assert.Equal(t, 0, page.Find("Add Winner").Clicks)
}

func TestResolveWaitsForLateElement(t *testing.T) {
	page := mocks.NewMockSession(&mocks.MockElement{
		Label:  "Email",
		Caps:   locator.Visible | locator.Fillable,
		ShowAt: time.Now().Add(50 * time.Millisecond),
	})
	l := newLocator(page, time.Second)

	start := time.Now()
	_, err := l.Resolve(context.Background(), locator.Label("Email"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestResolveElementNotFound(t *testing.T) {
	page := mocks.NewMockSession()
	l := newLocator(page, 60*time.Millisecond)

	_, err := l.Resolve(context.Background(), locator.Text("Hall of Fame"))
	require.Error(t, err)
	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))
	assert.Contains(t, err.Error(), "text=Hall of Fame")
}

func TestResolveAmbiguousMatch(t *testing.T) {
	page := mocks.NewMockSession(
		&mocks.MockElement{Role: "button", Name: "Edit", Caps: interactive},
		&mocks.MockElement{Role: "button", Name: "Edit", Caps: interactive},
	)
	l := newLocator(page, time.Second)

	start := time.Now()
	_, err := l.Resolve(context.Background(), locator.Role("button", "Edit"))
	require.Error(t, err)
	assert.Equal(t, failure.AmbiguousMatch, failure.KindOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "ambiguity should not wait for the timeout")

	el, err := l.Resolve(context.Background(), locator.Role("button", "Edit").FirstMatch())
	require.NoError(t, err)
	require.NoError(t, el.Click(context.Background()))
	assert.Equal(t, 1, page.Elements[0].Clicks)
	assert.Equal(t, 0, page.Elements[1].Clicks)
}

func TestResolveExactMatch(t *testing.T) {
	page := mocks.NewMockSession(
		&mocks.MockElement{Role: "button", Name: "Update", Caps: interactive},
		&mocks.MockElement{Role: "button", Name: "Update Winner", Caps: interactive},
	)
	l := newLocator(page, 100*time.Millisecond)

	_, err := l.Resolve(context.Background(), locator.Role("button", "update"))
	assert.Equal(t, failure.AmbiguousMatch, failure.KindOf(err))

	el, err := l.Resolve(context.Background(), locator.Role("button", "Update").ExactMatch())
	require.NoError(t, err)
	require.NoError(t, el.Click(context.Background()))
	assert.Equal(t, 1, page.Elements[0].Clicks)
}

func TestResolveSkipsHiddenRoles(t *testing.T) {
	page := mocks.NewMockSession(&mocks.MockElement{Role: "tab", Name: "Manage Winners", Caps: locator.None})
	l := newLocator(page, 50*time.Millisecond)

	_, err := l.Resolve(context.Background(), locator.Role("tab", "Manage Winners"))
	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))
}

func TestResolveInvalidDescriptor(t *testing.T) {
	l := newLocator(mocks.NewMockSession(), time.Second)

	_, err := l.Resolve(context.Background(), locator.Descriptor{By: locator.ByLabel, Value: "Photo", Name: "x"})
	assert.Equal(t, failure.InvalidStep, failure.KindOf(err))

	_, err = l.Resolve(context.Background(), locator.Descriptor{By: "xpath", Value: "//div"})
	assert.Equal(t, failure.InvalidStep, failure.KindOf(err))
}

func TestResolveKeepsQueryError(t *testing.T) {
	page := mocks.NewMockSession()
	page.QueryErr = errors.New("target closed")
	l := newLocator(page, 50*time.Millisecond)

	_, err := l.Resolve(context.Background(), locator.CSS("nav"))
	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))
	assert.ErrorContains(t, err, "target closed")
}

func TestResolveHonoursCancellation(t *testing.T) {
	l := newLocator(mocks.NewMockSession(), 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Resolve(ctx, locator.CSS(".activity-card"))
	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCount(t *testing.T) {
	page := mocks.NewMockSession(
		&mocks.MockElement{CSS: ".activity-card", Caps: locator.Visible},
		&mocks.MockElement{CSS: ".activity-card", Caps: locator.Visible},
	)
	n, err := newLocator(page, time.Second).Count(context.Background(), locator.CSS(".activity-card"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
