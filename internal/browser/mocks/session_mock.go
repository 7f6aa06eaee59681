package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/locator"
)

// PNG is the payload returned by MockSession.Screenshot.
var PNG = []byte("\x89PNG\r\n\x1a\nmock")

// MockElement is a node in the fake page. Matching follows the same rules as
// the real drivers: case-insensitive substring unless the descriptor is exact.
type MockElement struct {
	Role  string
	Name  string
	Label string
	Text  string
	CSS   string
	Caps  locator.Capability

	// ShowAt and HideAt bound when the element is part of the page.
	ShowAt time.Time
	HideAt time.Time

	OnClick func(s *MockSession)

	Value   string
	Checked bool
	Files   []string
	Clicks  int
}

// MockSession implements browser.Session over an in-memory element list.
type MockSession struct {
	mu sync.Mutex

	Elements []*MockElement
	// Pages replaces Elements on navigation when the URL has a registered suffix.
	Pages map[string][]*MockElement

	HTMLContent   string
	NavigateDelay time.Duration
	NavigateErr   error
	ScreenshotErr error
	QueryErr      error

	Visited     []string
	Screenshots int
	Closed      bool
	current     string
}

var _ browser.Session = (*MockSession)(nil)

func NewMockSession(elements ...*MockElement) *MockSession {
	return &MockSession{
		Elements:    elements,
		Pages:       make(map[string][]*MockElement),
		HTMLContent: "<html><body></body></html>",
		current:     "about:blank",
	}
}

// Add appends elements to the current page.
func (s *MockSession) Add(elements ...*MockElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Elements = append(s.Elements, elements...)
}

// Replace swaps the whole page content, as a client-side route change would.
func (s *MockSession) Replace(elements ...*MockElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Elements = append([]*MockElement(nil), elements...)
}

// SetCaps changes what el currently supports.
func (s *MockSession) SetCaps(el *MockElement, caps locator.Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el.Caps = caps
}

// SetQueryErr makes every Query fail with err until cleared with nil.
func (s *MockSession) SetQueryErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryErr = err
}

// Remove drops every element whose Text or Name contains text.
func (s *MockSession) Remove(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(text)
}

func (s *MockSession) removeLocked(text string) {
	kept := s.Elements[:0]
	for _, el := range s.Elements {
		if strings.Contains(el.Text, text) || strings.Contains(el.Name, text) {
			continue
		}
		kept = append(kept, el)
	}
	s.Elements = kept
}

// Find returns the first element whose label, name or text equals key.
func (s *MockSession) Find(key string) *MockElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, el := range s.Elements {
		if el.Label == key || el.Name == key || el.Text == key {
			return el
		}
	}
	return nil
}

func (s *MockSession) Navigate(ctx context.Context, url string, state browser.LoadState) error {
	if s.NavigateDelay > 0 {
		t := time.NewTimer(s.NavigateDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.Visited = append(s.Visited, url)
	s.current = url
	for suffix, elements := range s.Pages {
		if strings.HasSuffix(url, suffix) {
			s.Elements = append([]*MockElement(nil), elements...)
		}
	}
	return nil
}

func match(actual, expected string, exact bool) bool {
	if exact {
		return strings.Join(strings.Fields(actual), " ") == strings.Join(strings.Fields(expected), " ")
	}
	return strings.Contains(strings.ToLower(actual), strings.ToLower(strings.TrimSpace(expected)))
}

func (el *MockElement) present(now time.Time) bool {
	if !el.ShowAt.IsZero() && now.Before(el.ShowAt) {
		return false
	}
	if !el.HideAt.IsZero() && !now.Before(el.HideAt) {
		return false
	}
	return true
}

func (el *MockElement) matches(d locator.Descriptor) bool {
	switch d.By {
	case locator.ByRole:
		if !strings.EqualFold(el.Role, d.Value) || !el.Caps.Has(locator.Visible) {
			return false
		}
		return d.Name == "" || match(el.Name, d.Name, d.Exact)
	case locator.ByLabel:
		return el.Label != "" && match(el.Label, d.Value, d.Exact)
	case locator.ByText:
		return el.Text != "" && match(el.Text, d.Value, d.Exact)
	case locator.ByCSS:
		return el.CSS == d.Value
	}
	return false
}

func (s *MockSession) Query(ctx context.Context, d locator.Descriptor) ([]locator.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}
	now := time.Now()
	var out []locator.Element
	for _, el := range s.Elements {
		if el.present(now) && el.matches(d) {
			out = append(out, &mockHandle{s: s, el: el})
		}
	}
	return out, nil
}

func (s *MockSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ScreenshotErr != nil {
		return nil, s.ScreenshotErr
	}
	s.Screenshots++
	return PNG, nil
}

func (s *MockSession) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.HTMLContent, nil
}

func (s *MockSession) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

type mockHandle struct {
	s  *MockSession
	el *MockElement
}

func (h *mockHandle) Capabilities(ctx context.Context) (locator.Capability, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.el.Caps, nil
}

func (h *mockHandle) Text(ctx context.Context) (string, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.el.Value != "" {
		return h.el.Value, nil
	}
	return h.el.Text, nil
}

func (h *mockHandle) require(c locator.Capability) error {
	if !h.el.Caps.Has(c) {
		return fmt.Errorf("element %q lacks %s", h.el.Label+h.el.Name+h.el.Text, c)
	}
	return nil
}

func (h *mockHandle) Fill(ctx context.Context, value string) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.require(locator.Fillable); err != nil {
		return err
	}
	h.el.Value = value
	return nil
}

func (h *mockHandle) Click(ctx context.Context) error {
	h.s.mu.Lock()
	if err := h.require(locator.Clickable); err != nil {
		h.s.mu.Unlock()
		return err
	}
	h.el.Clicks++
	onClick := h.el.OnClick
	h.s.mu.Unlock()

	if onClick != nil {
		onClick(h.s)
	}
	return nil
}

func (h *mockHandle) Check(ctx context.Context) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.require(locator.Checkable); err != nil {
		return err
	}
	h.el.Checked = true
	return nil
}

func (h *mockHandle) SetFiles(ctx context.Context, paths []string) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.require(locator.Uploadable); err != nil {
		return err
	}
	h.el.Files = append([]string(nil), paths...)
	return nil
}

func (h *mockHandle) ScrollIntoView(ctx context.Context) error {
	return nil
}

// MockDriver hands out sessions built by NewSessionFunc.
type MockDriver struct {
	mu             sync.Mutex
	NewSessionFunc func() *MockSession
	Sessions       []*MockSession
	NewSessionErr  error
	shutdownCalled bool
}

var _ browser.Driver = (*MockDriver)(nil)

func NewMockDriver(factory func() *MockSession) *MockDriver {
	return &MockDriver{NewSessionFunc: factory}
}

func (d *MockDriver) NewSession(ctx context.Context) (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NewSessionErr != nil {
		return nil, d.NewSessionErr
	}
	if d.NewSessionFunc == nil {
		return nil, errors.New("mock driver has no session factory")
	}
	s := d.NewSessionFunc()
	d.Sessions = append(d.Sessions, s)
	return s, nil
}

func (d *MockDriver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdownCalled = true
	return nil
}

func (d *MockDriver) WasShutdownCalled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdownCalled
}
