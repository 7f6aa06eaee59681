package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/dom"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var _ Driver = (*PlaywrightDriver)(nil)

// PlaywrightDriver runs sessions as isolated browser contexts of one
// Chromium instance started through playwright-go.
type PlaywrightDriver struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	cfg         *config.BrowserConfig
	logger      *zap.Logger
	sem         *semaphore.Weighted
	activeCtxWg sync.WaitGroup
}

func NewPlaywrightDriver(cfg *config.BrowserConfig, logger *zap.Logger) (*PlaywrightDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("playwright")

	pw, err := playwright.Run()
	if err != nil {
		logger.Info("playwright driver not ready, installing", zap.Error(err))
		if err := playwright.Install(); err != nil {
			return nil, fmt.Errorf("could not install playwright driver: %w", err)
		}
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright after install: %w", err)
		}
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo.Milliseconds())),
	}
	if cfg.ExecutablePath != "" {
		opts.ExecutablePath = playwright.String(cfg.ExecutablePath)
	}
	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	maxSessions := cfg.MaxSessions
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &PlaywrightDriver{
		pw:      pw,
		browser: browser,
		cfg:     cfg,
		logger:  logger,
		sem:     semaphore.NewWeighted(int64(maxSessions)),
	}, nil
}

func (d *PlaywrightDriver) NewSession(ctx context.Context) (Session, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire browser slot: %w", err)
	}
	d.activeCtxWg.Add(1)
	release := func() {
		d.sem.Release(1)
		d.activeCtxWg.Done()
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if d.cfg.WindowWidth > 0 && d.cfg.WindowHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: d.cfg.WindowWidth, Height: d.cfg.WindowHeight}
	}
	bctx, err := d.browser.NewContext(ctxOpts)
	if err != nil {
		release()
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		release()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return &playwrightSession{bctx: bctx, page: page, release: release, logger: d.logger}, nil
}

func (d *PlaywrightDriver) Shutdown(ctx context.Context) error {
	d.logger.Info("shutting down browser driver")

	done := make(chan struct{})
	go func() {
		d.activeCtxWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("shutdown timeout reached while waiting for browser sessions")
	}

	var errs []error
	if err := d.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

type playwrightSession struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	release func()
	once    sync.Once
	logger  *zap.Logger
}

var _ Session = (*playwrightSession)(nil)

func (s *playwrightSession) Navigate(ctx context.Context, target string, state LoadState) error {
	_, err := s.page.Goto(target, playwright.PageGotoOptions{
		Timeout:   timeoutMillis(ctx),
		WaitUntil: waitUntil(state),
	})
	return translate(err)
}

func waitUntil(state LoadState) *playwright.WaitUntilState {
	switch state {
	case LoadStateNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	case LoadStateDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	default:
		return playwright.WaitUntilStateLoad
	}
}

func (s *playwrightSession) locatorFor(d locator.Descriptor) playwright.Locator {
	exact := playwright.Bool(d.Exact)
	switch d.By {
	case locator.ByRole:
		opts := playwright.PageGetByRoleOptions{Exact: exact}
		if d.Name != "" {
			opts.Name = d.Name
		}
		return s.page.GetByRole(playwright.AriaRole(d.Value), opts)
	case locator.ByLabel:
		return s.page.GetByLabel(d.Value, playwright.PageGetByLabelOptions{Exact: exact})
	case locator.ByText:
		return s.page.GetByText(d.Value, playwright.PageGetByTextOptions{Exact: exact})
	default:
		return s.page.Locator(d.Value)
	}
}

func (s *playwrightSession) Query(ctx context.Context, d locator.Descriptor) ([]locator.Element, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	loc := s.locatorFor(d)
	n, err := loc.Count()
	if err != nil {
		return nil, translate(err)
	}
	elems := make([]locator.Element, n)
	for i := range elems {
		elems[i] = &playwrightElement{loc: loc.Nth(i), desc: d}
	}
	return elems, nil
}

func (s *playwrightSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	buf, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  timeoutMillis(ctx),
	})
	return buf, translate(err)
}

func (s *playwrightSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Content()
	return html, translate(err)
}

func (s *playwrightSession) URL(ctx context.Context) (string, error) {
	return s.page.URL(), nil
}

func (s *playwrightSession) Close() error {
	var err error
	s.once.Do(func() {
		defer s.release()
		if cerr := s.page.Close(); cerr != nil {
			err = cerr
		}
		if cerr := s.bctx.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

type playwrightElement struct {
	loc  playwright.Locator
	desc locator.Descriptor
}

var _ locator.Element = (*playwrightElement)(nil)

func (e *playwrightElement) probe(ctx context.Context) (dom.Probe, error) {
	var p dom.Probe
	raw, err := e.loc.Evaluate(dom.ProbeArrow, nil, playwright.LocatorEvaluateOptions{Timeout: timeoutMillis(ctx)})
	if err != nil {
		return p, translate(err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(b, &p)
	return p, err
}

func (e *playwrightElement) Capabilities(ctx context.Context) (locator.Capability, error) {
	p, err := e.probe(ctx)
	if err != nil {
		return locator.None, err
	}
	return p.Capabilities(), nil
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	raw, err := e.loc.Evaluate(`el => (`+dom.TextFunction+`).call(el)`, nil, playwright.LocatorEvaluateOptions{Timeout: timeoutMillis(ctx)})
	if err != nil {
		return "", translate(err)
	}
	text, _ := raw.(string)
	return text, nil
}

func (e *playwrightElement) Fill(ctx context.Context, value string) error {
	return translate(e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: timeoutMillis(ctx)}))
}

func (e *playwrightElement) Click(ctx context.Context) error {
	return translate(e.loc.Click(playwright.LocatorClickOptions{Timeout: timeoutMillis(ctx)}))
}

func (e *playwrightElement) Check(ctx context.Context) error {
	return translate(e.loc.Check(playwright.LocatorCheckOptions{Timeout: timeoutMillis(ctx)}))
}

func (e *playwrightElement) SetFiles(ctx context.Context, paths []string) error {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve upload path %q: %w", p, err)
		}
		abs[i] = a
	}
	return translate(e.loc.SetInputFiles(abs, playwright.LocatorSetInputFilesOptions{Timeout: timeoutMillis(ctx)}))
}

func (e *playwrightElement) ScrollIntoView(ctx context.Context) error {
	return translate(e.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: timeoutMillis(ctx)}))
}

// timeoutMillis converts ctx's deadline into playwright's millisecond timeout.
// Without a deadline the page default applies.
func timeoutMillis(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// translate maps playwright timeouts onto context.DeadlineExceeded so callers
// classify them the same way for both drivers.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
