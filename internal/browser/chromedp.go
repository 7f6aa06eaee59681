package browser

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/dom"
	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/copyleftdev/sablcheck/internal/poll"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// networkQuiet is how long no request may be in flight before a page counts
// as network-idle.
const networkQuiet = 500 * time.Millisecond

// Compile-time check to ensure ChromeDriver implements the interface
var _ Driver = (*ChromeDriver)(nil)

type ChromeDriver struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	cfg             *config.BrowserConfig
	logger          *zap.Logger
	sem             *semaphore.Weighted
	activeCtxWg     sync.WaitGroup
}

func NewChromeDriver(cfg *config.BrowserConfig, logger *zap.Logger) (*ChromeDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
		chromedp.IgnoreCertErrors,
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecutablePath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	} else {
		opts = append(opts, chromedp.Flag("guest", true))
	}

	allocatorCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	maxSessions := cfg.MaxSessions
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &ChromeDriver{
		allocatorCtx:    allocatorCtx,
		allocatorCancel: cancel,
		cfg:             cfg,
		logger:          logger.Named("chromedp"),
		sem:             semaphore.NewWeighted(int64(maxSessions)),
	}, nil
}

// NewSession starts a dedicated browser for one scenario. It blocks while
// maxSessions sessions are open.
func (d *ChromeDriver) NewSession(ctx context.Context) (Session, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire browser slot: %w", err)
	}
	d.activeCtxWg.Add(1)
	release := func() {
		d.sem.Release(1)
		d.activeCtxWg.Done()
	}

	sugar := d.logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(
		d.allocatorCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	tracker := newNetworkTracker()
	chromedp.ListenTarget(browserCtx, tracker.handle)

	// The first Run starts the browser process and the tab.
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		browserCancel()
		release()
		return nil, failure.Wrap(failure.BrowserError, err, "start browser")
	}

	s := &chromeSession{
		ctx:     browserCtx,
		cancel:  browserCancel,
		release: release,
		net:     tracker,
		slowMo:  d.cfg.SlowMo,
		logger:  d.logger,
	}
	if target := chromedp.FromContext(browserCtx); target != nil && target.Target != nil {
		s.logger = d.logger.With(zap.String("target", target.Target.TargetID.String()))
	}
	return s, nil
}

// Shutdown cancels the allocator and waits for open sessions to close.
func (d *ChromeDriver) Shutdown(ctx context.Context) error {
	d.logger.Info("shutting down browser driver")

	if d.allocatorCancel != nil {
		d.allocatorCancel()
	}

	shutdownComplete := make(chan struct{})
	go func() {
		d.activeCtxWg.Wait()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		d.logger.Info("all browser sessions have finished")
	case <-ctx.Done():
		d.logger.Warn("shutdown timeout reached while waiting for browser sessions")
		return ctx.Err()
	}
	return nil
}

type chromeSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
	once    sync.Once
	net     *networkTracker
	slowMo  time.Duration
	logger  *zap.Logger
}

var _ Session = (*chromeSession)(nil)

// run executes actions on the session's tab under the caller's deadline and
// cancellation. Cancelling a derived context does not close the tab.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, target string, state LoadState) error {
	var current string
	if err := s.run(ctx, dom.LocationAction(&current)); err != nil {
		return err
	}
	// Fragment-only navigations never fire a load event; go through a blank
	// document so every Navigate yields a freshly loaded page.
	if current != "about:blank" && sameDocument(current, target) {
		if err := s.run(ctx, chromedp.Navigate("about:blank")); err != nil {
			return err
		}
	}

	s.net.reset()
	if err := s.run(ctx, chromedp.Navigate(target)); err != nil {
		return err
	}
	if state != LoadStateNetworkIdle {
		return nil
	}

	ok, err := poll.Until(ctx, 50*time.Millisecond, time.Until(deadlineOr(ctx, time.Now().Add(time.Minute))), func(context.Context) (bool, error) {
		return s.net.idleFor() >= networkQuiet, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("network did not settle: %w", context.DeadlineExceeded)
	}
	return nil
}

func (s *chromeSession) Query(ctx context.Context, d locator.Descriptor) ([]locator.Element, error) {
	expr, err := dom.CountExpression(d)
	if err != nil {
		return nil, err
	}
	var n int
	if err := s.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return nil, err
	}
	elems := make([]locator.Element, n)
	for i := range elems {
		elems[i] = &chromeElement{s: s, desc: d, index: i}
	}
	return elems, nil
}

func (s *chromeSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, dom.ScreenshotAction(fullPage, &buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, dom.GetFullHTMLAction(&html)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, dom.LocationAction(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (s *chromeSession) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.release()
	})
	return nil
}

// pause applies the configured slow-motion delay after an interaction.
func (s *chromeSession) pause(ctx context.Context) {
	if s.slowMo <= 0 {
		return
	}
	t := time.NewTimer(s.slowMo)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func sameDocument(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	ua.Fragment, ub.Fragment = "", ""
	ua.RawFragment, ub.RawFragment = "", ""
	return ua.String() == ub.String()
}

func deadlineOr(ctx context.Context, fallback time.Time) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return fallback
}

// networkTracker counts in-flight requests from CDP network events.
type networkTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastIdle time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{
		inflight: make(map[network.RequestID]struct{}),
		lastIdle: time.Now(),
	}
}

func (t *networkTracker) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.start(e.RequestID)
	case *network.EventLoadingFinished:
		t.finish(e.RequestID)
	case *network.EventLoadingFailed:
		t.finish(e.RequestID)
	}
}

func (t *networkTracker) start(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
}

func (t *networkTracker) finish(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	if len(t.inflight) == 0 {
		t.lastIdle = time.Now()
	}
}

func (t *networkTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = make(map[network.RequestID]struct{})
	t.lastIdle = time.Now()
}

// idleFor returns how long no request has been in flight, or zero.
func (t *networkTracker) idleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inflight) > 0 {
		return 0
	}
	return time.Since(t.lastIdle)
}
