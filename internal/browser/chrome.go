package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures ChromeLoader.
type ChromeOptions struct {
	NavigationTimeout time.Duration
	// ExecPath overrides the Chrome executable; empty means auto-detect.
	ExecPath string
	Guard    *Guard
	Observer Observer
}

// ChromeLoader drives a headless Chrome over the DevTools protocol. Each
// method launches its own browser process and kills it before returning.
type ChromeLoader struct {
	opts      ChromeOptions
	allocOpts []chromedp.ExecAllocatorOption
	logger    *slog.Logger
}

// NewChromeLoader returns a ChromeLoader. No browser is started until the
// first call.
func NewChromeLoader(opts ChromeOptions, logger *slog.Logger) *ChromeLoader {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	return &ChromeLoader{
		opts:      opts,
		allocOpts: allocOpts,
		logger:    logger.With("component", "chrome_loader"),
	}
}

// session starts a browser bound to ctx. The browser is launched here,
// against the session context itself, so that later Runs on derived
// timeout contexts cannot take the process down with them. The returned
// cancel func kills the browser and must be called on every path, including
// when err is non-nil.
func (l *ChromeLoader) session(ctx context.Context) (context.Context, context.CancelFunc, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			l.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	closeSession := func() {
		cancelTab()
		cancelAlloc()
	}

	if err := chromedp.Run(tabCtx); err != nil {
		return tabCtx, closeSession, fmt.Errorf("start browser: %w", err)
	}
	return tabCtx, closeSession, nil
}

// checkTarget runs the guard with the navigation timeout so a slow DNS
// lookup cannot hold the call past it.
func (l *ChromeLoader) checkTarget(ctx context.Context, targetURL string) error {
	ctx, cancel := context.WithTimeout(ctx, l.opts.NavigationTimeout)
	defer cancel()
	return l.opts.Guard.Check(ctx, targetURL)
}

// Load navigates to targetURL, waits for network idle, and captures the
// title and rendered HTML.
func (l *ChromeLoader) Load(ctx context.Context, targetURL string) (p *Page, err error) {
	if err := l.checkTarget(ctx, targetURL); err != nil {
		return nil, err
	}
	defer func() { l.opts.Observer.observe("load", err) }()

	ctx, cancel := context.WithTimeout(ctx, l.opts.NavigationTimeout)
	defer cancel()
	sctx, closeSession, err := l.session(ctx)
	defer closeSession()
	if err != nil {
		return nil, err
	}

	p = &Page{}
	if err := chromedp.Run(sctx, navigateAndWaitIdle(targetURL), capture(p)); err != nil {
		return nil, fmt.Errorf("load %s: %w", targetURL, err)
	}
	l.logger.Debug("page loaded", "url", p.URL, "html_length", len(p.HTML))
	return p, nil
}

// Click loads targetURL and clicks the first element matching selector.
// A click that starts a navigation is followed by a bounded wait for
// network idle; a slow follow-up page does not fail the click.
func (l *ChromeLoader) Click(ctx context.Context, targetURL, selector string) (p *Page, err error) {
	if err := l.checkTarget(ctx, targetURL); err != nil {
		return nil, err
	}
	defer func() { l.opts.Observer.observe("click", err) }()

	ctx, cancel := context.WithTimeout(ctx, l.opts.NavigationTimeout+clickTimeout+postClickIdleTimeout)
	defer cancel()
	sctx, closeSession, err := l.session(ctx)
	defer closeSession()
	if err != nil {
		return nil, err
	}

	navCtx, cancelNav := context.WithTimeout(sctx, l.opts.NavigationTimeout)
	err = chromedp.Run(navCtx, navigateAndWaitIdle(targetURL))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", targetURL, err)
	}

	watcher := watchNetworkIdle(sctx)
	defer watcher.stop()

	clickCtx, cancelClick := context.WithTimeout(sctx, clickTimeout)
	err = chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
	cancelClick()
	if err != nil {
		return nil, fmt.Errorf("click %q: %w", selector, err)
	}

	if err := chromedp.Run(sctx, chromedp.Sleep(scrollSettle)); err != nil {
		return nil, err
	}
	if watcher.navigated() {
		if err := watcher.wait(sctx, postClickIdleTimeout); err != nil {
			l.logger.Debug("continuing without network idle after click", "selector", selector, "error", err)
		}
	}

	p = &Page{}
	if err := chromedp.Run(sctx, capture(p)); err != nil {
		return nil, fmt.Errorf("capture after click: %w", err)
	}
	return p, nil
}

// Scroll loads targetURL and scrolls the window vertically by pixels.
func (l *ChromeLoader) Scroll(ctx context.Context, targetURL string, pixels int) (p *Page, err error) {
	if err := l.checkTarget(ctx, targetURL); err != nil {
		return nil, err
	}
	defer func() { l.opts.Observer.observe("scroll", err) }()

	ctx, cancel := context.WithTimeout(ctx, l.opts.NavigationTimeout+scrollSettle+clickTimeout)
	defer cancel()
	sctx, closeSession, err := l.session(ctx)
	defer closeSession()
	if err != nil {
		return nil, err
	}

	navCtx, cancelNav := context.WithTimeout(sctx, l.opts.NavigationTimeout)
	err = chromedp.Run(navCtx, navigateAndWaitIdle(targetURL))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", targetURL, err)
	}

	p = &Page{}
	err = chromedp.Run(sctx,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil),
		chromedp.Sleep(scrollSettle),
		capture(p),
	)
	if err != nil {
		return nil, fmt.Errorf("scroll %d: %w", pixels, err)
	}
	return p, nil
}

func capture(p *Page) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Location(&p.URL),
		chromedp.Title(&p.Title),
		chromedp.OuterHTML("html", &p.HTML, chromedp.ByQuery),
	}
}

// navigateAndWaitIdle navigates and blocks until the main frame reports the
// networkIdle lifecycle event or ctx ends.
func navigateAndWaitIdle(targetURL string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}

		watcher := watchNetworkIdle(ctx)
		defer watcher.stop()

		if err := chromedp.Navigate(targetURL).Do(ctx); err != nil {
			return err
		}
		return watcher.wait(ctx, 0)
	}
}

// idleWatcher tracks main-frame lifecycle events. networkIdle only counts
// once an init event has been seen, so an idle signal left over from the
// previous document is ignored.
type idleWatcher struct {
	idle    chan struct{}
	once    sync.Once
	started atomic.Bool
	cancel  context.CancelFunc
}

func watchNetworkIdle(ctx context.Context) *idleWatcher {
	lctx, cancel := context.WithCancel(ctx)
	w := &idleWatcher{idle: make(chan struct{}), cancel: cancel}

	var mainFrame string
	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		mainFrame = string(c.Target.TargetID)
	}

	chromedp.ListenTarget(lctx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || (mainFrame != "" && string(e.FrameID) != mainFrame) {
			return
		}
		switch e.Name {
		case "init":
			w.started.Store(true)
		case "networkIdle":
			if w.started.Load() {
				w.once.Do(func() { close(w.idle) })
			}
		}
	})
	return w
}

func (w *idleWatcher) navigated() bool {
	return w.started.Load()
}

// wait blocks until idle, ctx ends, or max elapses. A zero max waits for ctx.
func (w *idleWatcher) wait(ctx context.Context, maxWait time.Duration) error {
	var timeout <-chan time.Time
	if maxWait > 0 {
		t := time.NewTimer(maxWait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-w.idle:
		return nil
	case <-timeout:
		return errNetworkIdleTimeout
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errNetworkIdleTimeout, ctx.Err())
	}
}

func (w *idleWatcher) stop() {
	w.cancel()
}
