package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromedpEngine launches Chromium through chromedp.
type ChromedpEngine struct{}

// NewChromedpEngine creates a ChromedpEngine.
func NewChromedpEngine() *ChromedpEngine {
	return &ChromedpEngine{}
}

func (e *ChromedpEngine) Name() string { return "chromedp" }

// Launch starts a browser process. The process lives until Close is called;
// ctx only bounds the start-up.
func (e *ChromedpEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if opts.ExecutablePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecutablePath))
	}
	if opts.WindowSize.Width > 0 && opts.WindowSize.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowSize.Width, opts.WindowSize.Height))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch browser: %w", ctx.Err())
	}

	return &chromedpBrowser{
		ctx:         browserCtx,
		cancel:      cancelBrowser,
		cancelAlloc: cancelAlloc,
		timeout:     opts.Timeout,
	}, nil
}

type chromedpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
}

// NewPage opens a new tab in the running browser.
func (b *chromedpBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &chromedpPage{ctx: tabCtx, cancel: cancel, timeout: b.timeout}, nil
}

// Close terminates the browser process.
func (b *chromedpBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancelAlloc()
	return err
}

type chromedpPage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// run executes actions on the tab, bounded by both ctx and the page timeout.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// bind derives a tab context that is also cancelled when ctx is done.
func (p *chromedpPage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, p.timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) Goto(ctx context.Context, url string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var tree *page.FrameTree
	if err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	})); err != nil {
		return fmt.Errorf("failed to read frame tree: %w", err)
	}

	watcher := newIdleWatcher(tree.Frame.ID)
	listenCtx, stopListening := context.WithCancel(runCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok {
			watcher.observe(e)
		}
	})

	var loaderID cdp.LoaderID
	if err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, id, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}
		loaderID = id
		return nil
	})); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	watcher.expect(loaderID)

	select {
	case <-watcher.settled:
		return nil
	case <-runCtx.Done():
		return fmt.Errorf("failed to wait for network idle: %w", runCtx.Err())
	}
}

// idleWatcher signals settled once the main frame's document of the expected
// loader has fired networkIdle. Child frames and earlier documents are ignored.
// Events may arrive before the loader is known.
type idleWatcher struct {
	frameID cdp.FrameID
	settled chan struct{}

	mu       sync.Mutex
	loaderID cdp.LoaderID
	expected bool
	idle     map[cdp.LoaderID]bool
}

func newIdleWatcher(frameID cdp.FrameID) *idleWatcher {
	return &idleWatcher{
		frameID: frameID,
		settled: make(chan struct{}, 1),
		idle:    map[cdp.LoaderID]bool{},
	}
}

func (w *idleWatcher) observe(e *page.EventLifecycleEvent) {
	if e.FrameID != w.frameID || e.Name != "networkIdle" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.idle[e.LoaderID] = true
	w.check()
}

// expect sets the loader of the navigation. An empty loader means a
// same-document navigation, which has nothing to wait for.
func (w *idleWatcher) expect(loaderID cdp.LoaderID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaderID = loaderID
	w.expected = true
	w.check()
}

// check must be called with mu held.
func (w *idleWatcher) check() {
	if !w.expected || (w.loaderID != "" && !w.idle[w.loaderID]) {
		return
	}
	select {
	case w.settled <- struct{}{}:
	default:
	}
}

func (p *chromedpPage) WaitForSelector(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to wait for element '%s': %w", selector, err)
	}
	return nil
}

func (p *chromedpPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.InnerHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read element '%s': %w", selector, err)
	}
	return html, nil
}

func (p *chromedpPage) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

func (p *chromedpPage) Type(ctx context.Context, selector, text string) error {
	if err := p.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to type into %q: %w", selector, err)
	}
	return nil
}

func (p *chromedpPage) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

// Capture registers a runtime binding and starts an in-page MediaRecorder feeding it.
func (p *chromedpPage) Capture(ctx context.Context, opts CaptureOptions) (Stream, error) {
	params := newRecorderParams(opts)
	rec := newRecording()

	listenCtx, stopListening := context.WithCancel(p.ctx)
	// Binding events arrive in call order; handle may block on the reader, so
	// chunks are forwarded through a queue instead of the event loop.
	queue := make(chan string, 64)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == params.Binding {
			select {
			case queue <- e.Payload:
			case <-listenCtx.Done():
			}
		}
	})
	go func() {
		for {
			select {
			case payload := <-queue:
				if err := rec.handle(payload); err != nil {
					rec.finish(err)
				}
			case <-listenCtx.Done():
				return
			}
		}
	}()

	rec.release = func() error {
		stopListening()
		return chromedp.Run(p.ctx, runtime.RemoveBinding(params.Binding))
	}
	rec.stop = func(ctx context.Context) error {
		var ok bool
		return p.run(ctx, chromedp.Evaluate(params.invocation(stopRecorderJS), &ok))
	}

	var ok bool
	if err := p.run(ctx,
		runtime.AddBinding(params.Binding),
		chromedp.Evaluate(params.invocation(startRecorderJS), &ok, func(e *runtime.EvaluateParams) *runtime.EvaluateParams {
			return e.WithAwaitPromise(true)
		}),
	); err != nil {
		_ = rec.release()
		return nil, fmt.Errorf("failed to start media recorder: %w", err)
	}
	return rec, nil
}

func (p *chromedpPage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}
