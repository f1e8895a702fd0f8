package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// networkIdle is how long the page must stay without requests to count as settled.
const networkIdle = 500 * time.Millisecond

// RodEngine launches Chromium through go-rod.
type RodEngine struct{}

// NewRodEngine creates a RodEngine.
func NewRodEngine() *RodEngine {
	return &RodEngine{}
}

func (e *RodEngine) Name() string { return "rod" }

// Launch starts a browser process and connects to it. The process lives
// until Close is called, whatever happens to ctx afterwards.
func (e *RodEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := launcher.New().
		Context(context.WithoutCancel(ctx)).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	if opts.ExecutablePath != "" {
		l = l.Bin(opts.ExecutablePath)
	}
	if opts.ProxyURL != "" {
		l = l.Proxy(opts.ProxyURL)
	}
	if opts.WindowSize.Width > 0 && opts.WindowSize.Height > 0 {
		l = l.Set(flags.Flag("window-size"),
			strconv.Itoa(opts.WindowSize.Width)+","+strconv.Itoa(opts.WindowSize.Height))
	}
	// Playback must start without a user gesture.
	l = l.Set(flags.Flag("autoplay-policy"), "no-user-gesture-required")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	// The window geometry comes from --window-size, not an emulated viewport.
	b = b.NoDefaultDevice()

	return &rodBrowser{
		browser:  b,
		launcher: l,
		stealth:  opts.Stealth,
		timeout:  opts.Timeout,
	}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	stealth  bool
	timeout  time.Duration
}

// NewPage opens a new tab.
func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(context.Background())

	if b.stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to inject stealth script: %w", err)
		}
	}
	return &rodPage{page: page, timeout: b.timeout}, nil
}

// Close closes the browser and cleans up the launcher process.
func (b *rodBrowser) Close() error {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return nil
}

type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

// bound binds the page to ctx and the configured timeout.
func (p *rodPage) bound(ctx context.Context) *rod.Page {
	page := p.page.Context(ctx)
	if p.timeout > 0 {
		page = page.Timeout(p.timeout)
	}
	return page
}

func (p *rodPage) Goto(ctx context.Context, url string) error {
	page := p.bound(ctx)

	// The idle listener must exist before navigation or in-flight requests are missed.
	// Media requests stream for as long as the video plays.
	waitIdle := page.WaitRequestIdle(networkIdle, nil, nil,
		[]proto.NetworkResourceType{proto.NetworkResourceTypeMedia})
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return settle(page.GetContext(), waitIdle)
}

// settle runs wait, which returns silently when ctx ends, and reports ctx's
// error in that case.
func settle(ctx context.Context, wait func()) error {
	wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to wait for network idle: %w", err)
	}
	return nil
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string) error {
	if _, err := p.bound(ctx).Element(selector); err != nil {
		return fmt.Errorf("failed to wait for element '%s': %w", selector, err)
	}
	return nil
}

func (p *rodPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	res, err := p.bound(ctx).Eval(`(s) => {
		const el = document.querySelector(s);
		if (!el) throw new Error('no element matches ' + s);
		return el.innerHTML;
	}`, selector)
	if err != nil {
		return "", fmt.Errorf("failed to read element '%s': %w", selector, err)
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.bound(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Type(ctx context.Context, selector, text string) error {
	el, err := p.bound(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("failed to type into %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

// Capture exposes a Go callback to the page and starts an in-page MediaRecorder feeding it.
func (p *rodPage) Capture(ctx context.Context, opts CaptureOptions) (Stream, error) {
	params := newRecorderParams(opts)
	rec := newRecording()

	release, err := p.page.Expose(params.Binding, func(arg gson.JSON) (interface{}, error) {
		return nil, rec.handle(arg.Str())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expose recorder binding: %w", err)
	}
	rec.release = release
	rec.stop = func(ctx context.Context) error {
		_, err := p.page.Context(ctx).Eval("() => " + params.invocation(stopRecorderJS))
		return err
	}

	if _, err := p.page.Context(ctx).Eval("() => " + params.invocation(startRecorderJS)); err != nil {
		_ = release()
		return nil, fmt.Errorf("failed to start media recorder: %w", err)
	}
	return rec, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
