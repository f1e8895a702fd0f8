// Package browsertest provides a scripted in-memory browser engine for tests.
package browsertest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"vidscrape/internal/browser"
)

// Operation names recorded by the fake engine.
const (
	OpLaunch          = "launch"
	OpCloseBrowser    = "closeBrowser"
	OpNewPage         = "newPage"
	OpGoto            = "goto"
	OpWaitForSelector = "waitForSelector"
	OpInnerHTML       = "innerHTML"
	OpClick           = "click"
	OpType            = "type"
	OpWait            = "wait"
	OpCapture         = "capture"
	OpDestroy         = "destroy"
	OpClosePage       = "closePage"
)

// Call is one recorded engine call.
type Call struct {
	Op       string
	Arg      string
	Duration time.Duration
}

func (c Call) String() string {
	switch {
	case c.Op == OpWait:
		return fmt.Sprintf("%s %s", c.Op, c.Duration)
	case c.Arg != "":
		return c.Op + " " + c.Arg
	default:
		return c.Op
	}
}

// Engine is a fake browser.Engine. Configure its fields before use.
type Engine struct {
	// Elements maps selectors to their inner HTML. Selectors not present are never found.
	Elements map[string]string

	// Errors fails the named operation with the given error.
	Errors map[string]error

	// WaitErrors fails waits of the given length with the given error.
	WaitErrors map[time.Duration]error

	// Media is what every capture stream yields.
	Media []byte

	mu            sync.Mutex
	calls         []Call
	launchOptions []browser.LaunchOptions
	captures      []browser.CaptureOptions
	typed         map[string]string
}

// New creates a fake engine whose pages contain elements.
func New(elements map[string]string) *Engine {
	return &Engine{Elements: elements, Errors: map[string]error{}}
}

func (e *Engine) Name() string { return "fake" }

func (e *Engine) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	e.mu.Lock()
	e.launchOptions = append(e.launchOptions, opts)
	e.mu.Unlock()
	if err := e.record(Call{Op: OpLaunch}); err != nil {
		return nil, err
	}
	return &fakeBrowser{engine: e}, nil
}

// Page returns a page of the fake engine without recording a launch, for
// exercising site hooks directly.
func (e *Engine) Page() browser.Page {
	return &fakePage{engine: e}
}

// Calls returns the recorded calls in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// CallStrings returns the recorded calls rendered as strings.
func (e *Engine) CallStrings() []string {
	calls := e.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how many times op was called.
func (e *Engine) Count(op string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LaunchOptions returns the options of every launch.
func (e *Engine) LaunchOptions() []browser.LaunchOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]browser.LaunchOptions(nil), e.launchOptions...)
}

// Typed returns the last text typed into selector.
func (e *Engine) Typed(selector string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typed[selector]
}

// CaptureOptions returns the options of every capture.
func (e *Engine) CaptureOptions() []browser.CaptureOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]browser.CaptureOptions(nil), e.captures...)
}

func (e *Engine) record(c Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
	if err, ok := e.Errors[c.Op]; ok {
		return err
	}
	return nil
}

type fakeBrowser struct {
	engine *Engine
}

func (b *fakeBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	if err := b.engine.record(Call{Op: OpNewPage}); err != nil {
		return nil, err
	}
	return &fakePage{engine: b.engine}, nil
}

func (b *fakeBrowser) Close() error {
	return b.engine.record(Call{Op: OpCloseBrowser})
}

type fakePage struct {
	engine *Engine
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	return p.engine.record(Call{Op: OpGoto, Arg: url})
}

func (p *fakePage) lookup(selector string) (string, error) {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	html, ok := p.engine.Elements[selector]
	if !ok {
		return "", fmt.Errorf("element %q not found", selector)
	}
	return html, nil
}

func (p *fakePage) WaitForSelector(ctx context.Context, selector string) error {
	if err := p.engine.record(Call{Op: OpWaitForSelector, Arg: selector}); err != nil {
		return err
	}
	_, err := p.lookup(selector)
	return err
}

func (p *fakePage) InnerHTML(ctx context.Context, selector string) (string, error) {
	if err := p.engine.record(Call{Op: OpInnerHTML, Arg: selector}); err != nil {
		return "", err
	}
	return p.lookup(selector)
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	if err := p.engine.record(Call{Op: OpClick, Arg: selector}); err != nil {
		return err
	}
	_, err := p.lookup(selector)
	return err
}

func (p *fakePage) Type(ctx context.Context, selector, text string) error {
	if err := p.engine.record(Call{Op: OpType, Arg: selector}); err != nil {
		return err
	}
	if _, err := p.lookup(selector); err != nil {
		return err
	}
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	if p.engine.typed == nil {
		p.engine.typed = map[string]string{}
	}
	p.engine.typed[selector] = text
	return nil
}

// WaitForTimeout records the wait without sleeping.
func (p *fakePage) WaitForTimeout(ctx context.Context, d time.Duration) error {
	if err := p.engine.record(Call{Op: OpWait, Duration: d}); err != nil {
		return err
	}
	p.engine.mu.Lock()
	err, ok := p.engine.WaitErrors[d]
	p.engine.mu.Unlock()
	if ok {
		return err
	}
	return ctx.Err()
}

func (p *fakePage) Capture(ctx context.Context, opts browser.CaptureOptions) (browser.Stream, error) {
	p.engine.mu.Lock()
	p.engine.captures = append(p.engine.captures, opts)
	media := append([]byte(nil), p.engine.Media...)
	p.engine.mu.Unlock()
	if err := p.engine.record(Call{Op: OpCapture, Arg: opts.Selector}); err != nil {
		return nil, err
	}
	return &fakeStream{Reader: bytes.NewReader(media), engine: p.engine}, nil
}

func (p *fakePage) Close() error {
	return p.engine.record(Call{Op: OpClosePage})
}

type fakeStream struct {
	*bytes.Reader
	engine *Engine
}

func (s *fakeStream) Destroy(ctx context.Context) error {
	return s.engine.record(Call{Op: OpDestroy})
}
