package browser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Engine starts browser processes. Implementations wrap a concrete automation library.
type Engine interface {
	// Name returns the engine identifier (e.g. "rod", "chromedp").
	Name() string

	// Launch starts a browser process sized and configured per opts.
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is a running browser process owned by exactly one caller.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab. It is scoped to one scrape and must be closed by its owner.
type Page interface {
	// Goto navigates to url and returns once network activity has settled.
	Goto(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string) error
	InnerHTML(ctx context.Context, selector string) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	WaitForTimeout(ctx context.Context, d time.Duration) error

	// Capture starts recording the page's media element and returns the live stream.
	Capture(ctx context.Context, opts CaptureOptions) (Stream, error)
	Close() error
}

// Stream is the live media output of a capture. Read returns io.EOF once
// Destroy has flushed the recorder's final chunk.
type Stream interface {
	io.Reader
	Destroy(ctx context.Context) error
}

// WindowSize is the launched window geometry in pixels.
type WindowSize struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// LaunchOptions is what an engine needs to start a browser.
type LaunchOptions struct {
	ExecutablePath string
	WindowSize     WindowSize
	Headless       bool
	NoSandbox      bool
	ProxyURL       string
	Stealth        bool

	// Timeout bounds navigation and every selector wait on pages of this browser.
	Timeout time.Duration
}

// CaptureOptions is passed verbatim to the in-page MediaRecorder.
type CaptureOptions struct {
	// Selector names the media element whose stream is recorded.
	Selector           string
	Audio              bool
	Video              bool
	MimeType           string
	AudioBitsPerSecond int
	VideoBitsPerSecond int

	// FrameSize is the recorder timeslice: how often a chunk is emitted.
	FrameSize time.Duration
}

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "rod":
		return NewRodEngine(), nil
	case "chromedp":
		return NewChromedpEngine(), nil
	default:
		return nil, fmt.Errorf("unknown browser engine: %s", name)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
