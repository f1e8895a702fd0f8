package scraper

import (
	"time"

	"vidscrape/internal/browser"
)

// Defaults applied by the resolvers.
const (
	DefaultWindowWidth             = 1920
	DefaultWindowHeight            = 1080
	DefaultTimeout                 = 30 * time.Second
	DefaultFullScreen              = true
	DefaultDelayAfterVideoStarted  = 3 * time.Second
	DefaultDelayAfterVideoFinished = 7 * time.Second
	DefaultMimeType                = "video/webm;codecs=vp8,opus"
	DefaultAudioBitsPerSecond      = 128000
	DefaultVideoBitsPerSecond      = 2500000
	DefaultFrameSize               = 20 * time.Millisecond
)

// BrowserOptions is a partial browser configuration. Nil fields keep their default.
type BrowserOptions struct {
	ExecutablePath *string             `yaml:"executablePath" json:"executablePath"`
	WindowSize     *browser.WindowSize `yaml:"windowSize" json:"windowSize"`
	Debug          *bool               `yaml:"debug" json:"debug"`
	DebugScope     *string             `yaml:"debugScope" json:"debugScope"`
	Headless       *bool               `yaml:"headless" json:"headless"`
	NoSandbox      *bool               `yaml:"noSandbox" json:"noSandbox"`
	ProxyURL       *string             `yaml:"proxyURL" json:"proxyURL"`
	Stealth        *bool               `yaml:"stealth" json:"stealth"`
	Timeout        *time.Duration      `yaml:"timeout" json:"timeout"`
}

// BrowserConfig is a fully resolved browser configuration.
type BrowserConfig struct {
	ExecutablePath string
	WindowSize     browser.WindowSize
	Debug          bool
	DebugScope     string
	Headless       bool
	NoSandbox      bool
	ProxyURL       string
	Stealth        bool

	// Timeout bounds navigation and every selector wait.
	Timeout time.Duration
}

// launchOptions maps the configuration to what an engine needs.
func (c BrowserConfig) launchOptions() browser.LaunchOptions {
	return browser.LaunchOptions{
		ExecutablePath: c.ExecutablePath,
		WindowSize:     c.WindowSize,
		Headless:       c.Headless,
		NoSandbox:      c.NoSandbox,
		ProxyURL:       c.ProxyURL,
		Stealth:        c.Stealth,
		Timeout:        c.Timeout,
	}
}

// ScrapingOptions is a partial per-scrape configuration. Nil fields keep their default.
type ScrapingOptions struct {
	// Duration fixes the recording length; unset or zero detects it from the page.
	Duration                *time.Duration `yaml:"duration" json:"duration"`
	FullScreen              *bool          `yaml:"fullScreen" json:"fullScreen"`
	DelayAfterVideoStarted  *time.Duration `yaml:"delayAfterVideoStarted" json:"delayAfterVideoStarted"`
	DelayAfterVideoFinished *time.Duration `yaml:"delayAfterVideoFinished" json:"delayAfterVideoFinished"`
	Audio                   *bool          `yaml:"audio" json:"audio"`
	Video                   *bool          `yaml:"video" json:"video"`
	MimeType                *string        `yaml:"mimeType" json:"mimeType"`
	AudioBitsPerSecond      *int           `yaml:"audioBitsPerSecond" json:"audioBitsPerSecond"`
	VideoBitsPerSecond      *int           `yaml:"videoBitsPerSecond" json:"videoBitsPerSecond"`
	FrameSize               *time.Duration `yaml:"frameSize" json:"frameSize"`
	Debug                   *bool          `yaml:"debug" json:"debug"`
	DebugScope              *string        `yaml:"debugScope" json:"debugScope"`
	UseGlobalDebug          *bool          `yaml:"useGlobalDebug" json:"useGlobalDebug"`
}

// ScrapingConfig is a resolved per-scrape configuration. The site adapter's
// AfterPageLoaded hook may change it before the rest of the scrape reads it.
type ScrapingConfig struct {
	// Duration is the nominal record time; zero means detect it from the page.
	Duration                time.Duration
	FullScreen              bool
	DelayAfterVideoStarted  time.Duration
	DelayAfterVideoFinished time.Duration
	Audio                   bool
	Video                   bool
	MimeType                string
	AudioBitsPerSecond      int
	VideoBitsPerSecond      int
	FrameSize               time.Duration

	// Debug overrides the browser-level debug flag when set.
	Debug          *bool
	DebugScope     string
	UseGlobalDebug bool
}

func (c ScrapingConfig) captureOptions(selector string) browser.CaptureOptions {
	return browser.CaptureOptions{
		Selector:           selector,
		Audio:              c.Audio,
		Video:              c.Video,
		MimeType:           c.MimeType,
		AudioBitsPerSecond: c.AudioBitsPerSecond,
		VideoBitsPerSecond: c.VideoBitsPerSecond,
		FrameSize:          c.FrameSize,
	}
}

// DefaultBrowserConfig returns the browser configuration used when nothing is overridden.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		WindowSize: browser.WindowSize{Width: DefaultWindowWidth, Height: DefaultWindowHeight},
		Headless:   true,
		Timeout:    DefaultTimeout,
	}
}

// DefaultScrapingConfig returns the scraping configuration used when nothing is overridden.
func DefaultScrapingConfig() ScrapingConfig {
	return ScrapingConfig{
		FullScreen:              DefaultFullScreen,
		DelayAfterVideoStarted:  DefaultDelayAfterVideoStarted,
		DelayAfterVideoFinished: DefaultDelayAfterVideoFinished,
		Audio:                   true,
		Video:                   true,
		MimeType:                DefaultMimeType,
		AudioBitsPerSecond:      DefaultAudioBitsPerSecond,
		VideoBitsPerSecond:      DefaultVideoBitsPerSecond,
		FrameSize:               DefaultFrameSize,
	}
}

// ResolveBrowserOptions merges p over the defaults. It never fails.
func ResolveBrowserOptions(p BrowserOptions) BrowserConfig {
	c := DefaultBrowserConfig()
	set(&c.ExecutablePath, p.ExecutablePath)
	set(&c.WindowSize, p.WindowSize)
	set(&c.Debug, p.Debug)
	set(&c.DebugScope, p.DebugScope)
	set(&c.Headless, p.Headless)
	set(&c.NoSandbox, p.NoSandbox)
	set(&c.ProxyURL, p.ProxyURL)
	set(&c.Stealth, p.Stealth)
	set(&c.Timeout, p.Timeout)
	return c
}

// ResolveScrapingOptions merges p over the defaults. It never fails.
func ResolveScrapingOptions(p ScrapingOptions) ScrapingConfig {
	c := DefaultScrapingConfig()
	set(&c.Duration, p.Duration)
	set(&c.FullScreen, p.FullScreen)
	set(&c.DelayAfterVideoStarted, p.DelayAfterVideoStarted)
	set(&c.DelayAfterVideoFinished, p.DelayAfterVideoFinished)
	set(&c.Audio, p.Audio)
	set(&c.Video, p.Video)
	set(&c.MimeType, p.MimeType)
	set(&c.AudioBitsPerSecond, p.AudioBitsPerSecond)
	set(&c.VideoBitsPerSecond, p.VideoBitsPerSecond)
	set(&c.FrameSize, p.FrameSize)
	set(&c.DebugScope, p.DebugScope)
	set(&c.UseGlobalDebug, p.UseGlobalDebug)
	if p.Debug != nil {
		c.Debug = Ptr(*p.Debug)
	}
	return c
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Ptr returns a pointer to v, for filling partial options.
func Ptr[T any](v T) *T {
	return &v
}
