package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"vidscrape/internal/scraper"
)

// Config holds the command line tool configuration read from the environment.
type Config struct {
	Browser   BrowserConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// BrowserConfig controls which browser runs and how.
type BrowserConfig struct {
	// Engine selects the automation driver, "rod" or "chromedp".
	Engine string // default: "rod"

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is the proxy URL every page goes through.
	Proxy string

	Headless  bool // default: true
	NoSandbox bool // default: false
	Stealth   bool // default: false

	// Timeout bounds each browser operation.
	Timeout time.Duration // default: 30s
}

// RateLimitConfig spaces consecutive scrapes of one run.
type RateLimitConfig struct {
	// Interval is the minimum time between two scrape starts.
	Interval time.Duration // default: 0, no limit
}

// LogConfig controls structured logging.
type LogConfig struct {
	Format string // "json" or "text"; default: "text"
	Debug  bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:    envOr("VIDSCRAPE_ENGINE", "rod"),
			Bin:       os.Getenv("VIDSCRAPE_BROWSER_BIN"),
			Proxy:     os.Getenv("VIDSCRAPE_PROXY"),
			Headless:  envBoolOr("VIDSCRAPE_HEADLESS", true),
			NoSandbox: envBoolOr("VIDSCRAPE_NO_SANDBOX", false),
			Stealth:   envBoolOr("VIDSCRAPE_STEALTH", false),
			Timeout:   envDurationOr("VIDSCRAPE_TIMEOUT", scraper.DefaultTimeout),
		},
		RateLimit: RateLimitConfig{
			Interval: envDurationOr("VIDSCRAPE_INTERVAL", 0),
		},
		Log: LogConfig{
			Format: envOr("VIDSCRAPE_LOG_FORMAT", "text"),
			Debug:  envBoolOr("VIDSCRAPE_DEBUG", false),
		},
	}
}

// BrowserOptions converts the environment settings to scraper options.
// Unset strings stay nil so they fall back to the scraper defaults.
func (c *Config) BrowserOptions() scraper.BrowserOptions {
	opts := scraper.BrowserOptions{
		Debug:     scraper.Ptr(c.Log.Debug),
		Headless:  scraper.Ptr(c.Browser.Headless),
		NoSandbox: scraper.Ptr(c.Browser.NoSandbox),
		Stealth:   scraper.Ptr(c.Browser.Stealth),
		Timeout:   scraper.Ptr(c.Browser.Timeout),
	}
	if c.Browser.Bin != "" {
		opts.ExecutablePath = scraper.Ptr(c.Browser.Bin)
	}
	if c.Browser.Proxy != "" {
		opts.ProxyURL = scraper.Ptr(c.Browser.Proxy)
	}
	return opts
}

// File is an options document:
//
//	browser:
//	  windowSize: {width: 1280, height: 720}
//	scraping:
//	  duration: 45m
//	  fullScreen: false
type File struct {
	Browser  scraper.BrowserOptions  `yaml:"browser"`
	Scraping scraper.ScrapingOptions `yaml:"scraping"`
}

// LoadFile decodes the options document at path. Unknown keys are ignored.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &f, nil
}

// OverlayBrowser returns base with every field set in top replacing it.
func OverlayBrowser(base, top scraper.BrowserOptions) scraper.BrowserOptions {
	over(&base.ExecutablePath, top.ExecutablePath)
	over(&base.WindowSize, top.WindowSize)
	over(&base.Debug, top.Debug)
	over(&base.DebugScope, top.DebugScope)
	over(&base.Headless, top.Headless)
	over(&base.NoSandbox, top.NoSandbox)
	over(&base.ProxyURL, top.ProxyURL)
	over(&base.Stealth, top.Stealth)
	over(&base.Timeout, top.Timeout)
	return base
}

// OverlayScraping returns base with every field set in top replacing it.
func OverlayScraping(base, top scraper.ScrapingOptions) scraper.ScrapingOptions {
	over(&base.Duration, top.Duration)
	over(&base.FullScreen, top.FullScreen)
	over(&base.DelayAfterVideoStarted, top.DelayAfterVideoStarted)
	over(&base.DelayAfterVideoFinished, top.DelayAfterVideoFinished)
	over(&base.Audio, top.Audio)
	over(&base.Video, top.Video)
	over(&base.MimeType, top.MimeType)
	over(&base.AudioBitsPerSecond, top.AudioBitsPerSecond)
	over(&base.VideoBitsPerSecond, top.VideoBitsPerSecond)
	over(&base.FrameSize, top.FrameSize)
	over(&base.Debug, top.Debug)
	over(&base.DebugScope, top.DebugScope)
	over(&base.UseGlobalDebug, top.UseGlobalDebug)
	return base
}

func over[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
