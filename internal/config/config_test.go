package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscrape/internal/browser"
	"vidscrape/internal/scraper"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"VIDSCRAPE_ENGINE", "VIDSCRAPE_BROWSER_BIN", "VIDSCRAPE_PROXY", "VIDSCRAPE_HEADLESS",
		"VIDSCRAPE_NO_SANDBOX", "VIDSCRAPE_STEALTH", "VIDSCRAPE_TIMEOUT", "VIDSCRAPE_INTERVAL",
		"VIDSCRAPE_LOG_FORMAT", "VIDSCRAPE_DEBUG",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "rod", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Browser.NoSandbox)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Zero(t, cfg.RateLimit.Interval)
	assert.Equal(t, "text", cfg.Log.Format)

	opts := cfg.BrowserOptions()
	assert.Nil(t, opts.ExecutablePath)
	assert.Nil(t, opts.ProxyURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIDSCRAPE_ENGINE", "chromedp")
	t.Setenv("VIDSCRAPE_BROWSER_BIN", "/usr/bin/chromium")
	t.Setenv("VIDSCRAPE_HEADLESS", "false")
	t.Setenv("VIDSCRAPE_TIMEOUT", "1m")
	t.Setenv("VIDSCRAPE_INTERVAL", "10s")
	t.Setenv("VIDSCRAPE_DEBUG", "not-a-bool")

	cfg := Load()
	assert.Equal(t, "chromedp", cfg.Browser.Engine)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, time.Minute, cfg.Browser.Timeout)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Interval)
	assert.False(t, cfg.Log.Debug)

	resolved := scraper.ResolveBrowserOptions(cfg.BrowserOptions())
	assert.Equal(t, "/usr/bin/chromium", resolved.ExecutablePath)
	assert.False(t, resolved.Headless)
	assert.Equal(t, time.Minute, resolved.Timeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  windowSize:
    width: 1280
    height: 720
  stealth: true
scraping:
  duration: 45m
  fullScreen: false
  mimeType: video/webm;codecs=vp9
unknown: ignored
`), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	require.NotNil(t, f.Browser.WindowSize)
	assert.Equal(t, browser.WindowSize{Width: 1280, Height: 720}, *f.Browser.WindowSize)
	assert.True(t, *f.Browser.Stealth)
	assert.Equal(t, 45*time.Minute, *f.Scraping.Duration)
	assert.False(t, *f.Scraping.FullScreen)
	assert.Equal(t, "video/webm;codecs=vp9", *f.Scraping.MimeType)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scraping: [1, 2"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestOverlay(t *testing.T) {
	base := scraper.BrowserOptions{Headless: scraper.Ptr(true), Timeout: scraper.Ptr(time.Minute)}
	top := scraper.BrowserOptions{Headless: scraper.Ptr(false)}

	got := OverlayBrowser(base, top)
	assert.False(t, *got.Headless)
	assert.Equal(t, time.Minute, *got.Timeout)

	s := OverlayScraping(
		scraper.ScrapingOptions{Duration: scraper.Ptr(time.Hour), Audio: scraper.Ptr(false)},
		scraper.ScrapingOptions{Duration: scraper.Ptr(time.Minute)},
	)
	assert.Equal(t, time.Minute, *s.Duration)
	assert.False(t, *s.Audio)
}
