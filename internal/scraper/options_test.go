package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vidscrape/internal/browser"
)

func TestResolveScrapingOptionsDefaults(t *testing.T) {
	cfg := ResolveScrapingOptions(ScrapingOptions{})

	assert.Equal(t, ScrapingConfig{
		Duration:                0,
		FullScreen:              true,
		DelayAfterVideoStarted:  3 * time.Second,
		DelayAfterVideoFinished: 7 * time.Second,
		Audio:                   true,
		Video:                   true,
		MimeType:                "video/webm;codecs=vp8,opus",
		AudioBitsPerSecond:      128000,
		VideoBitsPerSecond:      2500000,
		FrameSize:               20 * time.Millisecond,
	}, cfg)
}

func TestResolveScrapingOptionsOverridesOnlyDuration(t *testing.T) {
	cfg := ResolveScrapingOptions(ScrapingOptions{Duration: Ptr(90 * time.Second)})

	want := DefaultScrapingConfig()
	want.Duration = 90 * time.Second
	assert.Equal(t, want, cfg)
}

func TestResolveScrapingOptionsOverrides(t *testing.T) {
	cfg := ResolveScrapingOptions(ScrapingOptions{
		FullScreen:              Ptr(false),
		DelayAfterVideoStarted:  Ptr(time.Duration(0)),
		DelayAfterVideoFinished: Ptr(time.Second),
		Audio:                   Ptr(false),
		MimeType:                Ptr("video/webm;codecs=vp9"),
		VideoBitsPerSecond:      Ptr(5000000),
		Debug:                   Ptr(true),
		DebugScope:              Ptr("lecture"),
		UseGlobalDebug:          Ptr(true),
	})

	assert.False(t, cfg.FullScreen)
	assert.Zero(t, cfg.DelayAfterVideoStarted)
	assert.Equal(t, time.Second, cfg.DelayAfterVideoFinished)
	assert.False(t, cfg.Audio)
	assert.True(t, cfg.Video)
	assert.Equal(t, "video/webm;codecs=vp9", cfg.MimeType)
	assert.Equal(t, DefaultAudioBitsPerSecond, cfg.AudioBitsPerSecond)
	assert.Equal(t, 5000000, cfg.VideoBitsPerSecond)
	require.NotNil(t, cfg.Debug)
	assert.True(t, *cfg.Debug)
	assert.Equal(t, "lecture", cfg.DebugScope)
	assert.True(t, cfg.UseGlobalDebug)
}

func TestResolveBrowserOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := ResolveBrowserOptions(BrowserOptions{})
		assert.Equal(t, BrowserConfig{
			WindowSize: browser.WindowSize{Width: 1920, Height: 1080},
			Headless:   true,
			Timeout:    30 * time.Second,
		}, cfg)
	})

	t.Run("window size merges as a unit", func(t *testing.T) {
		cfg := ResolveBrowserOptions(BrowserOptions{WindowSize: &browser.WindowSize{Width: 1280}})
		assert.Equal(t, browser.WindowSize{Width: 1280, Height: 0}, cfg.WindowSize)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := ResolveBrowserOptions(BrowserOptions{
			ExecutablePath: Ptr("/usr/bin/chromium"),
			Debug:          Ptr(true),
			DebugScope:     Ptr("tum"),
			Headless:       Ptr(false),
		})
		assert.Equal(t, "/usr/bin/chromium", cfg.ExecutablePath)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "tum", cfg.DebugScope)
		assert.False(t, cfg.Headless)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
	})
}

func TestScrapingOptionsIgnoreUnknownFields(t *testing.T) {
	doc := `
duration: 1m30s
fullScreen: false
somethingFromTheFuture: 42
nested:
  unknown: true
`
	var opts ScrapingOptions
	require.NoError(t, yaml.Unmarshal([]byte(doc), &opts))

	cfg := ResolveScrapingOptions(opts)
	assert.Equal(t, 90*time.Second, cfg.Duration)
	assert.False(t, cfg.FullScreen)
	assert.Equal(t, DefaultMimeType, cfg.MimeType)
}
