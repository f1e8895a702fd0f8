package scraper

import (
	"context"
	"log/slog"
	"time"

	"vidscrape/internal/browser"
)

// SiteAdapter specializes the video scraper for one website.
type SiteAdapter interface {
	// Name identifies the site in logs and metrics.
	Name() string

	// AfterPageLoaded runs once the target page has settled, before anything
	// else touches it. It may log in, dismiss banners, or change cfg (for
	// example set Duration when the page does not display one).
	AfterPageLoaded(ctx context.Context, cfg *ScrapingConfig, page browser.Page, log *slog.Logger) error

	// VideoDurationSelector locates the element whose text is the video length.
	VideoDurationSelector() string
	// FullScreenSelector locates the control that puts the player in fullscreen.
	FullScreenSelector() string
	// PlayButtonSelector locates the control that starts playback.
	PlayButtonSelector() string
}

// DurationParser is implemented by adapters whose player shows the video
// length in a format ParseDurationText does not understand.
type DurationParser interface {
	ParseDuration(text string) (time.Duration, error)
}

// VideoElementLocator is implemented by adapters whose recorded media element
// is not the first <video> of the page.
type VideoElementLocator interface {
	VideoSelector() string
}

// Metrics observes finished scrapes.
type Metrics interface {
	ObserveScrape(site string, err error, elapsed time.Duration, capturedBytes int64)
}
