package generic

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"vidscrape/internal/browser"
	"vidscrape/internal/scraper"
)

func init() {
	scraper.Register("generic", New)
}

// Default selectors match a Video.js player, the most common HTML5 player skin.
const (
	DefaultDurationSelector   = ".vjs-duration-display"
	DefaultFullScreenSelector = ".vjs-fullscreen-control"
	DefaultPlayButtonSelector = ".vjs-big-play-button"
	DefaultVideoSelector      = "video"
)

// Parameter keys accepted by New.
const (
	ParamDuration   = "duration"
	ParamFullScreen = "fullscreen"
	ParamPlay       = "play"
	ParamVideo      = "video"
	ParamWaitFor    = "wait-for"
)

var knownParams = map[string]bool{
	ParamDuration:   true,
	ParamFullScreen: true,
	ParamPlay:       true,
	ParamVideo:      true,
	ParamWaitFor:    true,
}

// GenericScraper records any page carrying an HTML5 <video> element.
type GenericScraper struct {
	durationSel   string
	fullScreenSel string
	playSel       string
	videoSel      string
	waitFor       string
}

// New creates a generic adapter. Every selector can be replaced through params.
func New(params map[string]string) (scraper.SiteAdapter, error) {
	var unknown []string
	for k := range params {
		if !knownParams[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown generic params: %s", strings.Join(unknown, ", "))
	}

	return &GenericScraper{
		durationSel:   param(params, ParamDuration, DefaultDurationSelector),
		fullScreenSel: param(params, ParamFullScreen, DefaultFullScreenSelector),
		playSel:       param(params, ParamPlay, DefaultPlayButtonSelector),
		videoSel:      param(params, ParamVideo, DefaultVideoSelector),
		waitFor:       params[ParamWaitFor],
	}, nil
}

func param(params map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(params[key]); v != "" {
		return v
	}
	return fallback
}

func (g *GenericScraper) Name() string { return "generic" }

// AfterPageLoaded waits for the wait-for selector when one was given.
func (g *GenericScraper) AfterPageLoaded(ctx context.Context, cfg *scraper.ScrapingConfig, page browser.Page, log *slog.Logger) error {
	if g.waitFor == "" {
		return nil
	}
	log.Debug("waiting for page element", "selector", g.waitFor)
	if err := page.WaitForSelector(ctx, g.waitFor); err != nil {
		return fmt.Errorf("failed to wait for %s: %w", g.waitFor, err)
	}
	return nil
}

func (g *GenericScraper) VideoDurationSelector() string { return g.durationSel }
func (g *GenericScraper) FullScreenSelector() string    { return g.fullScreenSel }
func (g *GenericScraper) PlayButtonSelector() string    { return g.playSel }
func (g *GenericScraper) VideoSelector() string         { return g.videoSel }
