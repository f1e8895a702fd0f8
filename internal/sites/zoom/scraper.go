package zoom

import (
	"context"
	"fmt"
	"log/slog"

	"vidscrape/internal/browser"
	"vidscrape/internal/scraper"
)

func init() {
	scraper.Register("zoom", New)
}

// Selectors of the Zoom cloud recording share page.
const (
	PasscodeInputSelector  = "#passcode"
	PasscodeSubmitSelector = "#passcode_btn"
	PlayerSelector         = ".vjs-tech"

	DurationSelector   = ".vjs-duration-display"
	FullScreenSelector = ".vjs-fullscreen-control"
	PlayButtonSelector = ".vjs-big-play-button"
)

// ParamPasscode is the recording passcode, needed for protected shares.
const ParamPasscode = "passcode"

// ZoomScraper records Zoom cloud recordings shared by link.
type ZoomScraper struct {
	passcode string
}

// New creates a Zoom adapter.
func New(params map[string]string) (scraper.SiteAdapter, error) {
	z := &ZoomScraper{}
	for k, v := range params {
		if k != ParamPasscode {
			return nil, fmt.Errorf("unknown zoom param: %s", k)
		}
		z.passcode = v
	}
	return z, nil
}

func (z *ZoomScraper) Name() string { return "zoom" }

// AfterPageLoaded unlocks a protected share with the passcode, then waits
// until the recording player is on the page.
func (z *ZoomScraper) AfterPageLoaded(ctx context.Context, cfg *scraper.ScrapingConfig, page browser.Page, log *slog.Logger) error {
	if z.passcode != "" {
		log.Debug("Entering recording passcode")
		if err := page.WaitForSelector(ctx, PasscodeInputSelector); err != nil {
			return fmt.Errorf("failed to find passcode form: %w", err)
		}
		if err := page.Type(ctx, PasscodeInputSelector, z.passcode); err != nil {
			return fmt.Errorf("failed to type passcode: %w", err)
		}
		if err := page.Click(ctx, PasscodeSubmitSelector); err != nil {
			return fmt.Errorf("failed to submit passcode: %w", err)
		}
	}

	log.Debug("Waiting for the recording player")
	if err := page.WaitForSelector(ctx, PlayerSelector); err != nil {
		return fmt.Errorf("failed to wait for player: %w", err)
	}
	return nil
}

func (z *ZoomScraper) VideoDurationSelector() string { return DurationSelector }
func (z *ZoomScraper) FullScreenSelector() string    { return FullScreenSelector }
func (z *ZoomScraper) PlayButtonSelector() string    { return PlayButtonSelector }

// VideoSelector is the player's media element.
func (z *ZoomScraper) VideoSelector() string { return PlayerSelector }
