package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vidscrape/internal/browser"
	"vidscrape/internal/logger"
)

type state int

const (
	stateUnlaunched state = iota
	stateLaunched
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateLaunched:
		return "launched"
	case stateClosed:
		return "closed"
	default:
		return "unlaunched"
	}
}

// VideoScraper records a video played in a browser page to a file.
// Scrapes on one instance run one at a time; concurrent calls queue.
type VideoScraper struct {
	adapter SiteAdapter
	engine  browser.Engine
	metrics Metrics

	videoDurationSelector string
	fullScreenSelector    string
	playButtonSelector    string

	// createFile opens the destination of a recording.
	createFile func(path string) (io.WriteCloser, error)

	// scrapeMu serializes Scrape calls.
	scrapeMu sync.Mutex

	mu      sync.Mutex
	state   state
	browser browser.Browser
	options BrowserConfig
	logger  *slog.Logger
}

// New creates a VideoScraper for the site handled by adapter. A nil engine selects rod.
func New(adapter SiteAdapter, engine browser.Engine, opts BrowserOptions) (*VideoScraper, error) {
	if adapter == nil {
		return nil, NewError("a site adapter is required", nil)
	}
	if engine == nil {
		engine = browser.NewRodEngine()
	}

	s := &VideoScraper{
		adapter: adapter,
		engine:  engine,
		createFile: func(path string) (io.WriteCloser, error) {
			return os.Create(path)
		},
		videoDurationSelector: adapter.VideoDurationSelector(),
		fullScreenSelector:    adapter.FullScreenSelector(),
		playButtonSelector:    adapter.PlayButtonSelector(),
	}

	for name, sel := range map[string]string{
		"video duration": s.videoDurationSelector,
		"fullscreen":     s.fullScreenSelector,
		"play button":    s.playButtonSelector,
		"video":          s.videoSelector(),
	} {
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, NewError(fmt.Sprintf("invalid %s selector %q", name, sel), map[string]any{
				"site":     adapter.Name(),
				"selector": sel,
				"error":    err,
			})
		}
	}

	s.SetBrowserOptions(opts)
	return s, nil
}

// SetMetrics sets the observer notified after every scrape.
func (s *VideoScraper) SetMetrics(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// SetBrowserOptions replaces the browser configuration and rebuilds the logger.
// A running browser is unaffected; the new options apply to later calls.
func (s *VideoScraper) SetBrowserOptions(opts BrowserOptions) {
	cfg := ResolveBrowserOptions(opts)
	l := logger.New(cfg.Debug, cfg.DebugScope)

	s.mu.Lock()
	s.options = cfg
	s.logger = l
	s.mu.Unlock()

	l.Debug("BrowserOptions are", "options", cfg)
}

// BrowserConfig returns the current resolved browser configuration.
func (s *VideoScraper) BrowserConfig() BrowserConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// Launch starts the browser. A scraper launches once; after Close a new one is needed.
func (s *VideoScraper) Launch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateLaunched:
		return NewError("The browser is already launched", map[string]any{"state": s.state.String()})
	case stateClosed:
		return NewError("The scraper was closed, create a new one to scrape again", map[string]any{"state": s.state.String()})
	}

	s.logger.Debug("Launching browser", "engine", s.engine.Name())
	b, err := s.engine.Launch(ctx, s.options.launchOptions())
	if err != nil {
		return NewDuringBrowserLaunchError(err, "", map[string]any{"engine": s.engine.Name()})
	}
	s.browser = b
	s.state = stateLaunched
	s.logger.Debug("Browser launched")
	return nil
}

// Close terminates the browser. It is a no-op when the browser is not running.
// The scraper is closed afterwards even if terminating the browser failed.
func (s *VideoScraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateLaunched {
		return nil
	}
	s.logger.Debug("Closing browser")
	err := s.browser.Close()
	s.browser = nil
	s.state = stateClosed
	if err != nil {
		return NewDuringBrowserCloseError(err, "", map[string]any{"engine": s.engine.Name()})
	}
	return nil
}

// Scrape records the video at url into destPath.
func (s *VideoScraper) Scrape(ctx context.Context, url, destPath string, opts ScrapingOptions) error {
	cfg := ResolveScrapingOptions(opts)

	s.scrapeMu.Lock()
	defer s.scrapeMu.Unlock()

	s.mu.Lock()
	b, launched := s.browser, s.state == stateLaunched
	browserCfg, global, metrics := s.options, s.logger, s.metrics
	s.mu.Unlock()

	if !launched {
		return NewBrowserNotLaunchedError("")
	}

	log := global
	if !cfg.UseGlobalDebug {
		debug := browserCfg.Debug
		if cfg.Debug != nil {
			debug = *cfg.Debug
		}
		log = logger.New(debug, cfg.DebugScope)
	}
	log = log.With("scrape_id", uuid.NewString())

	start := time.Now()
	captured, err := s.scrape(ctx, b, url, destPath, &cfg, log)
	if metrics != nil {
		metrics.ObserveScrape(s.adapter.Name(), err, time.Since(start), captured)
	}
	if err != nil {
		return NewDuringScrapingError(err, "", map[string]any{
			"site":        s.adapter.Name(),
			"url":         url,
			"destination": destPath,
		})
	}
	return nil
}

// scrape runs navigate → hook → duration → fullscreen → play → record on one page.
func (s *VideoScraper) scrape(ctx context.Context, b browser.Browser, url, destPath string, cfg *ScrapingConfig, log *slog.Logger) (int64, error) {
	log.Debug("Launching page and going to the url", "url", url)
	page, err := b.NewPage(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open page: %w", err)
	}
	pageClosed := false
	defer func() {
		if pageClosed {
			return
		}
		if err := page.Close(); err != nil {
			log.Warn("failed to close page", "error", err)
		}
	}()

	if err := page.Goto(ctx, url); err != nil {
		return 0, err
	}

	log.Debug("Executing the afterPageLoaded hook")
	if err := s.adapter.AfterPageLoaded(ctx, cfg, page, log); err != nil {
		return 0, fmt.Errorf("afterPageLoaded hook failed: %w", err)
	}

	if cfg.Duration <= 0 {
		d, err := s.videoDuration(ctx, page, log)
		if err != nil {
			return 0, err
		}
		cfg.Duration = d
	}

	if cfg.FullScreen {
		if err := s.setVideoToFullScreen(ctx, page, log); err != nil {
			return 0, err
		}
	}
	if err := s.playVideo(ctx, page, log); err != nil {
		return 0, err
	}

	log.Debug(fmt.Sprintf("Waiting for %s before starting recording", cfg.DelayAfterVideoStarted))
	if err := page.WaitForTimeout(ctx, cfg.DelayAfterVideoStarted); err != nil {
		return 0, err
	}

	captured, err := s.record(ctx, page, destPath, *cfg, log)
	if err != nil {
		return captured, err
	}

	log.Debug("Closing page")
	pageClosed = true
	if err := page.Close(); err != nil {
		return captured, fmt.Errorf("failed to close page: %w", err)
	}
	return captured, nil
}

func (s *VideoScraper) videoDuration(ctx context.Context, page browser.Page, log *slog.Logger) (time.Duration, error) {
	log.Debug("Waiting for selector of video duration")
	if err := page.WaitForSelector(ctx, s.videoDurationSelector); err != nil {
		return 0, err
	}

	log.Debug("Getting the total time of the video")
	text, err := page.InnerHTML(ctx, s.videoDurationSelector)
	if err != nil {
		return 0, err
	}

	var d time.Duration
	if p, ok := s.adapter.(DurationParser); ok {
		d, err = p.ParseDuration(text)
	} else {
		d, err = ParseDurationText(text)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to parse video duration: %w", err)
	}
	log.Debug("Video duration detected", "duration", d)
	return d, nil
}

func (s *VideoScraper) setVideoToFullScreen(ctx context.Context, page browser.Page, log *slog.Logger) error {
	log.Debug("Waiting for selector of fullscreen button")
	if err := page.WaitForSelector(ctx, s.fullScreenSelector); err != nil {
		return err
	}
	log.Debug("Clicking the fullscreen button")
	return page.Click(ctx, s.fullScreenSelector)
}

func (s *VideoScraper) playVideo(ctx context.Context, page browser.Page, log *slog.Logger) error {
	log.Debug("Waiting for selector of play button")
	if err := page.WaitForSelector(ctx, s.playButtonSelector); err != nil {
		return err
	}
	log.Debug("Clicking play on the video")
	return page.Click(ctx, s.playButtonSelector)
}

func (s *VideoScraper) videoSelector() string {
	if l, ok := s.adapter.(VideoElementLocator); ok {
		if sel := l.VideoSelector(); sel != "" {
			return sel
		}
	}
	return "video"
}

// record captures the page into destPath for the configured duration plus
// the trailing delay. The capture stream and the file are released on every path.
func (s *VideoScraper) record(ctx context.Context, page browser.Page, destPath string, cfg ScrapingConfig, log *slog.Logger) (int64, error) {
	log.Debug("Starting recording", "destination", destPath)
	file, err := s.createFile(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	stream, err := page.Capture(ctx, cfg.captureOptions(s.videoSelector()))
	if err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("failed to start capture: %w", err)
	}

	var (
		g       errgroup.Group
		written int64
	)
	g.Go(func() error {
		n, err := io.Copy(file, stream)
		written = n
		if err != nil {
			return fmt.Errorf("failed to write capture: %w", err)
		}
		return nil
	})

	waitErr := waitForEnd(ctx, page, cfg, log)

	log.Debug("Stopping recording")
	// The recorder must flush even when ctx is already cancelled.
	destroyErr := stream.Destroy(context.WithoutCancel(ctx))
	copyErr := g.Wait()
	closeErr := file.Close()

	if waitErr != nil {
		return written, errors.Join(waitErr, destroyErr, copyErr, closeErr)
	}
	if err := errors.Join(destroyErr, copyErr, closeErr); err != nil {
		return written, fmt.Errorf("failed to finish recording: %w", err)
	}
	log.Debug("Recording saved", "destination", destPath, "bytes", written)
	return written, nil
}

func waitForEnd(ctx context.Context, page browser.Page, cfg ScrapingConfig, log *slog.Logger) error {
	log.Debug("Waiting for video to end", "duration", cfg.Duration)
	if err := page.WaitForTimeout(ctx, cfg.Duration); err != nil {
		return err
	}
	log.Debug(fmt.Sprintf("Waiting for %s before stopping recording", cfg.DelayAfterVideoFinished))
	return page.WaitForTimeout(ctx, cfg.DelayAfterVideoFinished)
}
