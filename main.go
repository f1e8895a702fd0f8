package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"vidscrape/internal/browser"
	"vidscrape/internal/config"
	"vidscrape/internal/logger"
	"vidscrape/internal/metrics"
	"vidscrape/internal/scraper"
	_ "vidscrape/internal/sites/generic"
	_ "vidscrape/internal/sites/zoom"
)

var version = "dev"

var (
	site         string
	params       []string
	outputPath   string
	engineName   string
	configFile   string
	duration     time.Duration
	noFullScreen bool
	interval     time.Duration
	metricsFile  string
	listSites    bool
	debug        bool
	showUI       bool
	proxyURL     string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "vidscrape [URL...]",
		Short:   "Record videos played in a headless browser",
		Version: version,
		Long: `vidscrape opens each URL in a Chromium browser, plays the video on the
page and records it to a WebM file. Site adapters know where each player
keeps its duration, fullscreen and play controls.`,
		Example: `  # Record an HTML5 video, detecting its length from the player
  vidscrape https://example.com/talks/42 -o talk.webm

  # Record a protected Zoom recording
  vidscrape --site zoom --param passcode=s3cret "https://zoom.us/rec/share/..."

  # Record several videos into a directory, one every five minutes
  vidscrape -o recordings/ --interval 5m URL1 URL2 URL3

  # Use a custom player and a fixed length
  vidscrape --param play=button.start --param fullscreen=#fs --duration 45m URL`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !listSites {
				cmd.Help()
				os.Exit(0)
			}
			return nil
		},
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&site, "site", "generic", "Site adapter (see --list-sites)")
	rootCmd.Flags().StringArrayVar(&params, "param", nil, "Site parameter as key=value (can be used multiple times)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file, or a directory receiving <uuid>.webm files")
	rootCmd.Flags().StringVar(&engineName, "engine", "", "Browser driver: rod or chromedp, defaults to VIDSCRAPE_ENGINE")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML file with browser and scraping options")
	rootCmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Recording length (0 detects it from the player)")
	rootCmd.Flags().BoolVar(&noFullScreen, "no-fullscreen", false, "Record without switching the player to fullscreen")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "Minimum time between two scrapes, defaults to VIDSCRAPE_INTERVAL")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	rootCmd.Flags().BoolVar(&listSites, "list-sites", false, "List the available site adapters and exit")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Log every scraping step")
	rootCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "Proxy URL (e.g. http://127.0.0.1:7890), defaults to VIDSCRAPE_PROXY env var")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Init(os.Stderr, cfg.Log.Format)

	if listSites {
		for _, name := range scraper.Adapters() {
			fmt.Println(name)
		}
		return nil
	}

	siteParams, err := parseParams(params)
	if err != nil {
		return err
	}
	adapter, err := scraper.NewAdapter(site, siteParams)
	if err != nil {
		return fmt.Errorf("failed to create site adapter: %w", err)
	}

	if engineName == "" {
		engineName = cfg.Browser.Engine
	}
	engine, err := browser.NewEngine(engineName)
	if err != nil {
		return err
	}

	browserOpts, scrapingOpts, err := buildOptions(cmd, cfg)
	if err != nil {
		return err
	}

	s, err := scraper.New(adapter, engine, browserOpts)
	if err != nil {
		return fmt.Errorf("failed to create scraper: %w", err)
	}
	m := metrics.New()
	s.SetMetrics(m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Launch(ctx); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("failed to close browser", "error", err)
		}
	}()

	if !cmd.Flags().Changed("interval") {
		interval = cfg.RateLimit.Interval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	targets := make([]string, len(args))
	for i, a := range args {
		targets[i] = normalizeURL(a)
	}

	var failed []error
	for _, target := range targets {
		if err := limiter.Wait(ctx); err != nil {
			failed = append(failed, err)
			break
		}

		dest, err := destination(outputPath, len(targets))
		if err != nil {
			return err
		}

		slog.Info("recording video", "site", adapter.Name(), "url", target, "output", dest)
		if err := s.Scrape(ctx, target, dest, scrapingOpts); err != nil {
			slog.Error("scrape failed", "url", target, "error", err)
			failed = append(failed, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", dest)
	}

	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			slog.Warn("failed to write metrics", "path", metricsFile, "error", err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d scrapes failed: %w", len(failed), len(targets), errors.Join(failed...))
	}
	return nil
}

// buildOptions layers the environment, the --config file and the flags, in that order.
func buildOptions(cmd *cobra.Command, cfg *config.Config) (scraper.BrowserOptions, scraper.ScrapingOptions, error) {
	browserOpts := cfg.BrowserOptions()
	var scrapingOpts scraper.ScrapingOptions

	if configFile != "" {
		f, err := config.LoadFile(configFile)
		if err != nil {
			return browserOpts, scrapingOpts, err
		}
		browserOpts = config.OverlayBrowser(browserOpts, f.Browser)
		scrapingOpts = config.OverlayScraping(scrapingOpts, f.Scraping)
	}

	flags := cmd.Flags()
	if flags.Changed("showui") {
		browserOpts.Headless = scraper.Ptr(!showUI)
	}
	if flags.Changed("proxy") {
		browserOpts.ProxyURL = scraper.Ptr(proxyURL)
	}
	if flags.Changed("debug") {
		browserOpts.Debug = scraper.Ptr(debug)
	}
	if flags.Changed("duration") {
		scrapingOpts.Duration = scraper.Ptr(duration)
	}
	if flags.Changed("no-fullscreen") {
		scrapingOpts.FullScreen = scraper.Ptr(!noFullScreen)
	}
	return browserOpts, scrapingOpts, nil
}

// parseParams parses key=value site parameters
func parseParams(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, p := range raw {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		out[key] = value
	}
	return out, nil
}

// destination picks where one recording goes. A single URL may be written to
// a file path; otherwise, or when the path is a directory, every recording
// gets a fresh <uuid>.webm inside it.
func destination(out string, count int) (string, error) {
	name := uuid.NewString() + ".webm"
	if out == "" {
		return name, nil
	}

	info, err := os.Stat(out)
	isDir := err == nil && info.IsDir()
	if !isDir && (count > 1 || strings.HasSuffix(out, string(os.PathSeparator))) {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		isDir = true
	}
	if isDir {
		return filepath.Join(out, name), nil
	}
	return out, nil
}

// normalizeURL normalizes URL, adds https:// if no protocol prefix
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "file://") {
		return "https://" + rawURL
	}
	return rawURL
}
