package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
)

// Session owns one Chrome process and its browser tab. All navigation for a
// crawl run flows through a single session so cookies and fingerprint state
// stay consistent.
type Session struct {
	cfg    *common.Config
	logger arbor.ILogger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	ctxCancel   context.CancelFunc

	// fetch loads and parses one job page; swappable for tests
	fetch func(link string) (*jobDetail, error)

	loggedIn bool
}

// NewSession creates a session bound to the given configuration. Start must
// be called before any navigation.
func NewSession(cfg *common.Config, logger arbor.ILogger) *Session {
	s := &Session{
		cfg:    cfg,
		logger: logger,
	}
	s.fetch = s.fetchJobDetail
	return s
}

// Start launches Chrome with the stealth allocator options, verifies the
// browser responds, and installs the fingerprint masking script
func (s *Session) Start(ctx context.Context) error {
	opts := AllocatorOptions(s.cfg)

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	s.ctx, s.ctxCancel = chromedp.NewContext(s.allocCtx)

	// Startup probe. A browser that cannot reach about:blank within the
	// window is broken and must not be handed to the crawl.
	testCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	s.applyStealth(s.ctx)

	s.logger.Info().
		Bool("headless", s.cfg.Crawler.Headless).
		Int("width", s.cfg.Browser.WindowWidth).
		Int("height", s.cfg.Browser.WindowHeight).
		Msg("Browser session started")

	return nil
}

// applyStealth installs the fingerprint masking script. A failure costs one
// countermeasure, not the crawl; the session continues without it.
func (s *Session) applyStealth(ctx context.Context) {
	if err := InjectStealthScript(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Stealth script injection failed, continuing without it")
	}
}

// Close tears down the tab and the Chrome process. Safe to call more than
// once and safe on a session that never started.
func (s *Session) Close() {
	if s.ctxCancel != nil {
		s.ctxCancel()
		s.ctxCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
}

// Navigate loads a URL with the configured page-load timeout
func (s *Session) Navigate(url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.PageLoadTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// PageHTML returns the current document's outer HTML
func (s *Session) PageHTML() (string, error) {
	var html string
	htmlCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	defer cancel()

	if err := chromedp.Run(htmlCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to capture page HTML: %w", err)
	}
	return html, nil
}

// CurrentURL returns the tab's current location
func (s *Session) CurrentURL() (string, error) {
	var url string
	urlCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	defer cancel()

	if err := chromedp.Run(urlCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// SaveScreenshot captures the viewport to the screenshot directory when
// screenshots are enabled. Failures are logged, never returned; screenshots
// are diagnostics, not crawl output.
func (s *Session) SaveScreenshot(label string) {
	if !s.cfg.Crawler.SaveScreenshots {
		return
	}

	var buf []byte
	shotCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	defer cancel()

	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		s.logger.Warn().Err(err).Str("label", label).Msg("Screenshot capture failed")
		return
	}

	if err := os.MkdirAll(s.cfg.Crawler.ScreenshotDir, 0755); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to create screenshot directory")
		return
	}

	name := fmt.Sprintf("%s_%s.png", label, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.cfg.Crawler.ScreenshotDir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to write screenshot")
		return
	}

	s.logger.Debug().Str("path", path).Msg("Screenshot saved")
}

// SettleDelay sleeps for a random duration in the configured settle range,
// imitating a human pausing while a page renders
func (s *Session) SettleDelay() {
	randomSleep(s.ctx, s.cfg.Crawler.SettleDelayMin, s.cfg.Crawler.SettleDelayMax)
}

// randomSleep blocks for a random duration in [min, max], returning early if
// the context is cancelled
func randomSleep(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
