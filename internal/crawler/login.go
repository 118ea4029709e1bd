package crawler

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const (
	loginURL = "https://www.linkedin.com/login"
	feedURL  = "https://www.linkedin.com/feed/"
)

// IsLoggedIn checks whether the session carries a valid login by visiting
// the feed and seeing where the site sends us. An authenticated session
// stays on /feed; an anonymous one is bounced to a login or authwall page.
func (s *Session) IsLoggedIn() bool {
	if err := s.Navigate(feedURL); err != nil {
		s.logger.Warn().Err(err).Msg("Login check navigation failed")
		return false
	}
	s.SettleDelay()

	url, err := s.CurrentURL()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Login check could not read URL")
		return false
	}

	if strings.Contains(url, "/feed") {
		s.loggedIn = true
		return true
	}
	if strings.Contains(url, "/login") || strings.Contains(url, "authwall") || strings.Contains(url, "signup") {
		return false
	}

	// Not redirected anywhere recognizable; look for markers only the
	// authenticated page carries.
	html, err := s.PageHTML()
	if err != nil {
		return false
	}
	s.loggedIn = hasLoggedInMarkers(html)
	return s.loggedIn
}

// hasLoggedInMarkers reports whether the page contains elements LinkedIn
// only renders for an authenticated member: the primary nav links or the
// profile rail card.
func hasLoggedInMarkers(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(".global-nav__primary-link").Length() > 0 ||
		doc.Find(".profile-rail-card").Length() > 0
}

// Login attempts a credential login, typing like a human. Returns true on
// success. All failures are logged and reported as false; a failed login
// degrades the crawl to public results instead of aborting it.
func (s *Session) Login() bool {
	creds := s.cfg.Credentials
	if !creds.UseCredentials || creds.Email == "" || creds.Password == "" {
		s.logger.Info().Msg("No credentials configured, continuing without login")
		return false
	}

	if err := s.Navigate(loginURL); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to open login page")
		return false
	}
	s.SettleDelay()

	if !s.typeLikeHuman("#username", creds.Email) {
		s.logger.Warn().Msg("Could not fill login email field")
		return false
	}
	randomSleep(s.ctx, 500*time.Millisecond, 1200*time.Millisecond)
	if !s.typeLikeHuman("#password", creds.Password) {
		s.logger.Warn().Msg("Could not fill login password field")
		return false
	}
	randomSleep(s.ctx, 400*time.Millisecond, 900*time.Millisecond)

	submitCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	if err := chromedp.Run(submitCtx, chromedp.Click(`button[type="submit"]`, chromedp.ByQuery)); err != nil {
		cancel()
		s.logger.Warn().Err(err).Msg("Could not submit login form")
		return false
	}
	cancel()

	randomSleep(s.ctx, 3*time.Second, 5*time.Second)

	url, err := s.CurrentURL()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not read URL after login submit")
		return false
	}

	if strings.Contains(url, "checkpoint") || strings.Contains(url, "challenge") {
		if s.cfg.Crawler.Headless {
			s.logger.Warn().Msg("Login hit a verification challenge in headless mode, giving up")
			return false
		}
		s.logger.Warn().Msg("Login verification challenge detected, waiting for manual completion")
		if !s.waitForManualVerification(2 * time.Minute) {
			return false
		}
		url, _ = s.CurrentURL()
	}

	if strings.Contains(url, "/feed") || s.IsLoggedIn() {
		s.loggedIn = true
		s.logger.Info().Msg("Login successful")
		if err := s.SaveCookies(); err != nil {
			s.logger.Warn().Err(err).Msg("Could not persist session cookies")
		}
		return true
	}

	s.logger.Warn().Str("url", url).Msg("Login did not reach the feed")
	s.SaveScreenshot("login_failed")
	return false
}

// typeLikeHuman focuses a field and sends its value one character at a time
// with 50-150ms pauses
func (s *Session) typeLikeHuman(selector, value string) bool {
	fieldCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	defer cancel()

	if err := chromedp.Run(fieldCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return false
	}

	for _, ch := range value {
		if err := chromedp.Run(s.ctx, chromedp.SendKeys(selector, string(ch), chromedp.ByQuery)); err != nil {
			return false
		}
		pause := time.Duration(50+rand.Intn(101)) * time.Millisecond
		select {
		case <-time.After(pause):
		case <-s.ctx.Done():
			return false
		}
	}
	return true
}

// waitForManualVerification polls the URL until the challenge page is gone
// or the deadline passes. Used only in headful mode where a person can
// complete the puzzle.
func (s *Session) waitForManualVerification(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		randomSleep(s.ctx, 4*time.Second, 6*time.Second)
		url, err := s.CurrentURL()
		if err != nil {
			return false
		}
		if !strings.Contains(url, "checkpoint") && !strings.Contains(url, "challenge") {
			return true
		}
	}
	s.logger.Warn().Msg("Verification challenge was not completed in time")
	return false
}
