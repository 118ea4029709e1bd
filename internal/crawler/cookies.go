package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// CookieRecord is the on-disk cookie representation. The file is plain JSON
// so a session exported from another tool can be dropped in directly.
type CookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
}

// LoadCookies reads the cookie file and installs every cookie into the
// browser. A missing file is not an error; the session simply starts
// unauthenticated.
func (s *Session) LoadCookies() (int, error) {
	path := s.cfg.Crawler.CookieFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info().Str("path", path).Msg("No cookie file found, starting without saved session")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cookie file %s: %w", path, err)
	}

	var records []CookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to parse cookie file %s: %w", path, err)
	}

	loaded := 0
	err = chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range records {
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(epochTime(c.Expires))
				param = param.WithExpires(&expires)
			}
			if err := param.Do(ctx); err != nil {
				// One stale cookie must not abort session restore
				s.logger.Debug().Err(err).Str("cookie", c.Name).Msg("Skipping cookie")
				continue
			}
			loaded++
		}
		return nil
	}))
	if err != nil {
		return loaded, fmt.Errorf("failed to install cookies: %w", err)
	}

	s.logger.Info().Int("count", loaded).Str("path", path).Msg("Cookies loaded")
	return loaded, nil
}

// SaveCookies exports the browser's current cookies to the cookie file so
// the next run can reuse the authenticated session
func (s *Session) SaveCookies() error {
	var cookies []*network.Cookie
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to read browser cookies: %w", err)
	}

	records := make([]CookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, CookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	path := s.cfg.Crawler.CookieFile
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file %s: %w", path, err)
	}

	s.logger.Info().Int("count", len(records)).Str("path", path).Msg("Cookies saved")
	return nil
}

func epochTime(seconds float64) time.Time {
	return time.Unix(int64(seconds), 0)
}
