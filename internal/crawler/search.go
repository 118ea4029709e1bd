package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

const (
	searchBaseURL  = "https://www.linkedin.com/jobs/search/"
	resultsPerPage = 25
)

// resultsListSelector is the container the scraper waits for before reading
// a search page
const resultsListSelector = ".jobs-search__results-list"

var (
	currentJobIDPattern = regexp.MustCompile(`currentJobId=(\d+)`)
	viewJobIDPattern    = regexp.MustCompile(`/jobs/view/(?:[^/?]*-)?(\d+)`)
)

// ConstructSearchURL builds a search results URL for one keyword/location
// combination and 1-based page number. Spaces are encoded as %20; the query
// is pinned to the last 24 hours and the worldwide geo.
func ConstructSearchURL(keyword, location string, page int) string {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * resultsPerPage

	// url.QueryEscape would produce '+', which the site does not normalize
	// the same way in every surface
	kw := url.PathEscape(keyword)
	loc := url.PathEscape(location)

	return fmt.Sprintf("%s?keywords=%s&location=%s&f_TPR=r86400&geoId=92000000&start=%d",
		searchBaseURL, kw, loc, start)
}

// ExtractJobID pulls the numeric job ID out of a listing link. Falls back to
// a synthetic ID when the link carries none, so a record is never dropped
// for a missing ID alone.
func ExtractJobID(link string) string {
	if m := currentJobIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	if m := viewJobIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return common.NewFallbackJobID()
}

// ScrapeJobListings loads one search results page and returns the partial
// job records found on it. A page that never renders its results list is
// skipped with a screenshot, returning an empty slice and no error.
func (s *Session) ScrapeJobListings(keyword, location string, page int) ([]models.JobRecord, error) {
	searchURL := ConstructSearchURL(keyword, location, page)

	s.logger.Info().
		Str("keyword", keyword).
		Str("location", location).
		Int("page", page).
		Msg("Loading search page")

	if err := s.Navigate(searchURL); err != nil {
		s.logger.Warn().
			Str("keyword", keyword).
			Int("page", page).
			Err(err).
			Msg("Search page navigation failed, skipping page")
		s.SaveScreenshot(fmt.Sprintf("search_nav_failed_p%d", page))
		return nil, nil
	}
	s.SettleDelay()

	// A few human-looking scrolls trigger lazy loading of later cards
	for i := 0; i < s.cfg.Crawler.MaxScrolls; i++ {
		RandomScroll(s.ctx, s.cfg.Crawler.ScrollMin, s.cfg.Crawler.ScrollMax)
		select {
		case <-time.After(s.cfg.Crawler.ScrollPauseTime):
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		}
	}
	RandomMouseMove(s.ctx, s.cfg.Browser.WindowWidth, s.cfg.Browser.WindowHeight)

	waitCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitReady(resultsListSelector, chromedp.ByQuery))
	cancel()
	if err != nil {
		s.logger.Warn().
			Str("keyword", keyword).
			Int("page", page).
			Err(err).
			Msg("Results list never appeared, skipping page")
		s.SaveScreenshot(fmt.Sprintf("search_timeout_p%d", page))
		return nil, nil
	}

	html, err := s.PageHTML()
	if err != nil {
		s.logger.Warn().
			Str("keyword", keyword).
			Int("page", page).
			Err(err).
			Msg("Search page capture failed, skipping page")
		s.SaveScreenshot(fmt.Sprintf("search_capture_failed_p%d", page))
		return nil, nil
	}

	records, err := parseListingPage(html, keyword, location)
	if err != nil {
		s.logger.Warn().Int("page", page).Err(err).Msg("Search page parse failed, skipping page")
		return nil, nil
	}

	s.logger.Info().
		Int("count", len(records)).
		Int("page", page).
		Msg("Search page scraped")

	return records, nil
}

// parseListingPage extracts partial job records from a rendered search
// results page. Items missing both a title and a link are dropped; any
// other missing field degrades to an empty value.
func parseListingPage(html, keyword, location string) ([]models.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var records []models.JobRecord

	doc.Find(resultsListSelector + " li").Each(func(_ int, item *goquery.Selection) {
		title := cleanText(item.Find(".base-search-card__title").First().Text())
		link, _ := item.Find("a.base-card__full-link").First().Attr("href")
		if link == "" {
			link, _ = item.Find("a").First().Attr("href")
		}
		link = strings.TrimSpace(link)

		if title == "" && link == "" {
			// Not a job card (spinner rows, ads)
			return
		}

		company := cleanText(item.Find(".base-search-card__subtitle").First().Text())
		jobLocation := cleanText(item.Find(".job-search-card__location").First().Text())

		rec := models.NewJobRecord(ExtractJobID(link), title, company, jobLocation, link, keyword, location)
		records = append(records, rec)
	})

	return records, nil
}

// cleanText collapses the whitespace HTML extraction leaves behind
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
