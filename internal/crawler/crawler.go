package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// sessionHandle is the browser lifecycle surface the orchestrator drives
type sessionHandle interface {
	Start(ctx context.Context) error
	Close()
	LoadCookies() (int, error)
	IsLoggedIn() bool
	Login() bool
}

// listingSource produces partial records from search result pages
type listingSource interface {
	ScrapeJobListings(keyword, location string, page int) ([]models.JobRecord, error)
}

// detailFetcher enriches records with job page content
type detailFetcher interface {
	ScrapeJobDetails(records []models.JobRecord) []models.JobRecord
}

// Crawler runs the full listing-then-detail pipeline over the configured
// keyword/location cross product
type Crawler struct {
	cfg    *common.Config
	logger arbor.ILogger

	session  sessionHandle
	listings listingSource
	details  detailFetcher
}

// New creates a crawler backed by a real browser session
func New(cfg *common.Config, logger arbor.ILogger) *Crawler {
	session := NewSession(cfg, logger)
	return &Crawler{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		listings: session,
		details:  session,
	}
}

// Run executes one complete crawl and returns the deduplicated, enriched
// records. The browser is always torn down, whatever happens mid-crawl.
func (c *Crawler) Run(ctx context.Context) ([]models.JobRecord, error) {
	start := time.Now()

	if err := c.session.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer c.session.Close()

	c.prepareLogin()

	listings, err := c.collectListings(ctx)
	if err != nil {
		return nil, err
	}

	deduped := models.DedupeByID(listings)
	c.logger.Info().
		Int("scraped", len(listings)).
		Int("unique", len(deduped)).
		Msg("Listing stage complete")

	if len(deduped) == 0 {
		return nil, nil
	}

	enriched := c.details.ScrapeJobDetails(deduped)

	failed := 0
	for _, rec := range enriched {
		if rec.DescriptionFailed() {
			failed++
		}
	}

	c.logger.Info().
		Int("records", len(enriched)).
		Int("detail_failures", failed).
		Str("elapsed", time.Since(start).Round(time.Second).String()).
		Msg("Crawl complete")

	return enriched, nil
}

// prepareLogin restores a saved session and falls back to a credential
// login. The crawl proceeds either way; public search pages do not require
// authentication.
func (c *Crawler) prepareLogin() {
	if _, err := c.session.LoadCookies(); err != nil {
		c.logger.Warn().Err(err).Msg("Cookie restore failed")
	}

	if c.session.IsLoggedIn() {
		c.logger.Info().Msg("Existing session is authenticated")
		return
	}

	if c.cfg.Credentials.UseCredentials {
		if c.session.Login() {
			return
		}
		c.logger.Warn().Msg("Credential login failed, continuing unauthenticated")
		return
	}

	c.logger.Info().Msg("Continuing without authentication")
}

// collectListings walks every keyword/location combination page by page
func (c *Crawler) collectListings(ctx context.Context) ([]models.JobRecord, error) {
	var all []models.JobRecord

	combos := 0
	total := len(c.cfg.Search.Keywords) * len(c.cfg.Search.Locations)

	for _, keyword := range c.cfg.Search.Keywords {
		for _, location := range c.cfg.Search.Locations {
			combos++
			c.logger.Info().
				Str("keyword", keyword).
				Str("location", location).
				Int("combination", combos).
				Int("total", total).
				Msg("Starting search combination")

			for page := 1; page <= c.cfg.Search.PagesPerSearch; page++ {
				if err := ctx.Err(); err != nil {
					return all, err
				}

				records, err := c.listings.ScrapeJobListings(keyword, location, page)
				if err != nil {
					if ctx.Err() != nil {
						return all, ctx.Err()
					}
					// One bad page costs its own results only
					c.logger.Warn().
						Str("keyword", keyword).
						Str("location", location).
						Int("page", page).
						Err(err).
						Msg("Listing page failed, continuing with next page")
					continue
				}
				all = append(all, records...)

				if page < c.cfg.Search.PagesPerSearch {
					randomSleep(ctx, c.cfg.Crawler.PageDelayMin, c.cfg.Crawler.PageDelayMax)
				}
			}

			if combos < total {
				randomSleep(ctx, c.cfg.Crawler.SearchDelayMin, c.cfg.Crawler.SearchDelayMax)
			}
		}
	}

	return all, nil
}
