package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/peto/internal/models"
)

// descriptionSelectors are tried in order; the rendered markup container
// comes first, the plain description block is the fallback
var descriptionSelectors = []string{
	".show-more-less-html__markup",
	".description__text",
	".jobs-description__content",
}

// jobDetail is the parsed content of one job view page
type jobDetail struct {
	Description string
	JobType     string
	Criteria    map[string]string
}

// ScrapeJobDetails visits each record's job page and fills in the
// description and criteria fields. The returned slice always has the same
// length and order as the input; a record whose page could not be read gets
// a failure marker description instead of being dropped.
func (s *Session) ScrapeJobDetails(records []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(records))

	for i, rec := range records {
		out[i] = rec.Clone()

		if rec.JobLink == "" {
			out[i].JobDescription = models.FailureMarker + ": no job link]"
			continue
		}

		s.logger.Info().
			Str("job_id", rec.JobID).
			Str("title", rec.JobTitle).
			Int("index", i+1).
			Int("total", len(records)).
			Msg("Fetching job detail")

		detail, err := s.fetch(rec.JobLink)
		if err != nil {
			s.logger.Warn().
				Str("job_id", rec.JobID).
				Err(err).
				Msg("Job detail scrape failed")
			s.SaveScreenshot("detail_failed_" + rec.JobID)
			out[i].JobDescription = fmt.Sprintf("%s: %v]", models.FailureMarker, err)
		} else {
			out[i].JobDescription = detail.Description
			out[i].JobType = detail.JobType
			for key, value := range detail.Criteria {
				if key == "employment_type" {
					// The top-card insight wins when both are present
					if out[i].JobType == "" {
						out[i].JobType = value
					}
					continue
				}
				out[i].SetExtra(key, value)
			}
		}

		if i < len(records)-1 {
			randomSleep(s.ctx, s.cfg.Crawler.ItemDelayMin, s.cfg.Crawler.ItemDelayMax)
		}
	}

	return out
}

// fetchJobDetail loads one job view page and parses it
func (s *Session) fetchJobDetail(link string) (*jobDetail, error) {
	if err := s.Navigate(link); err != nil {
		return nil, err
	}
	s.SettleDelay()
	RandomScroll(s.ctx, s.cfg.Crawler.ScrollMin, s.cfg.Crawler.ScrollMax)

	// Expand the truncated description when the toggle is present
	bestEffort(s.ctx, chromedp.Evaluate(
		`(() => { const b = document.querySelector('.show-more-less-html__button--more'); if (b) b.click(); })()`, nil))

	waitCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Crawler.WaitTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitReady(descriptionSelectors[0], chromedp.ByQuery))
	cancel()
	if err != nil {
		// The markup container may simply be absent on some layouts; only
		// fail once parsing finds nothing either
		s.logger.Debug().Err(err).Msg("Description container wait timed out")
	}

	html, err := s.PageHTML()
	if err != nil {
		return nil, err
	}

	detail, err := parseJobDetail(html)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// parseJobDetail extracts the description text and the criteria pairs from a
// rendered job view page
func parseJobDetail(html string) (*jobDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job page: %w", err)
	}

	var description string
	for _, sel := range descriptionSelectors {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			description = text
			break
		}
	}
	if description == "" {
		return nil, fmt.Errorf("no description found")
	}

	jobType := cleanText(doc.Find(".jobs-unified-top-card__job-insight span").First().Text())

	criteria := make(map[string]string)
	doc.Find(".description__job-criteria-item").Each(func(_ int, item *goquery.Selection) {
		key := cleanText(item.Find(".description__job-criteria-subheader").First().Text())
		value := cleanText(item.Find(".description__job-criteria-text").First().Text())
		if key == "" || value == "" {
			return
		}
		criteria[normalizeCriteriaKey(key)] = value
	})

	return &jobDetail{Description: description, JobType: jobType, Criteria: criteria}, nil
}

// normalizeCriteriaKey turns a criteria label like "Employment type" into a
// stable column key like "employment_type"
func normalizeCriteriaKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}
