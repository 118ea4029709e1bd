package models

import (
	"sort"
	"strings"
	"time"
)

// CrawlTimeFormat is the timestamp layout recorded on every scraped job.
const CrawlTimeFormat = "2006-01-02 15:04:05"

// FailureMarker is the sentinel prefix written into JobDescription when the
// detail page could not be scraped. A record that went through the detail
// stage always carries either real text or a marker, never an empty string.
const FailureMarker = "[scrape failed"

// JobRecord is the central entity flowing through the crawl pipeline. It is
// created by the listing extractor, enriched in place by the detail
// extractor and the LLM extractor, and handed downstream by value.
type JobRecord struct {
	JobID          string   `json:"job_id"`
	JobTitle       string   `json:"job_title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	JobLink        string   `json:"job_link"`
	SearchKeyword  string   `json:"search_keyword"`
	SearchLocation string   `json:"search_location"`
	JobType        string   `json:"job_type,omitempty"`
	CrawlTime      string   `json:"crawl_time"`
	JobDescription string   `json:"job_description,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Skills         []string `json:"skills,omitempty"`

	// Extra holds the variable criteria fields scraped from the detail
	// page (job_type, seniority_level, ...). The key set depends on what
	// the page exposes, so it stays an open map beside the typed core.
	Extra map[string]string `json:"extra,omitempty"`
}

// NewJobRecord creates a listing-stage record stamped with the search that
// produced it.
func NewJobRecord(jobID, title, company, location, link, keyword, searchLocation string) JobRecord {
	return JobRecord{
		JobID:          jobID,
		JobTitle:       title,
		Company:        company,
		Location:       location,
		JobLink:        link,
		SearchKeyword:  keyword,
		SearchLocation: searchLocation,
		CrawlTime:      time.Now().Format(CrawlTimeFormat),
	}
}

// Clone returns a deep copy so detail enrichment never aliases the listing
// record's Extra map or Skills slice.
func (j JobRecord) Clone() JobRecord {
	out := j
	if j.Extra != nil {
		out.Extra = make(map[string]string, len(j.Extra))
		for k, v := range j.Extra {
			out.Extra[k] = v
		}
	}
	if j.Skills != nil {
		out.Skills = append([]string(nil), j.Skills...)
	}
	return out
}

// SetExtra records a criteria field, allocating the map on first use.
func (j *JobRecord) SetExtra(key, value string) {
	if j.Extra == nil {
		j.Extra = make(map[string]string)
	}
	j.Extra[key] = value
}

// ExtraKeys returns the criteria field names in sorted order for stable
// column layout in exports.
func (j JobRecord) ExtraKeys() []string {
	keys := make([]string, 0, len(j.Extra))
	for k := range j.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DescriptionFailed reports whether the detail stage left a failure marker
// instead of real description text.
func (j JobRecord) DescriptionFailed() bool {
	return strings.HasPrefix(j.JobDescription, FailureMarker)
}

// DedupeByID keeps exactly one record per JobID, first occurrence wins,
// preserving input order.
func DedupeByID(records []JobRecord) []JobRecord {
	seen := make(map[string]bool, len(records))
	out := make([]JobRecord, 0, len(records))
	for _, r := range records {
		if seen[r.JobID] {
			continue
		}
		seen[r.JobID] = true
		out = append(out, r)
	}
	return out
}
