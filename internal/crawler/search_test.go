package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructSearchURL(t *testing.T) {
	url := ConstructSearchURL("Data Engineer", "United States", 3)

	assert.Equal(t,
		"https://www.linkedin.com/jobs/search/?keywords=Data%20Engineer&location=United%20States&f_TPR=r86400&geoId=92000000&start=50",
		url)
}

func TestConstructSearchURL_FirstPage(t *testing.T) {
	url := ConstructSearchURL("golang", "Germany", 1)

	assert.Contains(t, url, "start=0")
	assert.Contains(t, url, "keywords=golang")
	assert.Contains(t, url, "location=Germany")
}

func TestConstructSearchURL_PageBelowOneClamps(t *testing.T) {
	assert.Contains(t, ConstructSearchURL("x", "y", 0), "start=0")
	assert.Contains(t, ConstructSearchURL("x", "y", -2), "start=0")
}

func TestConstructSearchURL_SpacesAsPercent20(t *testing.T) {
	url := ConstructSearchURL("machine learning engineer", "New York", 1)

	assert.NotContains(t, url, "+")
	assert.Contains(t, url, "machine%20learning%20engineer")
	assert.Contains(t, url, "New%20York")
}

func TestExtractJobID(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"currentJobId param", "https://www.linkedin.com/jobs/search/?currentJobId=3756284912&keywords=go", "3756284912"},
		{"view path with slug", "https://www.linkedin.com/jobs/view/data-engineer-at-acme-3901234567", "3901234567"},
		{"bare view path", "https://www.linkedin.com/jobs/view/3901234567", "3901234567"},
		{"view path with query", "https://www.linkedin.com/jobs/view/senior-go-developer-4012345678?refId=abc", "4012345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJobID(tt.link))
		})
	}
}

func TestExtractJobID_FallbackWhenNoID(t *testing.T) {
	id := ExtractJobID("https://www.linkedin.com/jobs/collections/recommended")

	assert.True(t, strings.HasPrefix(id, "unknown_"))
	// Fallback IDs must not collide with each other
	assert.NotEqual(t, id, ExtractJobID("https://example.com/nothing"))
}

const listingPageFixture = `<html><body>
<ul class="jobs-search__results-list">
  <li>
    <div class="base-card">
      <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/data-engineer-at-acme-1000000001"></a>
      <h3 class="base-search-card__title">  Data Engineer </h3>
      <h4 class="base-search-card__subtitle">Acme Corp</h4>
      <span class="job-search-card__location">Berlin, Germany</span>
    </div>
  </li>
  <li>
    <div class="base-card">
      <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/platform-engineer-1000000002"></a>
      <h3 class="base-search-card__title">Platform
        Engineer</h3>
      <h4 class="base-search-card__subtitle">Globex</h4>
      <span class="job-search-card__location">Remote</span>
    </div>
  </li>
  <li><div class="loading-spinner"></div></li>
</ul>
</body></html>`

func TestParseListingPage(t *testing.T) {
	records, err := parseListingPage(listingPageFixture, "Data Engineer", "Germany")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "1000000001", first.JobID)
	assert.Equal(t, "Data Engineer", first.JobTitle)
	assert.Equal(t, "Acme Corp", first.Company)
	assert.Equal(t, "Berlin, Germany", first.Location)
	assert.Equal(t, "Data Engineer", first.SearchKeyword)
	assert.Equal(t, "Germany", first.SearchLocation)
	assert.NotEmpty(t, first.CrawlTime)

	// Whitespace in the markup is collapsed
	assert.Equal(t, "Platform Engineer", records[1].JobTitle)
}

func TestParseListingPage_EmptyPage(t *testing.T) {
	records, err := parseListingPage("<html><body><div>No results</div></body></html>", "x", "y")
	require.NoError(t, err)
	assert.Empty(t, records)
}
