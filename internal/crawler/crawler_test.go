package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// mockSession satisfies sessionHandle without a browser
type mockSession struct {
	startErr    error
	closed      bool
	cookieErr   error
	loggedIn    bool
	loginResult bool
	loginCalled bool
}

func (m *mockSession) Start(ctx context.Context) error { return m.startErr }
func (m *mockSession) Close()                          { m.closed = true }
func (m *mockSession) LoadCookies() (int, error)       { return 0, m.cookieErr }
func (m *mockSession) IsLoggedIn() bool                { return m.loggedIn }
func (m *mockSession) Login() bool {
	m.loginCalled = true
	return m.loginResult
}

// mockListings returns canned pages keyed by "keyword|location|page"
type mockListings struct {
	pages map[string][]models.JobRecord
	errs  map[string]error
}

func listingKey(keyword, location string, page int) string {
	return fmt.Sprintf("%s|%s|%d", keyword, location, page)
}

func (m *mockListings) ScrapeJobListings(keyword, location string, page int) ([]models.JobRecord, error) {
	key := listingKey(keyword, location, page)
	if err := m.errs[key]; err != nil {
		return nil, err
	}
	return m.pages[key], nil
}

// mockDetails marks selected indices as failed and stamps the rest
type mockDetails struct {
	failIndex map[int]bool
}

func (m *mockDetails) ScrapeJobDetails(records []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
		if m.failIndex[i] {
			out[i].JobDescription = models.FailureMarker + ": context deadline exceeded]"
		} else {
			out[i].JobDescription = "description for " + rec.JobID
		}
	}
	return out
}

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Search.Keywords = []string{"Data Engineer"}
	cfg.Search.Locations = []string{"United States"}
	cfg.Search.PagesPerSearch = 2
	// No pacing in tests
	cfg.Crawler.PageDelayMin, cfg.Crawler.PageDelayMax = 0, 0
	cfg.Crawler.ItemDelayMin, cfg.Crawler.ItemDelayMax = 0, 0
	cfg.Crawler.SearchDelayMin, cfg.Crawler.SearchDelayMax = 0, 0
	return cfg
}

func newTestCrawler(cfg *common.Config, session *mockSession, listings *mockListings, details *mockDetails) *Crawler {
	return &Crawler{
		cfg:      cfg,
		logger:   common.GetLogger(),
		session:  session,
		listings: listings,
		details:  details,
	}
}

func rec(id string) models.JobRecord {
	return models.JobRecord{JobID: id, JobTitle: "Job " + id, JobLink: "https://example.com/jobs/view/" + id}
}

func TestCrawlerRun_DedupesAcrossPages(t *testing.T) {
	listings := &mockListings{pages: map[string][]models.JobRecord{
		listingKey("Data Engineer", "United States", 1): {rec("1"), rec("2"), rec("3")},
		listingKey("Data Engineer", "United States", 2): {rec("3"), rec("4")},
	}}
	session := &mockSession{}

	c := newTestCrawler(testConfig(), session, listings, &mockDetails{})
	records, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 4)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.JobID
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	assert.True(t, session.closed, "browser must be torn down after the run")
}

func TestCrawlerRun_DetailFailureKeepsRecord(t *testing.T) {
	listings := &mockListings{pages: map[string][]models.JobRecord{
		listingKey("Data Engineer", "United States", 1): {rec("1"), rec("2"), rec("3")},
	}}
	cfg := testConfig()
	cfg.Search.PagesPerSearch = 1

	c := newTestCrawler(cfg, &mockSession{}, listings, &mockDetails{failIndex: map[int]bool{1: true}})
	records, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.False(t, records[0].DescriptionFailed())
	assert.True(t, records[1].DescriptionFailed())
	assert.False(t, records[2].DescriptionFailed())
}

func TestCrawlerRun_LoginFailureDoesNotAbort(t *testing.T) {
	listings := &mockListings{pages: map[string][]models.JobRecord{
		listingKey("Data Engineer", "United States", 1): {rec("1")},
	}}
	cfg := testConfig()
	cfg.Search.PagesPerSearch = 1
	cfg.Credentials = common.CredentialsConfig{UseCredentials: true, Email: "a@b.c", Password: "pw"}

	session := &mockSession{loggedIn: false, loginResult: false}
	c := newTestCrawler(cfg, session, listings, &mockDetails{})

	records, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, session.loginCalled)
	assert.Len(t, records, 1)
}

func TestCrawlerRun_StartFailure(t *testing.T) {
	session := &mockSession{startErr: errors.New("chrome not found")}
	c := newTestCrawler(testConfig(), session, &mockListings{}, &mockDetails{})

	_, err := c.Run(context.Background())
	assert.Error(t, err)
}

func TestCrawlerRun_ListingErrorSkipsPage(t *testing.T) {
	listings := &mockListings{
		pages: map[string][]models.JobRecord{
			listingKey("Data Engineer", "United States", 2): {rec("7")},
		},
		errs: map[string]error{
			listingKey("Data Engineer", "United States", 1): errors.New("navigation failed"),
		},
	}
	c := newTestCrawler(testConfig(), &mockSession{}, listings, &mockDetails{})

	records, err := c.Run(context.Background())
	require.NoError(t, err, "a failed page must not abort the crawl")
	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].JobID)
}

func TestCrawlerRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	listings := &mockListings{
		errs: map[string]error{
			listingKey("Data Engineer", "United States", 1): ctx.Err(),
		},
	}
	c := newTestCrawler(testConfig(), &mockSession{}, listings, &mockDetails{})

	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScrapeJobDetails_LengthInvariant(t *testing.T) {
	cfg := testConfig()
	s := NewSession(cfg, common.GetLogger())
	s.ctx = context.Background()
	s.fetch = func(link string) (*jobDetail, error) {
		if link == "https://example.com/jobs/view/2" {
			return nil, context.DeadlineExceeded
		}
		return &jobDetail{
			Description: "real text",
			Criteria:    map[string]string{"employment_type": "Full-time", "seniority_level": "Senior"},
		}, nil
	}

	in := []models.JobRecord{rec("1"), rec("2"), rec("3")}
	out := s.ScrapeJobDetails(in)

	require.Len(t, out, 3)
	assert.Equal(t, "real text", out[0].JobDescription)
	assert.True(t, out[1].DescriptionFailed())
	assert.Contains(t, out[1].JobDescription, "deadline")
	assert.Equal(t, "Full-time", out[2].JobType)
	assert.Equal(t, "Senior", out[2].Extra["seniority_level"])
	// Input records are not mutated
	assert.Empty(t, in[0].JobDescription)
}

func TestScrapeJobDetails_InsightJobTypeWins(t *testing.T) {
	s := NewSession(testConfig(), common.GetLogger())
	s.ctx = context.Background()
	s.fetch = func(link string) (*jobDetail, error) {
		return &jobDetail{
			Description: "real text",
			JobType:     "Contract",
			Criteria:    map[string]string{"employment_type": "Full-time"},
		}, nil
	}

	out := s.ScrapeJobDetails([]models.JobRecord{rec("1")})
	require.Len(t, out, 1)
	assert.Equal(t, "Contract", out[0].JobType)
	assert.NotContains(t, out[0].Extra, "employment_type")
}

func TestScrapeJobDetails_MissingLink(t *testing.T) {
	s := NewSession(testConfig(), common.GetLogger())
	s.ctx = context.Background()
	s.fetch = func(link string) (*jobDetail, error) {
		t.Fatal("fetch must not be called for a record without a link")
		return nil, nil
	}

	out := s.ScrapeJobDetails([]models.JobRecord{{JobID: "1"}})
	require.Len(t, out, 1)
	assert.True(t, out[0].DescriptionFailed())
}
