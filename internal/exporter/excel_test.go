package exporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

func TestSaveAndLoadJobs_RoundTrip(t *testing.T) {
	e := NewExcelExporter(common.GetLogger())
	path := filepath.Join(t.TempDir(), "jobs.xlsx")

	rec1 := models.JobRecord{
		JobID:          "1000000001",
		JobTitle:       "Data Engineer",
		Company:        "Acme",
		Location:       "Berlin",
		JobType:        "Full-time",
		SearchKeyword:  "Data Engineer",
		SearchLocation: "Germany",
		CrawlTime:      "2026-08-31 10:00:00",
		JobDescription: "Build pipelines.",
		JobLink:        "https://example.com/jobs/view/1000000001",
		Summary:        "Pipelines role.",
		Skills:         []string{"Python", "Spark"},
	}
	rec1.SetExtra("seniority_level", "Senior")

	rec2 := models.JobRecord{
		JobID:          "1000000002",
		JobTitle:       "Platform Engineer",
		JobDescription: models.FailureMarker + ": timeout]",
	}

	require.NoError(t, e.SaveJobs(path, []models.JobRecord{rec1, rec2}))

	loaded, err := e.LoadJobs(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	got := loaded[0]
	assert.Equal(t, rec1.JobID, got.JobID)
	assert.Equal(t, rec1.JobTitle, got.JobTitle)
	assert.Equal(t, rec1.JobType, got.JobType)
	assert.Equal(t, rec1.CrawlTime, got.CrawlTime)
	assert.Equal(t, rec1.Skills, got.Skills)
	assert.Equal(t, "Senior", got.Extra["seniority_level"])

	assert.True(t, loaded[1].DescriptionFailed())
}

func TestSaveJobs_CreatesParentDirs(t *testing.T) {
	e := NewExcelExporter(common.GetLogger())
	path := filepath.Join(t.TempDir(), "nested", "deeper", "jobs.xlsx")

	require.NoError(t, e.SaveJobs(path, []models.JobRecord{{JobID: "1", JobTitle: "X"}}))

	loaded, err := e.LoadJobs(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestLoadJobs_MissingFile(t *testing.T) {
	e := NewExcelExporter(common.GetLogger())

	_, err := e.LoadJobs(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

func TestSaveKeywords(t *testing.T) {
	e := NewExcelExporter(common.GetLogger())
	path := filepath.Join(t.TempDir(), "keywords.xlsx")

	report := &models.KeywordReport{
		Hybrid: []models.KeywordScore{
			{Keyword: "Python", Frequency: 12, Score: 1.0, Sources: []string{"llm", "traditional"}},
		},
		LLM: []models.KeywordScore{
			{Keyword: "Python", Frequency: 12, Score: 12, Sources: []string{"llm"}},
		},
		Traditional: []models.KeywordScore{
			{Keyword: "python", Frequency: 40, Score: 40, Sources: []string{"traditional"}},
		},
		Metadata: map[string]string{"total_jobs": "12"},
	}

	require.NoError(t, e.SaveKeywords(path, report))
	assert.FileExists(t, path)
}
