package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/exporter"
	"github.com/ternarybob/peto/internal/models"
)

func TestRun_UnknownMode(t *testing.T) {
	a := New(common.NewDefaultConfig(), common.GetLogger())
	err := a.Run(context.Background(), "export", "")
	assert.Error(t, err)
}

func TestRun_VisualizeSurvivesChartFailure(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "jobs.xlsx")
	rec := models.NewJobRecord("1", "Data Engineer", "Acme", "Sydney", "https://example.com/1", "data engineer", "Australia")
	rec.JobDescription = "python python spark"
	require.NoError(t, exporter.NewExcelExporter(common.GetLogger()).SaveJobs(input, []models.JobRecord{rec}))

	// A file where the charts directory should be makes rendering fail
	blocker := filepath.Join(dir, "charts")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := common.NewDefaultConfig()
	cfg.Analysis.MinFrequency = 1
	cfg.Output.ChartsDir = blocker

	err := New(cfg, common.GetLogger()).Run(context.Background(), ModeVisualize, input)
	assert.NoError(t, err, "chart failures degrade the run, they do not fail it")
}
