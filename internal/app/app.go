package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/analyzer"
	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/crawler"
	"github.com/ternarybob/peto/internal/exporter"
	"github.com/ternarybob/peto/internal/llm"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/visualizer"
)

// Run modes
const (
	ModeCrawl     = "crawl"
	ModeAnalyze   = "analyze"
	ModeVisualize = "visualize"
	ModeAll       = "all"
)

// App wires the pipeline stages together and owns the artifact naming
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	exporter *exporter.ExcelExporter
}

// New creates the application
func New(config *common.Config, logger arbor.ILogger) *App {
	return &App{
		Config:   config,
		Logger:   logger,
		exporter: exporter.NewExcelExporter(logger),
	}
}

// Run executes one pipeline pass for the given mode. For analyze and
// visualize, inputPath selects the jobs file to read; empty means the most
// recent processed export.
func (a *App) Run(ctx context.Context, mode, inputPath string) error {
	switch mode {
	case ModeCrawl:
		_, err := a.runCrawl(ctx)
		return err
	case ModeAnalyze:
		records, err := a.loadJobs(inputPath)
		if err != nil {
			return err
		}
		_, err = a.runAnalysis(records)
		return err
	case ModeVisualize:
		records, err := a.loadJobs(inputPath)
		if err != nil {
			return err
		}
		report := analyzer.NewHybridAnalyzer(&a.Config.Analysis, a.Logger).Analyze(records)
		a.renderCharts(report.Hybrid)
		return nil
	case ModeAll:
		records, err := a.runCrawl(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			a.Logger.Warn().Msg("Crawl produced no records, skipping analysis")
			return nil
		}
		report, err := a.runAnalysis(records)
		if err != nil {
			return err
		}
		a.renderCharts(report.Hybrid)
		return nil
	default:
		return fmt.Errorf("unknown mode %q (expected crawl, analyze, visualize, or all)", mode)
	}
}

// renderCharts writes the HTML charts. Charts are a convenience on top of
// the Excel exports, so a render failure degrades the run rather than
// failing it.
func (a *App) renderCharts(scores []models.KeywordScore) {
	paths, err := visualizer.New(&a.Config.Visualization, a.Logger).RenderAll(a.Config.Output.ChartsDir, scores)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Chart rendering failed, keyword exports are unaffected")
		return
	}
	a.Logger.Info().Strs("charts", paths).Msg("Charts rendered")
}

// runCrawl runs the browser pipeline, then LLM enrichment when a provider is
// configured, writing the raw and processed exports
func (a *App) runCrawl(ctx context.Context) ([]models.JobRecord, error) {
	records, err := crawler.New(a.Config, a.Logger).Run(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		a.Logger.Warn().Msg("Crawl produced no records")
		return nil, nil
	}

	rawPath := a.artifactPath(a.Config.Output.RawDir, "jobs_raw")
	if err := a.exporter.SaveJobs(rawPath, records); err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(a.Config, a.Logger)
	if err != nil {
		// No usable provider is a degraded run, not a failed one; the raw
		// export already landed
		a.Logger.Warn().Err(err).Msg("LLM provider unavailable, skipping enrichment")
		return records, nil
	}

	enriched := llm.NewExtractor(a.Config, provider, a.Logger).ProcessJobs(ctx, records)

	processedPath := a.artifactPath(a.Config.Output.ProcessedDir, "jobs_processed")
	if err := a.exporter.SaveJobs(processedPath, enriched); err != nil {
		return nil, err
	}

	return enriched, nil
}

// runAnalysis produces the keyword report and writes the keyword export
func (a *App) runAnalysis(records []models.JobRecord) (*models.KeywordReport, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no job records to analyze")
	}

	report := analyzer.NewHybridAnalyzer(&a.Config.Analysis, a.Logger).Analyze(records)

	path := a.artifactPath(a.Config.Output.KeywordsDir, "keywords")
	if err := a.exporter.SaveKeywords(path, report); err != nil {
		return nil, err
	}
	return report, nil
}

// loadJobs reads records from the given file, or from the newest processed
// export when no path is given
func (a *App) loadJobs(path string) ([]models.JobRecord, error) {
	if path == "" {
		latest, err := latestExport(a.Config.Output.ProcessedDir)
		if err != nil {
			return nil, fmt.Errorf("no input file given and no processed export found in %s: %w",
				a.Config.Output.ProcessedDir, err)
		}
		path = latest
		a.Logger.Info().Str("path", path).Msg("Using most recent processed export")
	}
	return a.exporter.LoadJobs(path)
}

// artifactPath builds a timestamped output path, honoring the configured
// prefix
func (a *App) artifactPath(dir, name string) string {
	stamp := time.Now().Format("20060102_150405")
	if a.Config.Output.Prefix != "" {
		name = a.Config.Output.Prefix + "_" + name
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", name, stamp))
}

// latestExport returns the lexically newest xlsx in dir. Timestamped names
// sort chronologically.
func latestExport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".xlsx" {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no xlsx files in %s", dir)
	}

	sort.Strings(candidates)
	return filepath.Join(dir, candidates[len(candidates)-1]), nil
}
