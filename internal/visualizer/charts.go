package visualizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// barChartLimit keeps the bar chart readable; the wordcloud takes the full
// configured word count
const barChartLimit = 30

// Visualizer renders keyword rankings as standalone HTML charts
type Visualizer struct {
	cfg    *common.VizConfig
	logger arbor.ILogger
}

// New creates a visualizer
func New(cfg *common.VizConfig, logger arbor.ILogger) *Visualizer {
	return &Visualizer{cfg: cfg, logger: logger}
}

// RenderAll writes the enabled charts for a keyword ranking into dir and
// returns the paths written
func (v *Visualizer) RenderAll(dir string, scores []models.KeywordScore) ([]string, error) {
	if len(scores) == 0 {
		v.logger.Warn().Msg("No keywords to visualize")
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create charts directory: %w", err)
	}

	var written []string

	if v.cfg.BarChart {
		path := filepath.Join(dir, "keywords_bar.html")
		if err := v.renderBarChart(path, scores); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if v.cfg.Wordcloud {
		path := filepath.Join(dir, "keywords_wordcloud.html")
		if err := v.renderWordCloud(path, scores); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	v.logger.Info().Int("charts", len(written)).Str("dir", dir).Msg("Charts rendered")
	return written, nil
}

// renderBarChart draws a horizontal-axis bar chart of the top keywords by
// frequency
func (v *Visualizer) renderBarChart(path string, scores []models.KeywordScore) error {
	top := scores
	if len(top) > barChartLimit {
		top = top[:barChartLimit]
	}

	names := make([]string, 0, len(top))
	values := make([]opts.BarData, 0, len(top))
	for _, s := range top {
		names = append(names, s.Keyword)
		values = append(values, opts.BarData{Value: s.Frequency})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Top Job Posting Keywords",
			Subtitle: fmt.Sprintf("Top %d terms by posting frequency", len(top)),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "1400px",
			Height: "720px",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"},
		}),
	)
	bar.SetXAxis(names).AddSeries("postings", values)

	return renderToFile(bar, path)
}

// renderWordCloud draws a wordcloud sized by keyword score
func (v *Visualizer) renderWordCloud(path string, scores []models.KeywordScore) error {
	top := scores
	if v.cfg.MaxWords > 0 && len(top) > v.cfg.MaxWords {
		top = top[:v.cfg.MaxWords]
	}

	items := make([]opts.WordCloudData, 0, len(top))
	for _, s := range top {
		items = append(items, opts.WordCloudData{
			Name:  s.Keyword,
			Value: s.Score,
		})
	}

	wc := charts.NewWordCloud()
	wc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Job Posting Keyword Cloud"}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "1200px",
			Height: "800px",
		}),
	)
	wc.AddSeries("keywords", items,
		charts.WithWorldCloudChartOpts(opts.WordCloudChart{
			SizeRange: []float32{14, 80},
			Shape:     "circle",
		}),
	)

	return renderToFile(wc, path)
}

// renderer is the surface shared by every go-echarts chart type
type renderer interface {
	Render(w io.Writer) error
}

func renderToFile(chart renderer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file %s: %w", path, err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return fmt.Errorf("failed to render chart %s: %w", path, err)
	}
	return nil
}
