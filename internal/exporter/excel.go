package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/peto/internal/models"
)

// coreColumns is the fixed leading column order for job sheets. Extra
// criteria columns follow, sorted by key, so two exports of the same data
// always line up.
var coreColumns = []string{
	"job_id",
	"job_title",
	"company",
	"location",
	"job_type",
	"search_keyword",
	"search_location",
	"crawl_time",
	"job_description",
	"job_link",
	"summary",
	"skills",
}

const jobSheetName = "Jobs"

// skillSeparator joins the skills list into one cell and splits it back on
// load
const skillSeparator = ", "

// ExcelExporter reads and writes the pipeline's spreadsheet artifacts
type ExcelExporter struct {
	logger arbor.ILogger
}

// NewExcelExporter creates an exporter
func NewExcelExporter(logger arbor.ILogger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// SaveJobs writes job records to an xlsx file, creating parent directories
// as needed
func (e *ExcelExporter) SaveJobs(path string, records []models.JobRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", jobSheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	extraCols := collectExtraKeys(records)
	header := append(append([]string{}, coreColumns...), extraCols...)

	if err := writeRow(f, jobSheetName, 1, header); err != nil {
		return err
	}

	for i, rec := range records {
		row := []string{
			rec.JobID,
			rec.JobTitle,
			rec.Company,
			rec.Location,
			rec.JobType,
			rec.SearchKeyword,
			rec.SearchLocation,
			rec.CrawlTime,
			rec.JobDescription,
			rec.JobLink,
			rec.Summary,
			strings.Join(rec.Skills, skillSeparator),
		}
		for _, key := range extraCols {
			row = append(row, rec.Extra[key])
		}
		if err := writeRow(f, jobSheetName, i+2, row); err != nil {
			return err
		}
	}

	if err := saveFile(f, path); err != nil {
		return err
	}

	e.logger.Info().Int("records", len(records)).Str("path", path).Msg("Jobs exported")
	return nil
}

// LoadJobs reads job records back from an xlsx file written by SaveJobs.
// Unrecognized columns become Extra entries, so files from older runs with
// different criteria sets load cleanly.
func (e *ExcelExporter) LoadJobs(path string) ([]models.JobRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet := jobSheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	records := make([]models.JobRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var rec models.JobRecord
		for col, name := range header {
			value := ""
			if col < len(row) {
				value = row[col]
			}
			switch name {
			case "job_id":
				rec.JobID = value
			case "job_title":
				rec.JobTitle = value
			case "company":
				rec.Company = value
			case "location":
				rec.Location = value
			case "job_type":
				rec.JobType = value
			case "search_keyword":
				rec.SearchKeyword = value
			case "search_location":
				rec.SearchLocation = value
			case "crawl_time":
				rec.CrawlTime = value
			case "job_description":
				rec.JobDescription = value
			case "job_link":
				rec.JobLink = value
			case "summary":
				rec.Summary = value
			case "skills":
				if value != "" {
					rec.Skills = strings.Split(value, skillSeparator)
				}
			default:
				if value != "" {
					rec.SetExtra(name, value)
				}
			}
		}
		if rec.JobID == "" && rec.JobTitle == "" {
			continue
		}
		records = append(records, rec)
	}

	e.logger.Info().Int("records", len(records)).Str("path", path).Msg("Jobs loaded")
	return records, nil
}

// SaveKeywords writes a keyword report as one xlsx with a sheet per ranking
func (e *ExcelExporter) SaveKeywords(path string, report *models.KeywordReport) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		scores []models.KeywordScore
	}{
		{"Hybrid", report.Hybrid},
		{"LLM", report.LLM},
		{"Traditional", report.Traditional},
	}

	if err := f.SetSheetName("Sheet1", sheets[0].name); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, s := range sheets[1:] {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
	}

	for _, s := range sheets {
		if err := writeRow(f, s.name, 1, []string{"rank", "keyword", "frequency", "score", "sources"}); err != nil {
			return err
		}
		for i, score := range s.scores {
			row := []interface{}{
				i + 1,
				score.Keyword,
				score.Frequency,
				score.Score,
				strings.Join(score.Sources, "+"),
			}
			if err := writeRowValues(f, s.name, i+2, row); err != nil {
				return err
			}
		}
	}

	if len(report.Metadata) > 0 {
		if _, err := f.NewSheet("Metadata"); err != nil {
			return fmt.Errorf("failed to create metadata sheet: %w", err)
		}
		row := 1
		for _, key := range sortedKeys(report.Metadata) {
			if err := writeRow(f, "Metadata", row, []string{key, report.Metadata[key]}); err != nil {
				return err
			}
			row++
		}
	}

	if err := saveFile(f, path); err != nil {
		return err
	}

	e.logger.Info().
		Int("hybrid", len(report.Hybrid)).
		Str("path", path).
		Msg("Keyword report exported")
	return nil
}

func collectExtraKeys(records []models.JobRecord) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, rec := range records {
		for _, key := range rec.ExtraKeys() {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	// ExtraKeys is sorted per record but the union across records is not
	sort.Strings(keys)
	return keys
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	generic := make([]interface{}, len(values))
	for i, v := range values {
		generic[i] = v
	}
	return writeRowValues(f, sheet, row, generic)
}

func writeRowValues(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to compute cell for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

func saveFile(f *excelize.File, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
