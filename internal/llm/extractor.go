package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// maxDescriptionChars bounds the prompt size; descriptions beyond this are
// truncated before being sent to the provider
const maxDescriptionChars = 12000

const extractionPromptTemplate = `You are analyzing a job posting. Based on the description below, respond with a single JSON object and nothing else, in this exact shape:

{"summary": "<2-3 sentence summary of the role>", "skills": ["<skill>", "<skill>", ...]}

Rules:
- "skills" lists the concrete technical skills, tools, and technologies the posting asks for
- Use the posting's own terminology for skill names
- Do not include soft skills
- Respond with JSON only, no markdown fences, no commentary

Job title: %s
Company: %s

Job description:
%s`

// extractionResult is the JSON shape the provider is asked to return
type extractionResult struct {
	Summary string   `json:"summary"`
	Skills  []string `json:"skills"`
}

// Extractor enriches job records with AI-generated summaries and skill
// lists, pacing calls to stay inside the provider's rate limits
type Extractor struct {
	provider Provider
	logger   arbor.ILogger
	limiter  *rate.Limiter
}

// NewExtractor creates an extractor over the configured provider. The call
// pacing interval comes from the provider section of the config.
func NewExtractor(cfg *common.Config, provider Provider, logger arbor.ILogger) *Extractor {
	interval := 4 * time.Second
	raw := cfg.Gemini.RateLimit
	if cfg.LLM.Provider == common.LLMProviderClaude {
		raw = cfg.Claude.RateLimit
	}
	if raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			interval = parsed
		}
	}

	return &Extractor{
		provider: provider,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// ProcessJobs fills Summary and Skills on every record with a usable
// description. The returned slice preserves input length and order. Records
// whose detail scrape failed are passed through untouched, and a failed
// extraction leaves its record unsummarized rather than failing the batch.
func (e *Extractor) ProcessJobs(ctx context.Context, records []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(records))

	processed, skipped, failed := 0, 0, 0
	for i, rec := range records {
		out[i] = rec.Clone()

		if rec.JobDescription == "" || rec.DescriptionFailed() {
			skipped++
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("Extraction cancelled")
			return out
		}

		result, err := e.extractOne(ctx, rec)
		if err != nil {
			failed++
			e.logger.Warn().
				Str("job_id", rec.JobID).
				Err(err).
				Msg("Extraction failed for job")
			continue
		}

		out[i].Summary = result.Summary
		out[i].Skills = result.Skills
		processed++
	}

	e.logger.Info().
		Str("provider", e.provider.Name()).
		Int("processed", processed).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("LLM extraction complete")

	return out
}

func (e *Extractor) extractOne(ctx context.Context, rec models.JobRecord) (*extractionResult, error) {
	description := truncateDescription(rec.JobDescription, maxDescriptionChars)

	prompt := fmt.Sprintf(extractionPromptTemplate, rec.JobTitle, rec.Company, description)

	response, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseExtractionResponse(response)
}

// truncateDescription cuts s to at most limit bytes without splitting a
// UTF-8 sequence
func truncateDescription(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// parseExtractionResponse decodes the provider's reply, tolerating markdown
// fences and prose around the JSON object by slicing from the first '{' to
// the last '}'
func parseExtractionResponse(response string) (*extractionResult, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	// Blank skill entries confuse downstream frequency counting
	skills := result.Skills[:0]
	for _, s := range result.Skills {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	result.Skills = skills

	return &result, nil
}
