package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// HybridAnalyzer merges AI-extracted skills with traditional term
// frequencies into one weighted ranking. The AI side is precise but can
// hallucinate or normalize names; the frequency side is noisy but grounded
// in the actual text. The blend keeps both honest.
type HybridAnalyzer struct {
	cfg    *common.AnalysisConfig
	logger arbor.ILogger
	freq   *FrequencyAnalyzer
}

// NewHybridAnalyzer creates a hybrid analyzer sharing the frequency
// analyzer's tokenizer configuration
func NewHybridAnalyzer(cfg *common.AnalysisConfig, logger arbor.ILogger) *HybridAnalyzer {
	return &HybridAnalyzer{
		cfg:    cfg,
		logger: logger,
		freq:   NewFrequencyAnalyzer(cfg, logger),
	}
}

// Analyze produces a full keyword report: the LLM ranking, the traditional
// ranking, and their weighted hybrid merge
func (h *HybridAnalyzer) Analyze(records []models.JobRecord) *models.KeywordReport {
	llmScores := h.countSkills(records)
	tradScores := h.freq.Analyze(records)
	hybrid := h.merge(llmScores, tradScores)

	report := &models.KeywordReport{
		Hybrid:      hybrid,
		LLM:         llmScores,
		Traditional: tradScores,
		Metadata: map[string]string{
			"total_jobs":         fmt.Sprintf("%d", len(records)),
			"llm_weight":         fmt.Sprintf("%.2f", h.cfg.LLMWeight),
			"traditional_weight": fmt.Sprintf("%.2f", h.cfg.TraditionalWeight),
		},
	}

	h.logger.Info().
		Int("llm_terms", len(llmScores)).
		Int("traditional_terms", len(tradScores)).
		Int("hybrid_terms", len(hybrid)).
		Msg("Hybrid analysis complete")

	return report
}

// countSkills tallies how many postings mention each AI-extracted skill.
// Skills are case-folded for counting but keep their most common surface
// form for display.
func (h *HybridAnalyzer) countSkills(records []models.JobRecord) []models.KeywordScore {
	counts := make(map[string]int)
	display := make(map[string]string)

	for _, rec := range records {
		seen := make(map[string]struct{})
		for _, skill := range rec.Skills {
			key := strings.ToLower(strings.TrimSpace(skill))
			if key == "" {
				continue
			}
			// A skill counts once per posting
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counts[key]++
			if _, ok := display[key]; !ok {
				display[key] = strings.TrimSpace(skill)
			}
		}
	}

	scores := make([]models.KeywordScore, 0, len(counts))
	for key, count := range counts {
		scores = append(scores, models.KeywordScore{
			Keyword:   display[key],
			Frequency: count,
			Score:     float64(count),
			Sources:   []string{"llm"},
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Frequency != scores[j].Frequency {
			return scores[i].Frequency > scores[j].Frequency
		}
		return strings.ToLower(scores[i].Keyword) < strings.ToLower(scores[j].Keyword)
	})

	if h.cfg.TopN > 0 && len(scores) > h.cfg.TopN {
		scores = scores[:h.cfg.TopN]
	}
	return scores
}

// merge combines both rankings into one weighted score: each side
// contributes its raw score times its weight. Terms present on both sides
// accumulate both contributions.
func (h *HybridAnalyzer) merge(llm, traditional []models.KeywordScore) []models.KeywordScore {
	llmWeight := h.cfg.LLMWeight
	tradWeight := h.cfg.TraditionalWeight
	if llmWeight <= 0 && tradWeight <= 0 {
		llmWeight, tradWeight = 0.7, 0.3
	}

	type entry struct {
		display   string
		frequency int
		score     float64
		sources   []string
	}
	merged := make(map[string]*entry)

	addSide := func(scores []models.KeywordScore, weight float64, source string) {
		for _, s := range scores {
			key := strings.ToLower(s.Keyword)
			e, ok := merged[key]
			if !ok {
				e = &entry{display: s.Keyword}
				merged[key] = e
			}
			e.score += weight * s.Score
			e.sources = append(e.sources, source)
			if s.Frequency > e.frequency {
				e.frequency = s.Frequency
			}
		}
	}

	addSide(llm, llmWeight, "llm")
	addSide(traditional, tradWeight, "traditional")

	scores := make([]models.KeywordScore, 0, len(merged))
	for _, e := range merged {
		scores = append(scores, models.KeywordScore{
			Keyword:   e.display,
			Frequency: e.frequency,
			Score:     e.score,
			Sources:   e.sources,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return strings.ToLower(scores[i].Keyword) < strings.ToLower(scores[j].Keyword)
	})

	if h.cfg.TopN > 0 && len(scores) > h.cfg.TopN {
		scores = scores[:h.cfg.TopN]
	}
	return scores
}
