package analyzer

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// defaultStopWords are common English words plus job-posting boilerplate
// that carries no signal about required skills
var defaultStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "he": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "to": {}, "was": {}, "we": {}, "were": {}, "will": {}, "with": {},
	"you": {}, "your": {}, "our": {}, "this": {}, "they": {}, "their": {},
	"not": {}, "but": {}, "can": {}, "all": {}, "more": {}, "other": {},
	"about": {}, "also": {}, "if": {}, "who": {}, "what": {}, "which": {},
	"would": {}, "should": {}, "may": {}, "must": {}, "than": {}, "them": {},
	"these": {}, "those": {}, "there": {}, "been": {}, "being": {}, "do": {},
	"does": {}, "such": {}, "any": {}, "each": {}, "into": {}, "through": {},
	"per": {}, "across": {}, "within": {}, "us": {}, "able": {}, "both": {},

	// Posting boilerplate
	"job": {}, "work": {}, "working": {}, "team": {}, "teams": {},
	"experience": {}, "years": {}, "year": {}, "role": {}, "position": {},
	"company": {}, "candidate": {}, "candidates": {}, "skills": {},
	"required": {}, "requirements": {}, "preferred": {}, "responsibilities": {},
	"including": {}, "include": {}, "includes": {}, "ability": {},
	"knowledge": {}, "strong": {}, "excellent": {}, "good": {}, "new": {},
	"opportunity": {}, "opportunities": {}, "benefits": {}, "salary": {},
	"equal": {}, "employment": {}, "employer": {}, "employee": {},
	"employees": {}, "time": {}, "full": {}, "etc": {}, "eg": {}, "ie": {},
	"plus": {}, "well": {}, "help": {}, "support": {}, "based": {},
	"looking": {}, "using": {}, "use": {}, "used": {}, "related": {},
	"degree": {}, "bachelor": {}, "bachelors": {}, "equivalent": {},
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9+#.\-]*`)
var numericOnly = regexp.MustCompile(`^[0-9.]+$`)

// FrequencyAnalyzer counts term frequencies across job descriptions
type FrequencyAnalyzer struct {
	cfg       *common.AnalysisConfig
	logger    arbor.ILogger
	stopWords map[string]struct{}
	whitelist map[string]struct{}
}

// NewFrequencyAnalyzer creates an analyzer with the default stop word list
// extended by the configured custom words. When a tech keywords file is
// configured its terms get ranking priority over plain frequency hits.
func NewFrequencyAnalyzer(cfg *common.AnalysisConfig, logger arbor.ILogger) *FrequencyAnalyzer {
	stopWords := make(map[string]struct{}, len(defaultStopWords)+len(cfg.CustomStopWords))
	for w := range defaultStopWords {
		stopWords[w] = struct{}{}
	}
	for _, w := range cfg.CustomStopWords {
		stopWords[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	a := &FrequencyAnalyzer{
		cfg:       cfg,
		logger:    logger,
		stopWords: stopWords,
	}

	if cfg.TechKeywordsFile != "" {
		whitelist, err := loadTechKeywords(cfg.TechKeywordsFile)
		if err != nil {
			logger.Warn().
				Str("file", cfg.TechKeywordsFile).
				Err(err).
				Msg("Tech keywords file not loaded, ranking by frequency only")
		} else {
			a.whitelist = whitelist
			logger.Debug().
				Str("file", cfg.TechKeywordsFile).
				Int("terms", len(whitelist)).
				Msg("Tech keywords loaded")
		}
	}

	return a
}

// loadTechKeywords reads one keyword per line, lowercased. Blank lines and
// lines starting with # are skipped.
func loadTechKeywords(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	keywords := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords[line] = struct{}{}
	}
	return keywords, nil
}

// Analyze tokenizes every usable job description and returns the top N terms
// by frequency, ties broken alphabetically
func (a *FrequencyAnalyzer) Analyze(records []models.JobRecord) []models.KeywordScore {
	counts := make(map[string]int)

	analyzed := 0
	for _, rec := range records {
		if rec.JobDescription == "" || rec.DescriptionFailed() {
			continue
		}
		analyzed++
		for _, token := range a.Tokenize(rec.JobDescription) {
			counts[token]++
		}
	}

	scores := a.rank(counts)

	a.logger.Info().
		Int("descriptions", analyzed).
		Int("distinct_terms", len(counts)).
		Int("returned", len(scores)).
		Msg("Frequency analysis complete")

	return scores
}

// Tokenize lowercases the text and returns the terms that survive stop word
// and length filtering. Tokens keep +, #, . and - so names like c++, c# and
// node.js come through intact.
func (a *FrequencyAnalyzer) Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)

	minLen := a.cfg.MinWordLength
	if minLen < 1 {
		minLen = 1
	}

	var tokens []string
	for _, t := range raw {
		t = strings.Trim(t, ".-")
		if len(t) < minLen {
			continue
		}
		if _, stop := a.stopWords[t]; stop {
			continue
		}
		if a.cfg.RemoveNumbers && numericOnly.MatchString(t) {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// rank converts a frequency map into a sorted, truncated score list. With a
// whitelist loaded, whitelisted terms rank ahead of the rest and remaining
// slots are topped up with the highest-frequency other terms.
func (a *FrequencyAnalyzer) rank(counts map[string]int) []models.KeywordScore {
	var listed, rest []models.KeywordScore
	for term, count := range counts {
		if count < a.cfg.MinFrequency {
			continue
		}
		score := models.KeywordScore{
			Keyword:   term,
			Frequency: count,
			Score:     float64(count),
			Sources:   []string{"traditional"},
		}
		if _, ok := a.whitelist[term]; ok {
			listed = append(listed, score)
		} else {
			rest = append(rest, score)
		}
	}

	byFrequency := func(scores []models.KeywordScore) func(i, j int) bool {
		return func(i, j int) bool {
			if scores[i].Frequency != scores[j].Frequency {
				return scores[i].Frequency > scores[j].Frequency
			}
			return scores[i].Keyword < scores[j].Keyword
		}
	}
	sort.Slice(listed, byFrequency(listed))
	sort.Slice(rest, byFrequency(rest))

	scores := append(listed, rest...)
	if a.cfg.TopN > 0 && len(scores) > a.cfg.TopN {
		scores = scores[:a.cfg.TopN]
	}
	return scores
}
