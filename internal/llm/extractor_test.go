package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// fakeProvider returns canned responses in order
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no more responses")
}

func (f *fakeProvider) Name() string { return "fake" }

func newTestExtractor(provider Provider) *Extractor {
	return &Extractor{
		provider: provider,
		logger:   common.GetLogger(),
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
}

func TestParseExtractionResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		summary  string
		skills   []string
	}{
		{
			name:     "clean json",
			response: `{"summary": "Builds pipelines.", "skills": ["Python", "Spark"]}`,
			summary:  "Builds pipelines.",
			skills:   []string{"Python", "Spark"},
		},
		{
			name: "markdown fenced",
			response: "```json\n" + `{"summary": "Go services.", "skills": ["Go", "Kubernetes"]}` + "\n```",
			summary:  "Go services.",
			skills:   []string{"Go", "Kubernetes"},
		},
		{
			name:     "prose around json",
			response: `Here is the analysis you asked for: {"summary": "X", "skills": ["SQL"]} Hope that helps!`,
			summary:  "X",
			skills:   []string{"SQL"},
		},
		{
			name:     "blank skills dropped",
			response: `{"summary": "Y", "skills": ["Go", "  ", ""]}`,
			summary:  "Y",
			skills:   []string{"Go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseExtractionResponse(tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.summary, result.Summary)
			assert.Equal(t, tt.skills, result.Skills)
		})
	}
}

func TestParseExtractionResponse_Malformed(t *testing.T) {
	_, err := parseExtractionResponse("I cannot analyze this posting.")
	assert.Error(t, err)

	_, err = parseExtractionResponse(`{"summary": unterminated`)
	assert.Error(t, err)
}

func TestProcessJobs_SkipsFailedDescriptions(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"summary": "First role.", "skills": ["Go"]}`,
	}}
	e := newTestExtractor(provider)

	records := []models.JobRecord{
		{JobID: "1", JobTitle: "Go Developer", JobDescription: "We need a Go developer."},
		{JobID: "2", JobDescription: models.FailureMarker + "]"},
		{JobID: "3"},
	}

	out := e.ProcessJobs(context.Background(), records)

	require.Len(t, out, 3)
	assert.Equal(t, "First role.", out[0].Summary)
	assert.Equal(t, []string{"Go"}, out[0].Skills)
	assert.Empty(t, out[1].Summary)
	assert.Empty(t, out[2].Summary)
	assert.Equal(t, 1, provider.calls, "only the usable description reaches the provider")
}

func TestProcessJobs_ProviderErrorLeavesRecordIntact(t *testing.T) {
	provider := &fakeProvider{
		errs:      []error{errors.New("boom"), nil},
		responses: []string{"", `{"summary": "Second.", "skills": []}`},
	}
	e := newTestExtractor(provider)

	records := []models.JobRecord{
		{JobID: "1", JobDescription: "desc one"},
		{JobID: "2", JobDescription: "desc two"},
	}

	out := e.ProcessJobs(context.Background(), records)

	require.Len(t, out, 2)
	assert.Empty(t, out[0].Summary)
	assert.Equal(t, "Second.", out[1].Summary)
}

func TestProcessJobs_TruncatesLongDescriptions(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"summary": "S", "skills": []}`}}
	e := newTestExtractor(provider)

	long := make([]byte, maxDescriptionChars+5000)
	for i := range long {
		long[i] = 'a'
	}

	out := e.ProcessJobs(context.Background(), []models.JobRecord{
		{JobID: "1", JobTitle: "T", JobDescription: string(long)},
	})

	require.Len(t, out, 1)
	require.Len(t, provider.prompts, 1)
	assert.Less(t, len(provider.prompts[0]), maxDescriptionChars+1000)
}

func TestTruncateDescription_KeepsRunesWhole(t *testing.T) {
	// Multibyte text offset so a byte cut would land mid-rune
	long := "x" + strings.Repeat("é", maxDescriptionChars)
	require.Greater(t, len(long), maxDescriptionChars)

	got := truncateDescription(long, maxDescriptionChars)
	assert.LessOrEqual(t, len(got), maxDescriptionChars)
	assert.True(t, utf8.ValidString(got))

	short := "short"
	assert.Equal(t, short, truncateDescription(short, maxDescriptionChars))
}

func TestNewExtractor_UsesProviderRateLimit(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Gemini.RateLimit = "250ms"

	e := NewExtractor(cfg, &fakeProvider{}, common.GetLogger())

	assert.InDelta(t, float64(rate.Every(250*time.Millisecond)), float64(e.limiter.Limit()), 0.001)
}
