package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/peto/internal/common"
)

// GeminiProvider talks to the Google Gemini API
type GeminiProvider struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiProvider creates a Gemini-backed provider
func NewGeminiProvider(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	timeout := 2 * time.Minute
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid gemini.timeout %q: %w", config.Timeout, err)
		}
		timeout = parsed
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Info().Str("model", config.Model).Msg("Gemini provider initialized")

	return &GeminiProvider{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// Name identifies the backend for logging
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete sends one prompt and returns the response text. Rate-limit
// responses are retried with backoff, honoring the delay the API suggests.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.config.Temperature),
	}

	var text string
	err := WithRateLimitRetry(callCtx, p.logger, func() error {
		resp, err := p.client.Models.GenerateContent(callCtx, p.config.Model, contents, config)
		if err != nil {
			return err
		}
		if len(resp.Candidates) == 0 {
			return fmt.Errorf("gemini returned no candidates")
		}
		text = resp.Text()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	return text, nil
}
