package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
)

// ClaudeProvider talks to the Anthropic Claude API
type ClaudeProvider struct {
	config  *common.ClaudeConfig
	logger  arbor.ILogger
	client  anthropic.Client
	timeout time.Duration
}

// NewClaudeProvider creates a Claude-backed provider
func NewClaudeProvider(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Claude API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	timeout := 2 * time.Minute
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid claude.timeout %q: %w", config.Timeout, err)
		}
		timeout = parsed
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Info().Str("model", config.Model).Msg("Claude provider initialized")

	return &ClaudeProvider{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// Name identifies the backend for logging
func (p *ClaudeProvider) Name() string {
	return "claude"
}

// Complete sends one prompt and returns the concatenated text blocks of the
// response
func (p *ClaudeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.config.Temperature))
	}

	var text string
	err := WithRateLimitRetry(callCtx, p.logger, func() error {
		resp, err := p.client.Messages.New(callCtx, params)
		if err != nil {
			return err
		}

		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return fmt.Errorf("claude returned no text content")
		}
		text = sb.String()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("claude completion failed: %w", err)
	}

	return text, nil
}
