package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
)

// Provider is the surface the extractor uses to talk to an AI backend
type Provider interface {
	// Complete sends one prompt and returns the raw text response
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend for logging
	Name() string
}

// NewProvider creates the configured AI provider. Gemini is the default.
func NewProvider(cfg *common.Config, logger arbor.ILogger) (Provider, error) {
	switch cfg.LLM.Provider {
	case common.LLMProviderClaude:
		return NewClaudeProvider(&cfg.Claude, logger)
	case common.LLMProviderGemini, "":
		return NewGeminiProvider(&cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
