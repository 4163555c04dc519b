package service

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"policyassist-backend/config"
)

// ModelClient is a provider able to chat and embed
type ModelClient interface {
	Completer
	Embedder
	DocumentEmbedder
}

// NewModelClient builds the configured provider. The returned close
// function releases provider connections.
func NewModelClient(ctx context.Context, cfg config.LLMConfig) (ModelClient, func() error, error) {
	if !cfg.Enabled() {
		return nil, nil, fmt.Errorf("%w: no API key for provider %s", ErrNotConfigured, cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	case config.ProviderGemini:
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client: %w", err)
		}
		return NewGeminiClient(client, cfg.Model, cfg.EmbeddingModel), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
