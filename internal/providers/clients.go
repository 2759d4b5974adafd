package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Clients are the SDK clients shared by the plain chat providers and the
// agent dialects. A nil client means the provider has no API key.
type Clients struct {
	OpenAI *openai.Client
	Gemini *genai.Client
}

// NewOpenAIClient returns the OpenAI client for apiKey, or nil when apiKey is
// empty. A non-empty baseURL points it at any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client
}

// NewGeminiClient returns the Gemini API client for apiKey, or nil when
// apiKey is empty. A non-empty baseURL overrides the API endpoint.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}
