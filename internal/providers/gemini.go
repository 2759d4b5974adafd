package providers

import (
	"context"

	"google.golang.org/genai"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// GeminiProvider answers single-turn prompts with the Gemini API.
type GeminiProvider struct {
	client       *genai.Client
	spec         *ProviderSpec
	defaultModel string
}

// NewGeminiProvider constructs a provider over a shared client. A nil client
// makes every Generate fail with a missing-key error.
func NewGeminiProvider(client *genai.Client, defaultModel string) *GeminiProvider {
	spec := FindByName("gemini")
	if defaultModel == "" {
		defaultModel = spec.DefaultModel
	}
	return &GeminiProvider{client: client, spec: spec, defaultModel: defaultModel}
}

func (p *GeminiProvider) Name() string         { return p.spec.Name }
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

// Generate sends req.Message as a single user turn. The response context is
// always empty.
func (p *GeminiProvider) Generate(ctx context.Context, req schema.GenerateRequest) (schema.GenerateResponse, error) {
	if p.client == nil {
		return schema.GenerateResponse{}, missingKey(p.spec)
	}
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Message), nil)
	if err != nil {
		return schema.GenerateResponse{}, err
	}
	return schema.GenerateResponse{Response: resp.Text(), Context: []int{}}, nil
}
