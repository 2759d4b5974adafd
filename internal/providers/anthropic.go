package providers

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

const anthropicMaxTokens = 4096

// AnthropicProvider answers single-turn prompts with the Messages API.
type AnthropicProvider struct {
	client       *anthropic.Client
	spec         *ProviderSpec
	hasKey       bool
	defaultModel string
}

// NewAnthropicProvider constructs a provider from raw config values.
func NewAnthropicProvider(apiKey, apiBase, defaultModel string) *AnthropicProvider {
	spec := FindByName("anthropic")
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	client := anthropic.NewClient(opts...)
	if defaultModel == "" {
		defaultModel = spec.DefaultModel
	}
	return &AnthropicProvider{client: &client, spec: spec, hasKey: apiKey != "", defaultModel: defaultModel}
}

func (p *AnthropicProvider) Name() string         { return p.spec.Name }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) Generate(ctx context.Context, req schema.GenerateRequest) (schema.GenerateResponse, error) {
	if !p.hasKey {
		return schema.GenerateResponse{}, missingKey(p.spec)
	}
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message))},
	})
	if err != nil {
		return schema.GenerateResponse{}, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}
	return schema.GenerateResponse{Response: sb.String(), Context: []int{}}, nil
}
