package providers

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// OpenAIProvider answers single-turn prompts with the chat-completions API.
// It works with any OpenAI-compatible endpoint via APIBase.
type OpenAIProvider struct {
	client       *openai.Client
	spec         *ProviderSpec
	defaultModel string
}

// NewOpenAIProvider constructs a provider over a shared client. A nil client
// makes every Generate fail with a missing-key error.
func NewOpenAIProvider(client *openai.Client, defaultModel string) *OpenAIProvider {
	spec := FindByName("openai")
	if defaultModel == "" {
		defaultModel = spec.DefaultModel
	}
	return &OpenAIProvider{client: client, spec: spec, defaultModel: defaultModel}
}

func (p *OpenAIProvider) Name() string         { return p.spec.Name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Generate sends req.Message as a single user turn. OpenAI has no reusable
// numeric context, so the response context is always empty.
func (p *OpenAIProvider) Generate(ctx context.Context, req schema.GenerateRequest) (schema.GenerateResponse, error) {
	if p.client == nil {
		return schema.GenerateResponse{}, missingKey(p.spec)
	}
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Message)},
	})
	if err != nil {
		return schema.GenerateResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return schema.GenerateResponse{}, errors.New("no response from OpenAI")
	}
	return schema.GenerateResponse{Response: resp.Choices[0].Message.Content, Context: []int{}}, nil
}
