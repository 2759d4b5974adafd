package schema

import "context"

// GenerateRequest is a single-prompt completion request.
// Context is only meaningful to providers that return token contexts (Ollama).
type GenerateRequest struct {
	Message string
	Model   string
	Context []int
}

// GenerateResponse is the normalised reply of a ChatProvider.
type GenerateResponse struct {
	Response string
	Context  []int
}

// ChatProvider is the interface every plain-chat LLM backend must satisfy:
// given a prompt and an optional model name, return text.
type ChatProvider interface {
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}
