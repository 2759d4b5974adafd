package providers

import (
	"fmt"
	"log/slog"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// New creates the schema.ChatProvider for p.ProviderName. OpenAI and Gemini
// use the shared clients; their APIKey and APIBase are ignored here.
func New(p Params, clients Clients) (schema.ChatProvider, error) {
	switch p.ProviderName {
	case "openai":
		return NewOpenAIProvider(clients.OpenAI, p.DefaultModel), nil
	case "gemini":
		return NewGeminiProvider(clients.Gemini, p.DefaultModel), nil
	case "anthropic":
		return NewAnthropicProvider(p.APIKey, p.APIBase, p.DefaultModel), nil
	case "ollama":
		return NewOllamaProvider(p.APIBase, p.DefaultModel)
	default:
		return nil, fmt.Errorf("unknown provider %q", p.ProviderName)
	}
}

// Router picks a provider for each request from the model name.
type Router struct {
	providers map[string]schema.ChatProvider
}

// NewRouter builds a Router over the given params, one per provider.
func NewRouter(clients Clients, params ...Params) (*Router, error) {
	r := &Router{providers: make(map[string]schema.ChatProvider, len(params))}
	for _, p := range params {
		prov, err := New(p, clients)
		if err != nil {
			return nil, err
		}
		r.providers[p.ProviderName] = prov
	}
	if _, ok := r.providers[Fallback().Name]; !ok {
		return nil, fmt.Errorf("fallback provider %q is not configured", Fallback().Name)
	}
	return r, nil
}

// NewRouterWith builds a Router from ready-made providers keyed by name.
func NewRouterWith(providers map[string]schema.ChatProvider) *Router {
	return &Router{providers: providers}
}

// Select returns the provider serving model. Models with no configured
// provider go to the fallback.
func (r *Router) Select(model string) schema.ChatProvider {
	spec := FindByModel(model)
	if p, ok := r.providers[spec.Name]; ok {
		return p
	}
	slog.Warn("No provider configured for model, using fallback", "model", model, "provider", spec.Name)
	return r.providers[Fallback().Name]
}

// IsLocal reports whether p is the fallback local provider.
func (r *Router) IsLocal(p schema.ChatProvider) bool {
	return p != nil && p.Name() == Fallback().Name
}

// Providers lists the configured providers.
func (r *Router) Providers() map[string]schema.ChatProvider {
	out := make(map[string]schema.ChatProvider, len(r.providers))
	for k, v := range r.providers {
		out[k] = v
	}
	return out
}
