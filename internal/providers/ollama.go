package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// DefaultOllamaHost is used when no host is configured.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaProvider answers prompts with a local Ollama server. It is the only
// provider that returns numeric context tokens for follow-up requests.
type OllamaProvider struct {
	client       *api.Client
	host         string
	defaultModel string
}

// NewOllamaProvider constructs a provider for host.
func NewOllamaProvider(host, defaultModel string) (*OllamaProvider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if defaultModel == "" {
		defaultModel = FindByName("ollama").DefaultModel
	}
	return &OllamaProvider{
		client:       api.NewClient(base, &http.Client{Timeout: 5 * time.Minute}),
		host:         host,
		defaultModel: defaultModel,
	}, nil
}

func (p *OllamaProvider) Name() string         { return "ollama" }
func (p *OllamaProvider) DefaultModel() string { return p.defaultModel }

// Host returns the server URL.
func (p *OllamaProvider) Host() string { return p.host }

// Generate runs a non-streaming generate call, resuming from req.Context.
func (p *OllamaProvider) Generate(ctx context.Context, req schema.GenerateRequest) (schema.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	stream := false
	genReq := &api.GenerateRequest{
		Model:   model,
		Prompt:  req.Message,
		Context: req.Context,
		Stream:  &stream,
	}

	var out schema.GenerateResponse
	err := p.client.Generate(ctx, genReq, func(r api.GenerateResponse) error {
		out.Response += r.Response
		if r.Done {
			out.Context = r.Context
		}
		return nil
	})
	if err != nil {
		return schema.GenerateResponse{}, fmt.Errorf("ollama generate: %w", err)
	}
	return out, nil
}

// Ping checks the server is reachable.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Heartbeat(ctx)
}
