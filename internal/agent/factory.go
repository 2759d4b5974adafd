package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// Provider selects the dialect of an agent run.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ParseProvider maps s onto a Provider, falling back to def for empty or
// unknown values.
func ParseProvider(s string, def Provider) Provider {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderGemini:
		return ProviderGemini
	default:
		return def
	}
}

// DialectBuilder creates a dialect bound to model.
type DialectBuilder func(ctx context.Context, model string) (Dialect, error)

// DialectSettings configures one provider.
type DialectSettings struct {
	DefaultModel  string
	MaxIterations int
}

// FactorySettings configures an AgentFactory.
type FactorySettings struct {
	OpenAI        DialectSettings
	Gemini        DialectSettings
	RunTimeout    time.Duration
	ParallelTools bool
}

type dialectEntry struct {
	build    DialectBuilder
	settings DialectSettings
}

// AgentFactory creates per-run LoopRunners. It holds construction-time
// dependencies; created runners share the catalog and the executor.
type AgentFactory struct {
	catalog  schema.ToolCatalog
	executor BatchExecutor
	tracer   Tracer
	timeout  time.Duration
	parallel bool

	dialects map[Provider]dialectEntry
}

// Clients are the long-lived SDK clients the dialects run on. A nil client
// means the provider has no API key.
type Clients struct {
	OpenAI *openai.Client
	Gemini *genai.Client
}

// NewFactory constructs an AgentFactory with the OpenAI and Gemini dialects
// registered from settings. Every runner shares clients.
func NewFactory(settings FactorySettings, clients Clients, catalog schema.ToolCatalog, executor BatchExecutor, tracer Tracer) *AgentFactory {
	f := &AgentFactory{
		catalog:  catalog,
		executor: executor,
		tracer:   tracer,
		timeout:  settings.RunTimeout,
		parallel: settings.ParallelTools,
		dialects: make(map[Provider]dialectEntry, 2),
	}

	oa := withDefaults(settings.OpenAI, "gpt-4o", 20)
	f.WithDialect(ProviderOpenAI, oa, func(_ context.Context, model string) (Dialect, error) {
		if clients.OpenAI == nil {
			return nil, fmt.Errorf("OPENAI_API_KEY is not configured")
		}
		return NewOpenAIDialect(clients.OpenAI, model), nil
	})

	gm := withDefaults(settings.Gemini, "gemini-2.0-flash", 60)
	f.WithDialect(ProviderGemini, gm, func(_ context.Context, model string) (Dialect, error) {
		if clients.Gemini == nil {
			return nil, fmt.Errorf("GEMINI_API_KEY is not configured")
		}
		return NewGeminiDialect(clients.Gemini, model), nil
	})
	return f
}

// WithDialect registers or replaces the dialect used for p.
func (f *AgentFactory) WithDialect(p Provider, settings DialectSettings, build DialectBuilder) *AgentFactory {
	f.dialects[p] = dialectEntry{build: build, settings: settings}
	return f
}

// DefaultModel returns the model used for p when a request names none.
func (f *AgentFactory) DefaultModel(p Provider) string {
	return f.dialects[p].settings.DefaultModel
}

// NewRunner creates a LoopRunner for p. An empty model selects the
// provider's default.
func (f *AgentFactory) NewRunner(ctx context.Context, p Provider, model string) (*LoopRunner, error) {
	entry, ok := f.dialects[p]
	if !ok {
		return nil, fmt.Errorf("unsupported agent provider %q", p)
	}
	if model == "" {
		model = entry.settings.DefaultModel
	}

	dialect, err := entry.build(ctx, model)
	if err != nil {
		return nil, err
	}
	settings := schema.NewAgentSettings(model, entry.settings.MaxIterations, f.timeout, f.parallel)
	return NewLoopRunner(dialect, f.catalog, f.executor, settings, f.tracer), nil
}

func withDefaults(s DialectSettings, model string, maxIter int) DialectSettings {
	if s.DefaultModel == "" {
		s.DefaultModel = model
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = maxIter
	}
	return s
}
