// Package providers implements the plain chat backends (OpenAI, Gemini,
// Anthropic, Ollama) and selects one per request from the model name.
package providers

import (
	"fmt"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// Params are the raw values needed to construct any schema.ChatProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	ProviderName string // registry name, e.g. "openai", "ollama"
}

// ChatProvider is the interface every chat backend satisfies.
type ChatProvider = schema.ChatProvider

func missingKey(spec *ProviderSpec) error {
	return fmt.Errorf("%s is not configured", spec.EnvKey)
}
