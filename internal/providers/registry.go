package providers

import (
	"strings"

	"github.com/armon/go-radix"
)

// ProviderSpec is the metadata record for one chat backend.
type ProviderSpec struct {
	Name         string   // config field name, e.g. "openai"
	Prefixes     []string // lowercase model-name prefixes routed to this provider
	EnvKey       string   // env var holding the API key; empty for local backends
	DisplayName  string   // shown in `tutorchat status`
	DefaultModel string
	IsLocal      bool // runs without an API key
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// ---------------------------------------------------------------------------
// PROVIDERS is the registry. The last entry is the fallback for models no
// prefix matches.
// ---------------------------------------------------------------------------

var PROVIDERS = []ProviderSpec{
	{
		Name:         "openai",
		Prefixes:     []string{"gpt", "o1", "o3"},
		EnvKey:       "OPENAI_API_KEY",
		DisplayName:  "OpenAI",
		DefaultModel: "gpt-3.5-turbo",
	},
	{
		Name:         "gemini",
		Prefixes:     []string{"gemini"},
		EnvKey:       "GEMINI_API_KEY",
		DisplayName:  "Gemini",
		DefaultModel: "gemini-2.0-flash",
	},
	{
		Name:         "anthropic",
		Prefixes:     []string{"claude"},
		EnvKey:       "ANTHROPIC_API_KEY",
		DisplayName:  "Anthropic",
		DefaultModel: "claude-3-5-haiku-latest",
	},
	{
		Name:         "ollama",
		DisplayName:  "Ollama",
		DefaultModel: "Llama2:7b-chat",
		IsLocal:      true,
	},
}

var prefixTree = buildPrefixTree()

func buildPrefixTree() *radix.Tree {
	t := radix.New()
	for i := range PROVIDERS {
		for _, p := range PROVIDERS[i].Prefixes {
			t.Insert(p, &PROVIDERS[i])
		}
	}
	return t
}

// FindByModel returns the provider whose longest prefix matches model, or the
// local fallback when none does.
func FindByModel(model string) *ProviderSpec {
	key := strings.ToLower(strings.TrimSpace(model))
	if key != "" {
		if _, v, ok := prefixTree.LongestPrefix(key); ok {
			return v.(*ProviderSpec)
		}
	}
	return Fallback()
}

// FindByName returns the provider called name, or nil.
func FindByName(name string) *ProviderSpec {
	name = strings.ToLower(name)
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// Fallback is the provider used for unrecognised or empty model names.
func Fallback() *ProviderSpec {
	return &PROVIDERS[len(PROVIDERS)-1]
}
