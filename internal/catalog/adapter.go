// Package catalog converts the provider-neutral MCP tool catalog into the
// function-declaration formats of the supported LLM dialects.
package catalog

import "github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"

// Dialect names a tool-calling API family.
type Dialect string

const (
	DialectOpenAI Dialect = "openai"
	DialectGemini Dialect = "gemini"
)

// ToProviderFormat converts tools into dialect's function declarations.
// Input schemas are passed through as-is; the LLM API is the validator.
func ToProviderFormat(tools []schema.ToolDescriptor, dialect Dialect) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		switch dialect {
		case DialectGemini:
			out = append(out, ToGemini(t))
		default:
			out = append(out, ToOpenAI(t))
		}
	}
	return out
}

// ToOpenAI returns the OpenAI "function" tool declaration for t.
func ToOpenAI(t schema.ToolDescriptor) map[string]any {
	params := t.InputSchema
	if params == nil {
		params = emptyObjectSchema("object")
	}
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  params,
		},
	}
}

// ToGemini returns the Gemini function declaration for t. Gemini only takes
// the top-level properties and required list under an OBJECT type.
func ToGemini(t schema.ToolDescriptor) map[string]any {
	params := emptyObjectSchema("OBJECT")
	if t.InputSchema != nil {
		if props, ok := t.InputSchema["properties"]; ok && props != nil {
			params["properties"] = props
		}
		if req, ok := t.InputSchema["required"]; ok && req != nil {
			params["required"] = req
		}
	}
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"parameters":  params,
	}
}

func emptyObjectSchema(typ string) map[string]any {
	return map[string]any{
		"type":       typ,
		"properties": map[string]any{},
		"required":   []any{},
	}
}
