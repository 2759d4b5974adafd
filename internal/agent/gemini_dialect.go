package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/catalog"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// GeminiDialect speaks the Gemini generateContent function-calling API.
type GeminiDialect struct {
	client *genai.Client
	model  string
}

var _ Dialect = (*GeminiDialect)(nil)

// NewGeminiDialect returns a view of the shared client bound to model.
func NewGeminiDialect(client *genai.Client, model string) *GeminiDialect {
	return &GeminiDialect{client: client, model: model}
}

func (d *GeminiDialect) Name() string { return "Gemini" }

func (d *GeminiDialect) Start(_ context.Context, system, task string, tools []schema.ToolDescriptor) (Conversation, error) {
	decls, err := toGeminiDeclarations(tools)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{}
	if len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return &geminiConversation{
		models: d.client.Models,
		model:  d.model,
		config: cfg,
		history: []*genai.Content{
			textContent("user", system),
			textContent("model", GeminiAcknowledgement),
			textContent("user", task),
		},
	}, nil
}

// contentGenerator is the slice of genai.Models the conversation needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiConversation struct {
	models  contentGenerator
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
}

func (c *geminiConversation) Send(ctx context.Context) (Reply, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, c.history, c.config)
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Reply{}, errors.New("no response from Gemini")
	}

	content := resp.Candidates[0].Content
	if content.Role == "" {
		content.Role = "model"
	}
	c.history = append(c.history, content)
	return fromGeminiResponse(resp), nil
}

// AddToolResults sends every result of the round in one user turn.
func (c *geminiConversation) AddToolResults(calls []schema.ToolCallRequest, results []schema.ToolCallResult) {
	parts := make([]*genai.Part, 0, len(calls))
	for i, call := range calls {
		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       call.CallID,
			Name:     call.ToolName,
			Response: map[string]any{"result": results[i].Wire()},
		}})
	}
	c.history = append(c.history, &genai.Content{Role: "user", Parts: parts})
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) Reply {
	var reply Reply
	for i, fc := range resp.FunctionCalls() {
		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", fc.Name, i)
		}
		reply.ToolCalls = append(reply.ToolCalls, schema.ToolCallRequest{
			CallID:    id,
			ToolName:  fc.Name,
			Arguments: args,
		})
	}
	reply.Text = resp.Text()
	return reply
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}

// toGeminiDeclarations converts the catalog adapter's Gemini declarations
// into typed genai declarations.
func toGeminiDeclarations(tools []schema.ToolDescriptor) ([]*genai.FunctionDeclaration, error) {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, decl := range catalog.ToProviderFormat(tools, catalog.DialectGemini) {
		name, _ := decl["name"].(string)
		desc, _ := decl["description"].(string)

		params, err := toGeminiSchema(decl["parameters"])
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        name,
			Description: desc,
			Parameters:  params,
		})
	}
	return out, nil
}

// toGeminiSchema converts a JSON-schema-like map into a genai.Schema. Type
// names are upper-cased and nullable union types collapse to their non-null
// member.
func toGeminiSchema(v any) (*genai.Schema, error) {
	b, err := json.Marshal(normalizeSchema(v))
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var s genai.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// unsupportedSchemaKeys are JSON-schema keywords the Gemini schema rejects.
var unsupportedSchemaKeys = []string{"$schema", "additionalProperties", "$ref", "$defs", "definitions"}

func normalizeSchema(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = val
		}
		for _, k := range unsupportedSchemaKeys {
			delete(out, k)
		}

		switch t := out["type"].(type) {
		case string:
			out["type"] = strings.ToUpper(t)
		case []any:
			for _, member := range t {
				if s, ok := member.(string); ok {
					if s == "null" {
						out["nullable"] = true
						continue
					}
					out["type"] = strings.ToUpper(s)
				}
			}
			if _, ok := out["type"].(string); !ok {
				delete(out, "type")
			}
		}

		if props, ok := out["properties"].(map[string]any); ok {
			np := make(map[string]any, len(props))
			for k, p := range props {
				np[k] = normalizeSchema(p)
			}
			out["properties"] = np
		}
		if items, ok := out["items"]; ok {
			out["items"] = normalizeSchema(items)
		}
		if anyOf, ok := out["anyOf"].([]any); ok {
			na := make([]any, len(anyOf))
			for i, a := range anyOf {
				na[i] = normalizeSchema(a)
			}
			out["anyOf"] = na
		}
		return out
	default:
		return v
	}
}
