package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/catalog"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// OpenAIDialect speaks the OpenAI chat-completions function-calling API.
type OpenAIDialect struct {
	client *openai.Client
	model  string
}

var _ Dialect = (*OpenAIDialect)(nil)

// NewOpenAIDialect returns a view of the shared client bound to model.
func NewOpenAIDialect(client *openai.Client, model string) *OpenAIDialect {
	return &OpenAIDialect{client: client, model: model}
}

func (d *OpenAIDialect) Name() string { return "OpenAI" }

func (d *OpenAIDialect) Start(_ context.Context, system, task string, tools []schema.ToolDescriptor) (Conversation, error) {
	return &openAIConversation{
		client: d.client,
		model:  d.model,
		tools:  toOpenAITools(tools),
		messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(task),
		},
	}, nil
}

type openAIConversation struct {
	client   *openai.Client
	model    string
	tools    []openai.ChatCompletionToolParam
	messages []openai.ChatCompletionMessageParamUnion
}

func (c *openAIConversation) Send(ctx context.Context) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: c.messages,
	}
	if len(c.tools) > 0 {
		params.Tools = c.tools
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return Reply{}, errors.New("no response from OpenAI")
	}

	msg := resp.Choices[0].Message
	c.messages = append(c.messages, toAssistantParam(msg))
	return fromOpenAIMessage(msg), nil
}

func (c *openAIConversation) AddToolResults(calls []schema.ToolCallRequest, results []schema.ToolCallResult) {
	for i, call := range calls {
		c.messages = append(c.messages, openai.ToolMessage(results[i].String(), call.CallID))
	}
}

// toOpenAITools converts the catalog into OpenAI tool params via the catalog
// adapter's function declarations.
func toOpenAITools(tools []schema.ToolDescriptor) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, decl := range catalog.ToProviderFormat(tools, catalog.DialectOpenAI) {
		fn, _ := decl["function"].(map[string]any)
		name, _ := fn["name"].(string)
		desc, _ := fn["description"].(string)
		params, _ := fn["parameters"].(map[string]any)

		def := shared.FunctionDefinitionParam{
			Name:       name,
			Parameters: shared.FunctionParameters(params),
		}
		if desc != "" {
			def.Description = openai.String(desc)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: def})
	}
	return out
}

func toAssistantParam(m openai.ChatCompletionMessage) openai.ChatCompletionMessageParamUnion {
	asst := openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		asst.Content.OfString = openai.String(m.Content)
	}
	if len(m.ToolCalls) > 0 {
		asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

// fromOpenAIMessage normalises a reply. Arguments that are not a JSON object
// become an empty map; the tool then reports the missing fields itself.
func fromOpenAIMessage(m openai.ChatCompletionMessage) Reply {
	reply := Reply{Text: m.Content}
	for _, tc := range m.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				slog.Warn("Malformed tool arguments", "name", tc.Function.Name, "err", err)
				args = map[string]any{}
			}
		}
		if args == nil {
			args = map[string]any{}
		}
		reply.ToolCalls = append(reply.ToolCalls, schema.ToolCallRequest{
			CallID:    tc.ID,
			ToolName:  tc.Function.Name,
			Arguments: args,
		})
	}
	return reply
}
