package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

type fakeGenerator struct {
	responses []*genai.GenerateContentResponse
	seen      [][]*genai.Content
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.seen = append(f.seen, append([]*genai.Content(nil), contents...))
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

func modelReply(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: parts},
	}}}
}

func TestGeminiConversation_HistoryAndResults(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		modelReply(
			&genai.Part{FunctionCall: &genai.FunctionCall{Name: "create_course", Args: map[string]any{"title": "Go"}}},
			&genai.Part{FunctionCall: &genai.FunctionCall{Name: "list_lessons"}},
		),
		modelReply(&genai.Part{Text: "All done."}),
	}}
	conv := &geminiConversation{
		models: gen,
		model:  "gemini-2.0-flash",
		config: &genai.GenerateContentConfig{},
		history: []*genai.Content{
			textContent("user", CourseArchitectPrompt),
			textContent("model", GeminiAcknowledgement),
			textContent("user", "task"),
		},
	}

	reply, err := conv.Send(context.Background())
	require.NoError(t, err)
	require.Len(t, reply.ToolCalls, 2)
	assert.Equal(t, "create_course", reply.ToolCalls[0].ToolName)
	assert.Equal(t, map[string]any{}, reply.ToolCalls[1].Arguments)
	assert.NotEqual(t, reply.ToolCalls[0].CallID, reply.ToolCalls[1].CallID)

	conv.AddToolResults(reply.ToolCalls, []schema.ToolCallResult{
		schema.OKResult("create_course", map[string]any{"idCourse": "c1"}),
		{Tool: "list_lessons", Success: true, Message: "Method not yet implemented in MCP service"},
	})

	reply, err = conv.Send(context.Background())
	require.NoError(t, err)
	assert.True(t, reply.IsFinal())
	assert.Equal(t, "All done.", reply.Text)

	second := gen.seen[1]
	require.Len(t, second, 5)
	assert.Equal(t, GeminiAcknowledgement, second[1].Parts[0].Text)
	assert.Equal(t, "model", second[3].Role)

	results := second[4]
	assert.Equal(t, "user", results.Role)
	require.Len(t, results.Parts, 2)
	fr := results.Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "create_course", fr.Name)
	assert.Equal(t, map[string]any{"success": true, "data": map[string]any{"idCourse": "c1"}}, fr.Response["result"])
}

func TestGeminiConversation_EmptyCandidates(t *testing.T) {
	conv := &geminiConversation{models: &fakeGenerator{responses: []*genai.GenerateContentResponse{{}}}}

	_, err := conv.Send(context.Background())
	assert.ErrorContains(t, err, "no response from Gemini")
}

func TestToGeminiDeclarations(t *testing.T) {
	decls, err := toGeminiDeclarations([]schema.ToolDescriptor{
		{
			Name:        "create_lesson",
			Description: "Create a lesson",
			InputSchema: map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"title":      map[string]any{"type": "string"},
					"order":      map[string]any{"type": "integer"},
					"instructor": map[string]any{"type": []any{"string", "null"}},
					"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []any{"title"},
			},
		},
		{Name: "list_courses"},
	})
	require.NoError(t, err)
	require.Len(t, decls, 2)

	p := decls[0].Parameters
	assert.Equal(t, "create_lesson", decls[0].Name)
	assert.Equal(t, genai.TypeObject, p.Type)
	assert.Equal(t, []string{"title"}, p.Required)
	assert.Equal(t, genai.TypeString, p.Properties["title"].Type)
	assert.Equal(t, genai.TypeInteger, p.Properties["order"].Type)
	assert.Equal(t, genai.TypeString, p.Properties["instructor"].Type)
	assert.Equal(t, genai.TypeString, p.Properties["tags"].Items.Type)

	assert.Equal(t, genai.TypeObject, decls[1].Parameters.Type)
	assert.Empty(t, decls[1].Parameters.Properties)
}
