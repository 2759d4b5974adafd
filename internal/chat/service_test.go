package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/agent"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/providers"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
)

type fakeProvider struct {
	name  string
	reply string
	ctx   []int
	fail  func(schema.GenerateRequest) error

	mu    sync.Mutex
	calls []schema.GenerateRequest
}

func (p *fakeProvider) Name() string         { return p.name }
func (p *fakeProvider) DefaultModel() string { return "" }

func (p *fakeProvider) Generate(_ context.Context, req schema.GenerateRequest) (schema.GenerateResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	if p.fail != nil {
		if err := p.fail(req); err != nil {
			return schema.GenerateResponse{}, err
		}
	}
	return schema.GenerateResponse{Response: p.reply, Context: p.ctx}, nil
}

type fakeGenerator struct {
	result schema.RunResult
	err    error
	got    []agent.CourseRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req agent.CourseRequest, _ func(string)) (schema.RunResult, error) {
	g.got = append(g.got, req)
	return g.result, g.err
}

type fixture struct {
	svc    *Service
	store  *session.Manager
	ollama *fakeProvider
	openai *fakeProvider
	gen    *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := session.NewManager(filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:  store,
		ollama: &fakeProvider{name: "ollama", reply: "local reply", ctx: []int{7, 8}},
		openai: &fakeProvider{name: "openai", reply: "cloud reply"},
		gen:    &fakeGenerator{},
	}
	router := providers.NewRouterWith(map[string]schema.ChatProvider{
		"ollama": f.ollama,
		"openai": f.openai,
	})
	f.svc = NewService(store, router, f.gen, "Llama2:7b-chat")
	return f
}

func TestIsCourseCreationIntent(t *testing.T) {
	cases := map[string]bool{
		"Perfecto, ahora CREA EL CURSO por favor":  false,
		"Perfecto, ahora crear el curso por favor": true,
		"please Create The Course":                 true,
		"build the course now":                     true,
		"¿Puedes implementar el curso?":            true,
		"tell me about courses":                    false,
		"":                                         false,
	}
	for msg, want := range cases {
		assert.Equal(t, want, IsCourseCreationIntent(msg), msg)
	}
}

func TestChat_NewChatUsesDefaultLocalModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Chat(ctx, Request{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "local reply", resp.Response)
	assert.Equal(t, []int{7, 8}, resp.Context)
	require.Len(t, f.ollama.calls, 1)
	assert.Equal(t, "hola", f.ollama.calls[0].Message)

	c, err := f.store.Find(ctx, resp.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "Llama2:7b-chat", c.ModelName)
	require.Equal(t, 2, c.Len())
	last, _ := c.Messages.Last()
	assert.Equal(t, schema.RoleAssistant, last.Role)
	assert.Equal(t, []int{7, 8}, last.Context)
}

func TestChat_LocalReusesStoredContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, Request{Message: "uno"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, Request{Message: "dos", ChatID: first.ChatID})
	require.NoError(t, err)

	require.Len(t, f.ollama.calls, 2)
	assert.Equal(t, []int{7, 8}, f.ollama.calls[1].Context)
	assert.Equal(t, "dos", f.ollama.calls[1].Message)
}

func TestChat_LocalRetriesWithoutContext(t *testing.T) {
	f := newFixture(t)
	f.ollama.fail = func(req schema.GenerateRequest) error {
		if len(req.Context) > 0 {
			return errors.New("context too long")
		}
		return nil
	}

	resp, err := f.svc.Chat(context.Background(), Request{Message: "hola", Context: []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "local reply", resp.Response)
	require.Len(t, f.ollama.calls, 2)
	assert.Nil(t, f.ollama.calls[1].Context)
}

func TestChat_CloudFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.openai.fail = func(schema.GenerateRequest) error { return errors.New("rate limited") }

	_, err := f.svc.Chat(context.Background(), Request{Message: "hi", Model: "gpt-4o", Context: []int{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Len(t, f.openai.calls, 1)
}

func TestChat_CloudGetsTranscriptAndSwitchesModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, Request{Message: "hola"})
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, Request{Message: "sigue", ChatID: first.ChatID, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	require.Len(t, f.openai.calls, 1)
	assert.Equal(t, "User: hola\n\nAssistant: local reply\n\nUser: sigue", f.openai.calls[0].Message)
	assert.Equal(t, "gpt-4o-mini", f.openai.calls[0].Model)

	c, err := f.store.Find(ctx, first.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.ModelName)
	assert.Equal(t, 4, c.Len())
}

func TestChat_UnknownChat(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Chat(context.Background(), Request{Message: "hi", ChatID: "missing"})
	assert.ErrorIs(t, err, session.ErrChatNotFound)
}

func TestChat_CreationIntentRunsAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.result = schema.RunResult{
		Success:       true,
		FinalResponse: "Listo.",
		ExecutionLog: []schema.ExecutionLogEntry{
			{Tool: "create_course", Args: map[string]any{"title": "Go"}, Result: schema.OKResult("create_course", map[string]any{"data": map[string]any{"idCourse": "c-1"}})},
			{Tool: "create_section", Result: schema.OKResult("create_section", map[string]any{"idSection": "s-1"})},
			{Tool: "create_lesson", Result: schema.OKResult("create_lesson", map[string]any{"idLesson": "l-1"})},
			{Tool: "create_lesson", Result: schema.OKResult("create_lesson", map[string]any{"idLesson": "l-2"})},
		},
	}

	first, err := f.svc.Chat(ctx, Request{Message: "Quiero un curso de Go"})
	require.NoError(t, err)

	resp, err := f.svc.Chat(ctx, Request{Message: "Ok, crear el curso", ChatID: first.ChatID, UserID: "inst-9"})
	require.NoError(t, err)

	require.Len(t, f.gen.got, 1)
	got := f.gen.got[0]
	assert.Equal(t, agent.ProviderGemini, got.Provider)
	assert.Equal(t, AgentModel, got.Model)
	assert.Equal(t, "inst-9", got.InstructorID)
	assert.Contains(t, got.Prompt, "USER: Quiero un curso de Go")
	assert.Contains(t, got.Prompt, "USER: Ok, crear el curso")

	assert.Contains(t, resp.Response, "**ID del Curso:** c-1")
	assert.Contains(t, resp.Response, "**Secciones creadas:** 1")
	assert.Contains(t, resp.Response, "**Lecciones creadas:** 2")
	assert.Equal(t, []int{}, resp.Context)
	require.NotNil(t, resp.AgentExecution)
	assert.Len(t, f.ollama.calls, 1)

	c, err := f.store.Find(ctx, first.ChatID)
	require.NoError(t, err)
	assert.Equal(t, session.TypeCourse, c.ChatType)
	assert.Equal(t, "c-1", c.CourseID)
	last, _ := c.Messages.Last()
	assert.Equal(t, AgentModel, last.Model)
}

func TestChat_CreationIntentFailureSummary(t *testing.T) {
	f := newFixture(t)
	f.gen.result = schema.RunResult{Success: false, Error: "iteration limit reached", PartialResponse: "a medias"}

	resp, err := f.svc.Chat(context.Background(), Request{Message: "generate the course"})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "Intenté crear el curso")
	assert.Contains(t, resp.Response, "a medias")
}

func TestChat_CreationIntentAgentError(t *testing.T) {
	f := newFixture(t)
	f.gen.err = &agent.LoopError{Dialect: "Gemini", Err: errors.New("GEMINI_API_KEY is not configured")}

	_, err := f.svc.Chat(context.Background(), Request{Message: "create course"})
	var loopErr *agent.LoopError
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, "Gemini", loopErr.Dialect)
}

func TestGenerateCourseStructure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.GenerateCourseStructure(ctx, StructureRequest{Idea: "Go for beginners", Guide: "3 sections", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "cloud reply", resp.Response)
	require.Len(t, f.openai.calls, 1)
	assert.Contains(t, f.openai.calls[0].Message, "Senior Curriculum Developer")
	assert.Contains(t, f.openai.calls[0].Message, "Go for beginners")

	c, err := f.store.Find(ctx, resp.ChatID)
	require.NoError(t, err)
	assert.Equal(t, session.TypeCourse, c.ChatType)
	assert.Equal(t, "Course Idea: Go for beginners\n\nGuidelines: 3 sections", c.Messages.Messages[0].Content)

	again, err := f.svc.GenerateCourseStructure(ctx, StructureRequest{Idea: "more", Guide: "x", ChatID: resp.ChatID})
	require.NoError(t, err)
	assert.Equal(t, resp.ChatID, again.ChatID)
}

func TestGenerateCourseStructure_RejectsGeneralChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	general, err := f.svc.Chat(ctx, Request{Message: "hola"})
	require.NoError(t, err)

	_, err = f.svc.GenerateCourseStructure(ctx, StructureRequest{Idea: "x", Guide: "y", ChatID: general.ChatID})
	assert.ErrorIs(t, err, ErrNotCourseChat)
}

func TestListGetDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Chat(ctx, Request{Message: "hola"})
	require.NoError(t, err)

	list, err := f.svc.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "local reply", list[0].LastMessage)

	c, err := f.svc.GetChat(ctx, resp.ChatID)
	require.NoError(t, err)
	assert.Equal(t, resp.ChatID, c.View().ID)

	require.NoError(t, f.svc.DeleteChat(ctx, resp.ChatID))
	_, err = f.svc.GetChat(ctx, resp.ChatID)
	assert.ErrorIs(t, err, session.ErrChatNotFound)
}
