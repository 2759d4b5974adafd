// Package chat implements conversational chat over the configured LLM
// providers, with hand-off to the course-building agent when the user asks
// for the discussed course to be created.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/agent"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
)

// AgentModel is the model used when a chat hands off to the agent.
// Tool calling needs it even when the chat itself runs on a local model.
const AgentModel = "gemini-2.0-flash"

// ErrNotCourseChat is returned when a course-structure request names a chat
// that is not a course chat.
var ErrNotCourseChat = errors.New("chat is not a course chat")

// Store persists chats.
type Store interface {
	GetOrCreate(ctx context.Context, id, modelName, chatType string) (*session.Chat, error)
	Find(ctx context.Context, id string) (*session.Chat, error)
	Save(ctx context.Context, c *session.Chat) error
	List(ctx context.Context, limit int) ([]session.Summary, error)
	Delete(ctx context.Context, id string) error
}

// ProviderSelector picks a chat provider for a model name.
type ProviderSelector interface {
	Select(model string) schema.ChatProvider
	IsLocal(p schema.ChatProvider) bool
}

// CourseGenerator runs the course-building agent.
type CourseGenerator interface {
	Generate(ctx context.Context, req agent.CourseRequest, onProgress func(string)) (schema.RunResult, error)
}

// Request is one chat turn.
type Request struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
	Model   string `json:"model,omitempty"`
	Context []int  `json:"context,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// Response is the reply to a chat turn. AgentExecution is set when the turn
// ran the course-building agent.
type Response struct {
	ChatID         string            `json:"chatId"`
	Response       string            `json:"response"`
	Context        []int             `json:"context"`
	AgentExecution *schema.RunResult `json:"agentExecution,omitempty"`
}

// StructureRequest asks for a course outline.
type StructureRequest struct {
	Idea   string `json:"idea"`
	Guide  string `json:"guide"`
	Model  string `json:"model,omitempty"`
	ChatID string `json:"chatId,omitempty"`
}

// StructureResponse carries the generated outline.
type StructureResponse struct {
	ChatID   string `json:"chatId"`
	Response string `json:"response"`
}

// Service answers chat turns and keeps their history.
type Service struct {
	store        Store
	providers    ProviderSelector
	courses      CourseGenerator
	defaultModel string
}

// NewService returns a Service. defaultModel names the model used for chats
// created without one.
func NewService(store Store, providers ProviderSelector, courses CourseGenerator, defaultModel string) *Service {
	return &Service{
		store:        store,
		providers:    providers,
		courses:      courses,
		defaultModel: defaultModel,
	}
}

// Chat answers req, appending both the user message and the reply to the
// chat named by req.ChatID (or a new chat).
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}
	c, err := s.store.GetOrCreate(ctx, req.ChatID, modelName, session.TypeGeneral)
	if err != nil {
		return Response{}, err
	}

	model := req.Model
	if model == "" {
		model = c.ModelName
	}
	if model == "" {
		model = s.defaultModel
	}

	prior := c.History()
	c.AddUser(req.Message, model)

	if IsCourseCreationIntent(req.Message) {
		slog.Info("Course creation intent detected", "chat_id", c.ID)
		return s.createFromHistory(ctx, c, req)
	}

	provider := s.providers.Select(model)
	genReq := schema.GenerateRequest{
		Message: s.prompt(provider, prior, req),
		Model:   model,
		Context: req.Context,
	}
	if s.providers.IsLocal(provider) && len(genReq.Context) == 0 {
		genReq.Context = prior.LastContext()
	}

	resp, err := provider.Generate(ctx, genReq)
	if err != nil && s.providers.IsLocal(provider) && len(genReq.Context) > 0 {
		slog.Warn("Local provider failed with context, retrying without it", "chat_id", c.ID, "error", err)
		genReq.Context = nil
		resp, err = provider.Generate(ctx, genReq)
	}
	if err != nil {
		return Response{}, fmt.Errorf("generate reply with %s: %w", provider.Name(), err)
	}

	c.AddAssistant(resp.Response, model, resp.Context)
	if req.Model != "" && req.Model != c.ModelName {
		c.SetModel(req.Model)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return Response{}, fmt.Errorf("save chat: %w", err)
	}

	ctxTokens := resp.Context
	if ctxTokens == nil {
		ctxTokens = []int{}
	}
	return Response{ChatID: c.ID, Response: resp.Response, Context: ctxTokens}, nil
}

// prompt returns the text sent to provider. The local provider resumes from
// its token context, so it only gets the new message; the others get the
// prior transcript as well.
func (s *Service) prompt(provider schema.ChatProvider, prior schema.Messages, req Request) string {
	if s.providers.IsLocal(provider) || prior.Len() == 0 {
		return req.Message
	}
	return prior.Transcript() + "\n\nUser: " + req.Message
}

func (s *Service) createFromHistory(ctx context.Context, c *session.Chat, req Request) (Response, error) {
	result, err := s.courses.Generate(ctx, agent.CourseRequest{
		Provider:     agent.ProviderGemini,
		Prompt:       agent.HistoryPrompt(c.History(), req.Message),
		Model:        AgentModel,
		InstructorID: req.UserID,
	}, nil)
	if err != nil {
		return Response{}, err
	}

	info := agent.ExtractCourseInfo(result.ExecutionLog)
	text := summarize(result, info)

	c.AddAssistant(text, AgentModel, nil)
	c.MarkCourse(info.CourseID)
	if err := s.store.Save(ctx, c); err != nil {
		return Response{}, fmt.Errorf("save chat: %w", err)
	}

	return Response{
		ChatID:         c.ID,
		Response:       text,
		Context:        []int{},
		AgentExecution: &result,
	}, nil
}

func summarize(result schema.RunResult, info agent.CourseInfo) string {
	if !result.Success {
		return "Intenté crear el curso pero encontré algunos problemas.\n\n" + result.FinalResponse + result.PartialResponse
	}
	courseID := info.CourseID
	if courseID == "" {
		courseID = "N/A"
	}
	return fmt.Sprintf("¡Entendido! He iniciado la creación del curso basado en nuestra conversación.\n\n"+
		"✅ **Curso Creado Exitosamente**\n\n"+
		"📊 **Resumen:**\n"+
		"- **ID del Curso:** %s\n"+
		"- **Secciones creadas:** %d\n"+
		"- **Lecciones creadas:** %d\n\n%s",
		courseID, info.SectionsCreated, info.LessonsCreated, result.FinalResponse)
}

// GenerateCourseStructure asks the model for a course outline and records the
// exchange in a course chat.
func (s *Service) GenerateCourseStructure(ctx context.Context, req StructureRequest) (StructureResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}
	c, err := s.store.GetOrCreate(ctx, req.ChatID, modelName, session.TypeCourse)
	if err != nil {
		return StructureResponse{}, err
	}
	if c.ChatType != session.TypeCourse {
		return StructureResponse{}, fmt.Errorf("%w: %s", ErrNotCourseChat, c.ID)
	}

	model := req.Model
	if model == "" {
		model = c.ModelName
	}
	if model == "" {
		model = s.defaultModel
	}

	c.AddUser(fmt.Sprintf("Course Idea: %s\n\nGuidelines: %s", req.Idea, req.Guide), model)

	provider := s.providers.Select(model)
	resp, err := provider.Generate(ctx, schema.GenerateRequest{
		Message: agent.CourseStructurePrompt(req.Idea, req.Guide),
		Model:   model,
	})
	if err != nil {
		return StructureResponse{}, fmt.Errorf("generate course structure with %s: %w", provider.Name(), err)
	}

	c.AddAssistant(resp.Response, model, nil)
	if err := s.store.Save(ctx, c); err != nil {
		return StructureResponse{}, fmt.Errorf("save chat: %w", err)
	}
	return StructureResponse{ChatID: c.ID, Response: resp.Response}, nil
}

// ListChats returns the most recently updated chats.
func (s *Service) ListChats(ctx context.Context) ([]session.Summary, error) {
	return s.store.List(ctx, session.ListLimit)
}

// GetChat returns the chat with id.
func (s *Service) GetChat(ctx context.Context, id string) (*session.Chat, error) {
	return s.store.Find(ctx, id)
}

// DeleteChat removes the chat with id.
func (s *Service) DeleteChat(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
