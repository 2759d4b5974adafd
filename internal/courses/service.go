// Package courses turns prompts and chat conversations into real courses,
// either through the tool-calling agent or by direct tool calls.
package courses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/agent"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/tools"
)

// Generator runs the course-building agent.
type Generator interface {
	Generate(ctx context.Context, req agent.CourseRequest, onProgress func(string)) (schema.RunResult, error)
}

// ChatMarker records that a chat produced a course.
type ChatMarker interface {
	MarkCourse(ctx context.Context, id, courseID string) error
}

// Service creates courses.
type Service struct {
	agent    Generator
	executor schema.ToolExecutor
	chats    ChatMarker
	now      func() time.Time
}

// NewService returns a Service. chats may be nil, in which case converted
// chats are not marked.
func NewService(gen Generator, executor schema.ToolExecutor, chats ChatMarker) *Service {
	return &Service{agent: gen, executor: executor, chats: chats, now: time.Now}
}

// GenerateRequest asks the agent to build a course from a free-form prompt.
type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	InstructorID string `json:"instructorId,omitempty"`
}

// GenerateResult is the outcome of GenerateCourse: the run result tagged
// with the provider that produced it.
type GenerateResult struct {
	Provider string `json:"provider"`
	schema.RunResult
}

// GenerateCourse runs the agent for req. The provider defaults to OpenAI.
func (s *Service) GenerateCourse(ctx context.Context, req GenerateRequest, onProgress func(string)) (GenerateResult, error) {
	provider := agent.ParseProvider(req.Provider, agent.ProviderOpenAI)
	slog.Info("Generating course", "provider", provider, "model", req.Model)

	result, err := s.agent.Generate(ctx, agent.CourseRequest{
		Provider:     provider,
		Prompt:       req.Prompt,
		Model:        req.Model,
		InstructorID: req.InstructorID,
	}, onProgress)
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Provider: string(provider), RunResult: result}, nil
}

// ConvertRequest asks for a chat's proposed structure to become a course.
type ConvertRequest struct {
	ChatID           string `json:"chatId"`
	AssistantMessage string `json:"assistantMessage"`
	UserPrompt       string `json:"userPrompt"`
	InstructorID     string `json:"instructorId,omitempty"`
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
}

// AgentExecution summarises an agent run.
type AgentExecution struct {
	Iterations    int    `json:"iterations"`
	ToolsExecuted int    `json:"toolsExecuted"`
	FinalResponse string `json:"finalResponse"`
}

// ConvertResult is the outcome of ConvertChat.
type ConvertResult struct {
	Success        bool                       `json:"success"`
	ChatID         string                     `json:"chatId"`
	Provider       string                     `json:"provider"`
	Course         agent.CourseInfo           `json:"course"`
	AgentExecution AgentExecution             `json:"agentExecution"`
	ExecutionLog   []schema.ExecutionLogEntry `json:"executionLog"`
}

// ConvertChat runs the agent over the chat's proposed course structure. The
// provider defaults to Gemini. When a course was created the chat is marked
// as a course chat.
func (s *Service) ConvertChat(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	provider := agent.ParseProvider(req.Provider, agent.ProviderGemini)
	slog.Info("Converting chat to course", "chat_id", req.ChatID, "provider", provider, "model", req.Model)

	result, err := s.agent.Generate(ctx, agent.CourseRequest{
		Provider: provider,
		Prompt:   agent.ConversionPrompt(req.UserPrompt, req.AssistantMessage, req.InstructorID),
		Model:    req.Model,
	}, nil)
	if err != nil {
		return ConvertResult{}, err
	}

	info := agent.ExtractCourseInfo(result.ExecutionLog)
	if info.CourseID != "" {
		s.markChat(ctx, req.ChatID, info.CourseID)
	}

	return ConvertResult{
		Success:  true,
		ChatID:   req.ChatID,
		Provider: string(provider),
		Course:   info,
		AgentExecution: AgentExecution{
			Iterations:    result.Iterations,
			ToolsExecuted: result.ToolsExecuted,
			FinalResponse: result.FinalResponse,
		},
		ExecutionLog: result.ExecutionLog,
	}, nil
}

// markChat is best effort: the course exists whether or not the chat is known.
func (s *Service) markChat(ctx context.Context, chatID, courseID string) {
	if s.chats == nil || chatID == "" {
		return
	}
	err := s.chats.MarkCourse(ctx, chatID, courseID)
	switch {
	case errors.Is(err, session.ErrChatNotFound):
		slog.Warn("Converted chat is not stored locally", "chat_id", chatID, "course_id", courseID)
	case err != nil:
		slog.Error("Failed to mark chat as course", "chat_id", chatID, "error", err)
	}
}

// BatchItem is one chat of a batch conversion.
type BatchItem struct {
	ChatID           string `json:"chatId"`
	AssistantMessage string `json:"assistantMessage"`
	UserPrompt       string `json:"userPrompt"`
	InstructorID     string `json:"instructorId,omitempty"`
}

// BatchRequest converts several chats with the same provider and model.
type BatchRequest struct {
	Chats    []BatchItem `json:"chats"`
	Provider string      `json:"provider,omitempty"`
	Model    string      `json:"model,omitempty"`
}

// BatchSuccess is a converted chat.
type BatchSuccess struct {
	ChatID        string           `json:"chatId"`
	Success       bool             `json:"success"`
	Course        agent.CourseInfo `json:"course"`
	Iterations    int              `json:"iterations"`
	ToolsExecuted int              `json:"toolsExecuted"`
}

// BatchFailure is a chat whose conversion failed.
type BatchFailure struct {
	ChatID  string `json:"chatId"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// BatchResult tallies a batch conversion.
type BatchResult struct {
	Success    bool           `json:"success"`
	Provider   string         `json:"provider"`
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []BatchSuccess `json:"results"`
	Errors     []BatchFailure `json:"errors"`
}

// ConvertBatch converts the chats one after another. A failing chat is
// recorded and does not stop the batch.
func (s *Service) ConvertBatch(ctx context.Context, req BatchRequest) BatchResult {
	provider := agent.ParseProvider(req.Provider, agent.ProviderGemini)
	out := BatchResult{
		Success:  true,
		Provider: string(provider),
		Total:    len(req.Chats),
		Results:  []BatchSuccess{},
		Errors:   []BatchFailure{},
	}

	for _, item := range req.Chats {
		res, err := s.ConvertChat(ctx, ConvertRequest{
			ChatID:           item.ChatID,
			AssistantMessage: item.AssistantMessage,
			UserPrompt:       item.UserPrompt,
			InstructorID:     item.InstructorID,
			Provider:         string(provider),
			Model:            req.Model,
		})
		if err != nil {
			slog.Warn("Batch conversion failed", "chat_id", item.ChatID, "error", err)
			out.Errors = append(out.Errors, BatchFailure{ChatID: item.ChatID, Error: err.Error()})
			continue
		}
		out.Results = append(out.Results, BatchSuccess{
			ChatID:        item.ChatID,
			Success:       true,
			Course:        res.Course,
			Iterations:    res.AgentExecution.Iterations,
			ToolsExecuted: res.AgentExecution.ToolsExecuted,
		})
	}

	out.Successful = len(out.Results)
	out.Failed = len(out.Errors)
	return out
}

// CompleteCourseRequest describes a course skeleton to create without an LLM.
// LessonsPerSection is accepted for compatibility; only sections are created.
type CompleteCourseRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Level             string `json:"level"`
	NumberOfSections  int    `json:"numberOfSections,omitempty"`
	LessonsPerSection int    `json:"lessonsPerSection,omitempty"`
}

// CompleteCourseResult is the outcome of GenerateCompleteCourse.
type CompleteCourseResult struct {
	Success  bool   `json:"success"`
	CourseID string `json:"courseId,omitempty"`
	Course   any    `json:"course,omitempty"`
	Sections []any  `json:"sections,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GenerateCompleteCourse creates the course and then NumberOfSections numbered
// sections through the tool executor. Sections that fail are skipped.
func (s *Service) GenerateCompleteCourse(ctx context.Context, req CompleteCourseRequest) CompleteCourseResult {
	taskID := fmt.Sprintf("gen_%d", s.now().UnixMilli())
	slog.Info("Creating course skeleton", "title", req.Title, "sections", req.NumberOfSections)

	courseArgs := map[string]any{
		"instructorId":     nil,
		"title":            req.Title,
		"description":      req.Description,
		"price":            0,
		"level":            req.Level,
		"aiGenerated":      true,
		"generationTaskId": taskID,
	}
	courseRes := s.executor.Execute(ctx, string(tools.ToolCreateCourse), courseArgs)
	info := agent.ExtractCourseInfo([]schema.ExecutionLogEntry{{Tool: string(tools.ToolCreateCourse), Args: courseArgs, Result: courseRes}})
	if !courseRes.Success || info.CourseID == "" {
		msg := courseRes.Error
		if msg == "" {
			msg = "Failed to create course"
		}
		return CompleteCourseResult{Success: false, Error: msg}
	}

	sections := []any{}
	for i := 1; i <= req.NumberOfSections; i++ {
		res := s.executor.Execute(ctx, string(tools.ToolCreateSection), map[string]any{
			"courseId":         info.CourseID,
			"title":            fmt.Sprintf("Section %d", i),
			"description":      fmt.Sprintf("Section %d of %s", i, req.Title),
			"order":            i,
			"aiGenerated":      true,
			"suggestedByAi":    true,
			"generationTaskId": fmt.Sprintf("%s_section_%d", taskID, i),
		})
		if !res.Success {
			slog.Warn("Section creation failed", "course_id", info.CourseID, "order", i, "error", res.Error)
			continue
		}
		sections = append(sections, unwrap(res.Data))
	}

	return CompleteCourseResult{
		Success:  true,
		CourseID: info.CourseID,
		Course:   info.CreationDetails.Course,
		Sections: sections,
	}
}

func unwrap(data any) any {
	if m, ok := data.(map[string]any); ok {
		if inner, ok := m["data"].(map[string]any); ok {
			return inner
		}
	}
	return data
}
