package agent

import (
	"context"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// CourseRequest is one request to build a course with tools.
type CourseRequest struct {
	Provider     Provider
	Prompt       string
	Model        string
	InstructorID string
}

// CourseAgent runs course-building agent loops.
type CourseAgent struct {
	factory *AgentFactory
}

// NewCourseAgent returns a CourseAgent backed by factory.
func NewCourseAgent(factory *AgentFactory) *CourseAgent {
	return &CourseAgent{factory: factory}
}

// Factory exposes the underlying factory.
func (a *CourseAgent) Factory() *AgentFactory { return a.factory }

// Generate runs the agent loop for req. onProgress, when set, receives the
// interim text and a tool hint for every round. Failures to build the dialect
// are reported as a LoopError like any other fatal run error.
func (a *CourseAgent) Generate(ctx context.Context, req CourseRequest, onProgress func(string)) (schema.RunResult, error) {
	if req.Provider == "" {
		req.Provider = ProviderOpenAI
	}
	runner, err := a.factory.NewRunner(ctx, req.Provider, req.Model)
	if err != nil {
		return schema.RunResult{ExecutionLog: []schema.ExecutionLogEntry{}}, &LoopError{Dialect: dialectLabel(req.Provider), Err: err}
	}
	return runner.Run(ctx, TaskPrompt(req.Prompt, req.InstructorID), onProgress)
}

func dialectLabel(p Provider) string {
	switch p {
	case ProviderGemini:
		return "Gemini"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return string(p)
	}
}
