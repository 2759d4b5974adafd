package tools

import (
	"context"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// ToolName is the canonical name of a remote course tool.
type ToolName string

const (
	ToolCreateCourse        ToolName = "create_course"
	ToolListCourses         ToolName = "list_courses"
	ToolGetCourseByID       ToolName = "get_course_by_id"
	ToolCreateSection       ToolName = "create_section"
	ToolListSections        ToolName = "list_sections"
	ToolGetSectionByID      ToolName = "get_section_by_id"
	ToolCreateLesson        ToolName = "create_lesson"
	ToolListLessons         ToolName = "list_lessons"
	ToolCreateLessonContent ToolName = "create_lesson_content"
	ToolListLessonContents  ToolName = "list_lesson_contents"
)

// Handler performs the primary (MCP) call for one tool.
type Handler func(ctx context.Context, args map[string]any) (schema.ToolCallResult, error)

// Fallback re-issues a call against the REST API. It returns the created or
// listed payload.
type Fallback func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	handler  Handler
	fallback Fallback
}

// Registry is an immutable dispatch table built by RegistryBuilder.
type Registry struct {
	entries map[ToolName]entry
}

func (r *Registry) lookup(name string) (entry, bool) {
	e, ok := r.entries[ToolName(name)]
	return e, ok
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, string(k))
	}
	return out
}

// HasFallback reports whether name is re-issued via REST on schema failures.
func (r *Registry) HasFallback(name string) bool {
	e, ok := r.lookup(name)
	return ok && e.fallback != nil
}
