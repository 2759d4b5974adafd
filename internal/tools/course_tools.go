package tools

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/mcp"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// NotImplementedMessage is returned for catalog tools the service does not
// back yet.
const NotImplementedMessage = "Method not yet implemented in MCP service"

// RemoteCaller invokes tools on the MCP server.
type RemoteCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) mcp.CallResult
}

// CourseAPI is the REST surface used as fallback.
type CourseAPI interface {
	CreateCourse(ctx context.Context, args map[string]any) (any, error)
	CreateSection(ctx context.Context, args map[string]any) (any, error)
	CreateLesson(ctx context.Context, args map[string]any) (any, error)
	CreateLessonContent(ctx context.Context, args map[string]any) (any, error)
	ListCourses(ctx context.Context, args map[string]any) (any, error)
}

// NewCourseRegistry builds the course dispatch table over remote. When api is
// nil no REST fallbacks are attached.
func NewCourseRegistry(remote RemoteCaller, api CourseAPI) *Registry {
	call := func(name ToolName, shape func(map[string]any) map[string]any) Handler {
		return func(ctx context.Context, args map[string]any) (schema.ToolCallResult, error) {
			if shape != nil {
				args = shape(args)
			}
			return fromCallResult(string(name), remote.CallTool(ctx, string(name), args)), nil
		}
	}

	b := NewRegistryBuilder().
		WithTool(ToolCreateCourse, call(ToolCreateCourse, nil)).
		WithTool(ToolListCourses, call(ToolListCourses, nil)).
		WithTool(ToolGetCourseByID, call(ToolGetCourseByID, courseByIDArgs)).
		WithTool(ToolCreateSection, call(ToolCreateSection, sectionArgs)).
		WithTool(ToolCreateLesson, call(ToolCreateLesson, nil)).
		WithTool(ToolCreateLessonContent, call(ToolCreateLessonContent, nil)).
		WithTool(ToolListSections, call(ToolListCourses, pageArgs)).
		WithTool(ToolGetSectionByID, notImplemented(ToolGetSectionByID)).
		WithTool(ToolListLessons, notImplemented(ToolListLessons)).
		WithTool(ToolListLessonContents, notImplemented(ToolListLessonContents))

	if api != nil {
		b.WithFallback(ToolCreateCourse, api.CreateCourse).
			WithFallback(ToolCreateSection, api.CreateSection).
			WithFallback(ToolCreateLesson, api.CreateLesson).
			WithFallback(ToolCreateLessonContent, api.CreateLessonContent).
			WithFallback(ToolListCourses, api.ListCourses)
	}
	return b.Build()
}

// NewCourseExecutor is NewExecutor over NewCourseRegistry.
func NewCourseExecutor(remote RemoteCaller, api CourseAPI) *Executor {
	return NewExecutor(NewCourseRegistry(remote, api))
}

func notImplemented(name ToolName) Handler {
	return func(context.Context, map[string]any) (schema.ToolCallResult, error) {
		return schema.ToolCallResult{Tool: string(name), Success: true, Message: NotImplementedMessage}, nil
	}
}

// courseByIDArgs accepts either idCourse or courseId. Full details are on
// unless the caller turns them off.
func courseByIDArgs(args map[string]any) map[string]any {
	id, _ := args["idCourse"].(string)
	if id == "" {
		id, _ = args["courseId"].(string)
	}
	full := true
	if v, ok := args["includeFullDetails"].(bool); ok {
		full = v
	}
	return map[string]any{"courseId": id, "includeFullDetails": full}
}

// sectionArgs mirrors aiGenerated into suggestedByAi. An absent aiGenerated
// leaves suggestedByAi unset rather than null.
func sectionArgs(args map[string]any) map[string]any {
	out := maps.Clone(args)
	if out == nil {
		out = map[string]any{}
	}
	if v, ok := args["aiGenerated"]; ok {
		out["suggestedByAi"] = v
	}
	return out
}

// pageArgs keeps only the paging arguments.
func pageArgs(args map[string]any) map[string]any {
	out := map[string]any{}
	for _, k := range []string{"page", "size"} {
		if v, ok := args[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}

// fromCallResult maps an MCP call onto a tool result. A failed call keeps its
// decoded payload and surfaces the most specific message it carries.
func fromCallResult(tool string, cr mcp.CallResult) schema.ToolCallResult {
	if cr.Success {
		return schema.OKResult(tool, cr.Data)
	}
	res := schema.ErrorResult(tool, failureMessage(cr))
	res.Data = cr.Data
	return res
}

func failureMessage(cr mcp.CallResult) string {
	if cr.Error != "" {
		return cr.Error
	}
	if m, ok := cr.Data.(map[string]any); ok {
		for _, k := range []string{"error", "message"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if cr.Data != nil {
		if b, err := json.Marshal(cr.Data); err == nil {
			return string(b)
		}
	}
	return "MCP tool call failed"
}
