package agent

import "github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"

// CourseInfo summarises what an agent run created.
type CourseInfo struct {
	CourseID        string          `json:"courseId,omitempty"`
	Title           string          `json:"title,omitempty"`
	Level           string          `json:"level,omitempty"`
	Price           any             `json:"price,omitempty"`
	SectionsCreated int             `json:"sectionsCreated"`
	LessonsCreated  int             `json:"lessonsCreated"`
	CreationDetails CreationDetails `json:"creationDetails"`
}

// CreationDetails lists the created entities in execution order.
type CreationDetails struct {
	Course   any             `json:"course"`
	Sections []EntitySummary `json:"sections"`
	Lessons  []EntitySummary `json:"lessons"`
}

// EntitySummary describes one created section or lesson.
type EntitySummary struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Order any    `json:"order,omitempty"`
	Type  string `json:"type,omitempty"`
}

// ExtractCourseInfo mines log for the created course, sections and lessons.
// Failed entries are ignored.
func ExtractCourseInfo(log []schema.ExecutionLogEntry) CourseInfo {
	info := CourseInfo{CreationDetails: CreationDetails{
		Sections: []EntitySummary{},
		Lessons:  []EntitySummary{},
	}}
	courseFound := false

	for _, e := range log {
		if !e.Result.Success {
			continue
		}
		switch e.Tool {
		case "create_course":
			if courseFound {
				continue
			}
			courseFound = true
			info.CourseID = entityID(e.Result.Data, "idCourse")
			info.Title, _ = e.Args["title"].(string)
			info.Level, _ = e.Args["level"].(string)
			info.Price = e.Args["price"]
			info.CreationDetails.Course = entity(e.Result.Data)

		case "create_section":
			info.CreationDetails.Sections = append(info.CreationDetails.Sections, EntitySummary{
				ID:    entityID(e.Result.Data, "idSection"),
				Title: stringArg(e.Args, "title"),
				Order: e.Args["order"],
			})

		case "create_lesson":
			info.CreationDetails.Lessons = append(info.CreationDetails.Lessons, EntitySummary{
				ID:    entityID(e.Result.Data, "idLesson"),
				Title: stringArg(e.Args, "title"),
				Order: e.Args["order"],
				Type:  stringArg(e.Args, "lessonType"),
			})
		}
	}

	info.SectionsCreated = len(info.CreationDetails.Sections)
	info.LessonsCreated = len(info.CreationDetails.Lessons)
	return info
}

// CreatedCourseID returns the id of the first course created in log, or "".
func CreatedCourseID(log []schema.ExecutionLogEntry) string {
	return ExtractCourseInfo(log).CourseID
}

// entity unwraps the {success, data} envelope the MCP server puts around the
// created entity. REST fallback results are not wrapped.
func entity(data any) any {
	m, ok := data.(map[string]any)
	if !ok {
		return data
	}
	if inner, ok := m["data"].(map[string]any); ok {
		return inner
	}
	return m
}

func entityID(data any, key string) string {
	if m, ok := data.(map[string]any); ok {
		if id, ok := m[key].(string); ok && id != "" {
			return id
		}
	}
	if m, ok := entity(data).(map[string]any); ok {
		id, _ := m[key].(string)
		return id
	}
	return ""
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
