package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/chat"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/courses"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/tools"
)

const serviceName = "SOPHIA Tutor Chat Service"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    "OK",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// ---- AI ----

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if !decode(w, r, validators.chat, &req) {
		return
	}
	resp, err := s.deps.Chats.Chat(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatReply{Success: true, Response: resp})
}

type chatReply struct {
	Success bool `json:"success"`
	chat.Response
}

func (s *Server) handleCourseAssistant(w http.ResponseWriter, r *http.Request) {
	var req chat.StructureRequest
	if !decode(w, r, validators.courseAssistant, &req) {
		return
	}
	resp, err := s.deps.Chats.GenerateCourseStructure(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"chatId":   resp.ChatID,
		"response": resp.Response,
	})
}

func (s *Server) handleGenerateCourse(w http.ResponseWriter, r *http.Request) {
	var req courses.GenerateRequest
	if !decode(w, r, validators.generateCourse, &req) {
		return
	}
	res, err := s.deps.Courses.GenerateCourse(r.Context(), req, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---- chats ----

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Chats.ListChats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(list),
		"data":    list,
	})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Chats.GetChat(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": c.View()})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Chats.DeleteChat(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Chat deleted successfully"})
}

// ---- chat to course ----

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req courses.ConvertRequest
	if !decode(w, r, validators.convert, &req) {
		return
	}
	res, err := s.deps.Courses.ConvertChat(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req courses.BatchRequest
	if !decode(w, r, validators.batch, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Courses.ConvertBatch(r.Context(), req))
}

// ---- MCP ----

func (s *Server) handleMCPHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.Health.Status()
	body := map[string]any{
		"success":   true,
		"available": st.Available,
	}
	if !st.CheckedAt.IsZero() {
		body["checkedAt"] = st.CheckedAt
	}
	if st.Error != "" {
		body["error"] = st.Error
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMCPTools(w http.ResponseWriter, r *http.Request) {
	descriptors, err := s.deps.Catalog.ListTools(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": descriptors})
}

func (s *Server) handleCompleteCourse(w http.ResponseWriter, r *http.Request) {
	var req courses.CompleteCourseRequest
	if !decode(w, r, validators.completeCourse, &req) {
		return
	}
	res := s.deps.Courses.GenerateCompleteCourse(r.Context(), req)
	if !res.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": res.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Course generated successfully",
		"data": map[string]any{
			"courseId": res.CourseID,
			"course":   res.Course,
			"sections": res.Sections,
		},
	})
}

// toolRoute validates the body and forwards it unchanged to tool.
func (s *Server) toolRoute(tool tools.ToolName, v *Validator, okMessage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		if !decode(w, r, v, &args) {
			return
		}
		res := s.deps.Tools.Execute(r.Context(), string(tool), args)
		if !res.Success {
			writeToolFailure(w, http.StatusInternalServerError, res)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": okMessage,
			"data":    res.Data,
		})
	}
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	args := map[string]any{}
	if v := q.Get("title"); v != "" {
		args["title"] = v
	}
	if v := q.Get("level"); v != "" {
		args["level"] = v
	}
	if q.Has("aiGenerated") {
		args["aiGenerated"] = q.Get("aiGenerated") == "true"
	}
	for _, key := range []string{"page", "size"} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, key+": must be a positive integer")
				return
			}
			args[key] = n
		}
	}

	res := s.deps.Tools.Execute(r.Context(), string(tools.ToolListCourses), args)
	if !res.Success {
		writeToolFailure(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": res.Data})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Tools.Execute(r.Context(), string(tools.ToolGetCourseByID), map[string]any{
		"idCourse":           r.PathValue("id"),
		"includeFullDetails": r.URL.Query().Get("includeFullDetails") == "true",
	})
	if !res.Success {
		writeToolFailure(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": res.Data})
}

func writeToolFailure(w http.ResponseWriter, status int, res schema.ToolCallResult) {
	body := map[string]any{
		"success": false,
		"message": res.Error,
	}
	if res.Data != nil {
		body["details"] = res.Data
	}
	writeJSON(w, status, body)
}
