// Package server exposes the tutor chat service over HTTP and WebSocket.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/chat"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/courses"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/heartbeat"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/tools"
)

// APIPrefix is the base path of every route.
const APIPrefix = "/api/v1"

// ChatService answers chat turns and manages stored chats.
type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (chat.Response, error)
	GenerateCourseStructure(ctx context.Context, req chat.StructureRequest) (chat.StructureResponse, error)
	ListChats(ctx context.Context) ([]session.Summary, error)
	GetChat(ctx context.Context, id string) (*session.Chat, error)
	DeleteChat(ctx context.Context, id string) error
}

// CourseService creates courses.
type CourseService interface {
	GenerateCourse(ctx context.Context, req courses.GenerateRequest, onProgress func(string)) (courses.GenerateResult, error)
	ConvertChat(ctx context.Context, req courses.ConvertRequest) (courses.ConvertResult, error)
	ConvertBatch(ctx context.Context, req courses.BatchRequest) courses.BatchResult
	GenerateCompleteCourse(ctx context.Context, req courses.CompleteCourseRequest) courses.CompleteCourseResult
}

// HealthReporter reports the latest MCP availability probe.
type HealthReporter interface {
	Status() heartbeat.Status
}

// Deps are the services behind the routes.
type Deps struct {
	Chats   ChatService
	Courses CourseService
	Catalog schema.ToolCatalog
	Tools   schema.ToolExecutor
	Health  HealthReporter
}

// Options configure the listener.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	deps    Deps
	opts    Options
	handler http.Handler
}

// New builds a Server and its routes.
func New(deps Deps, opts Options) *Server {
	s := &Server{deps: deps, opts: opts}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	p := APIPrefix

	mux.HandleFunc("GET "+p+"/health", s.handleHealth)

	mux.HandleFunc("POST "+p+"/ai/chat", s.handleChat)
	mux.HandleFunc("POST "+p+"/ai/course-assistant", s.handleCourseAssistant)
	mux.HandleFunc("POST "+p+"/ai/generate-course", s.handleGenerateCourse)

	mux.HandleFunc("GET "+p+"/chats", s.handleListChats)
	mux.HandleFunc("GET "+p+"/chats/{id}", s.handleGetChat)
	mux.HandleFunc("DELETE "+p+"/chats/{id}", s.handleDeleteChat)

	mux.HandleFunc("POST "+p+"/chat-to-course/convert", s.handleConvert)
	mux.HandleFunc("POST "+p+"/chat-to-course/batch", s.handleBatch)

	mux.HandleFunc("GET "+p+"/mcp/health", s.handleMCPHealth)
	mux.HandleFunc("GET "+p+"/mcp/tools", s.handleMCPTools)
	mux.HandleFunc("POST "+p+"/mcp/courses/generate", s.handleCompleteCourse)
	mux.HandleFunc("POST "+p+"/mcp/courses", s.toolRoute(tools.ToolCreateCourse, validators.createCourse, "Course created successfully"))
	mux.HandleFunc("GET "+p+"/mcp/courses", s.handleListCourses)
	mux.HandleFunc("GET "+p+"/mcp/courses/{id}", s.handleGetCourse)
	mux.HandleFunc("POST "+p+"/mcp/sections", s.toolRoute(tools.ToolCreateSection, validators.createSection, "Section created successfully"))
	mux.HandleFunc("POST "+p+"/mcp/lessons", s.toolRoute(tools.ToolCreateLesson, validators.createLesson, "Lesson created successfully"))
	mux.HandleFunc("POST "+p+"/mcp/lesson-content", s.toolRoute(tools.ToolCreateLessonContent, validators.createLessonContent, "Lesson content created successfully"))

	mux.HandleFunc("GET "+p+"/ws/chat", s.handleChatSocket)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
	})

	return recoverer(logRequests(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shut down HTTP server: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes through to the underlying writer for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("Handler panic", "method", r.Method, "path", r.URL.Path, "panic", v)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
