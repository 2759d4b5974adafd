// Package courseapi talks to the course service REST API directly. It is the
// fallback transport used when the MCP server rejects a call's response shape.
package courseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000/api/v1"

// Client calls the course service REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	newID      func() string
}

// New returns a Client for baseURL. timeout bounds each request; zero means
// 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateCourse creates a course and returns the created entity. A caller
// supplied aiGenerated is kept; it defaults to true.
func (c *Client) CreateCourse(ctx context.Context, args map[string]any) (any, error) {
	body := c.aiFields(args)
	if v, ok := args["aiGenerated"]; ok && v != nil {
		body["aiGenerated"] = v
	}
	if id, _ := args["generationTaskId"].(string); id != "" {
		body["generationTaskId"] = id
	}

	data, err := c.create(ctx, "/courses", body)
	if err != nil {
		return nil, err
	}
	slog.Info("Course created directly", "courseId", field(data, "idCourse"))
	return data, nil
}

// CreateSection creates a section under args["courseId"].
func (c *Client) CreateSection(ctx context.Context, args map[string]any) (any, error) {
	courseID, err := requireString(args, "courseId")
	if err != nil {
		return nil, err
	}
	body := c.aiFields(args)
	body["idCourse"] = courseID

	data, err := c.create(ctx, "/courses/"+url.PathEscape(courseID)+"/sections", body)
	if err != nil {
		return nil, err
	}
	slog.Info("Section created directly", "sectionId", field(data, "idSection"))
	return data, nil
}

// CreateLesson creates a lesson under args["sectionId"].
func (c *Client) CreateLesson(ctx context.Context, args map[string]any) (any, error) {
	sectionID, err := requireString(args, "sectionId")
	if err != nil {
		return nil, err
	}
	body := c.aiFields(args)
	body["idSection"] = sectionID

	data, err := c.create(ctx, "/sections/"+url.PathEscape(sectionID)+"/lessons", body)
	if err != nil {
		return nil, err
	}
	slog.Info("Lesson created directly", "lessonId", field(data, "idLesson"))
	return data, nil
}

// CreateLessonContent creates a content block under args["lessonId"].
func (c *Client) CreateLessonContent(ctx context.Context, args map[string]any) (any, error) {
	lessonID, err := requireString(args, "lessonId")
	if err != nil {
		return nil, err
	}
	body := c.aiFields(args)
	body["generationLogId"] = c.newID()
	body["parentContentId"] = nil

	data, err := c.create(ctx, "/lessons/"+url.PathEscape(lessonID)+"/contents", body)
	if err != nil {
		return nil, err
	}
	slog.Info("Lesson content created directly", "contentId", field(data, "idContent"))
	return data, nil
}

// ListCourses returns one page of courses, newest first by default.
// The whole response document is returned.
func (c *Client) ListCourses(ctx context.Context, args map[string]any) (any, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(intArg(args, "page", 1)))
	q.Set("size", strconv.Itoa(intArg(args, "size", 10)))
	q.Set("sortBy", stringArg(args, "sortBy", "createdAt"))
	q.Set("sortOrder", stringArg(args, "sortOrder", "desc"))

	var out any
	if err := c.do(ctx, http.MethodGet, "/courses?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse fetches one course by id.
func (c *Client) GetCourse(ctx context.Context, courseID string) (any, error) {
	var out struct {
		Data any `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(courseID), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

// aiFields copies args and stamps the AI-generation bookkeeping fields.
func (c *Client) aiFields(args map[string]any) map[string]any {
	body := make(map[string]any, len(args)+3)
	for k, v := range args {
		body[k] = v
	}
	body["aiGenerated"] = true
	body["generationTaskId"] = c.newID()
	body["lastAIUpdateAt"] = c.now().UTC().Format(time.RFC3339Nano)
	return body
}

func (c *Client) create(ctx context.Context, path string, body map[string]any) (any, error) {
	var out struct {
		Data any `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("course service request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("course service request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Error is a non-2xx answer from the course service.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string { return "CourseService error: " + e.Body }

func requireString(args map[string]any, key string) (string, error) {
	s, _ := args[key].(string)
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func stringArg(args map[string]any, key, def string) string {
	if s, _ := args[key].(string); s != "" {
		return s
	}
	return def
}

// intArg reads a positive integer that may arrive as a JSON number or string.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func field(data any, key string) any {
	if m, ok := data.(map[string]any); ok {
		return m[key]
	}
	return nil
}
