package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResult(text string, isError bool) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: isError,
	}
}

func newCourseServer() *mcpsdk.Server {
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "course-mcp", Version: "1.0.0"}, nil)
	srv.AddTool(&mcpsdk.Tool{
		Name:        "create_course",
		Description: "Create a course",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
			},
			"required": []any{"title"},
		},
	}, func(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args map[string]any
		_ = json.Unmarshal(req.Params.Arguments, &args)
		body, _ := json.Marshal(map[string]any{
			"success": true,
			"data":    map[string]any{"idCourse": "c-1", "title": args["title"]},
		})
		return textResult(string(body), false), nil
	})
	srv.AddTool(&mcpsdk.Tool{
		Name:        "plain_text",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return textResult("hello", false), nil
	})
	srv.AddTool(&mcpsdk.Tool{
		Name:        "always_fails",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return textResult(`{"error":"validation failed"}`, true), nil
	})
	return srv
}

// inMemoryClient returns a Client that opens a fresh in-memory session to srv
// on every connect, and counts the connects.
func inMemoryClient(t *testing.T, srv *mcpsdk.Server) (*Client, *int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	connects := 0
	c := NewClientWithTransport(func() mcpsdk.Transport {
		connects++
		clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
		go func() { _ = srv.Run(ctx, serverTransport) }()
		return clientTransport
	})
	t.Cleanup(func() { _ = c.Close() })
	return c, &connects
}

func TestClient_ListTools(t *testing.T) {
	c, _ := inMemoryClient(t, newCourseServer())

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 3)

	byName := map[string]int{}
	for i, tl := range tools {
		byName[tl.Name] = i
	}
	create := tools[byName["create_course"]]
	assert.Equal(t, "Create a course", create.Description)
	assert.Equal(t, "object", create.InputSchema["type"])
	assert.Contains(t, create.InputSchema["properties"], "title")
	assert.True(t, c.Connected())
}

func TestClient_CallTool_JSON(t *testing.T) {
	c, _ := inMemoryClient(t, newCourseServer())

	res := c.CallTool(context.Background(), "create_course", map[string]any{"title": "Intro to Go"})
	require.True(t, res.Success, res.Error)

	data := res.Data.(map[string]any)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "c-1", data["data"].(map[string]any)["idCourse"])
	assert.NotEmpty(t, res.RawContent)
}

func TestClient_CallTool_PlainText(t *testing.T) {
	c, _ := inMemoryClient(t, newCourseServer())

	res := c.CallTool(context.Background(), "plain_text", nil)
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"message": "hello"}, res.Data)
}

func TestClient_CallTool_IsError(t *testing.T) {
	c, _ := inMemoryClient(t, newCourseServer())

	res := c.CallTool(context.Background(), "always_fails", map[string]any{})
	assert.False(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, "validation failed", res.Data.(map[string]any)["error"])
}

func TestClient_CallTool_UnknownToolReconnects(t *testing.T) {
	c, connects := inMemoryClient(t, newCourseServer())

	res := c.CallTool(context.Background(), "no_such_tool", nil)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	// The failed session is dropped and the next call reconnects.
	res = c.CallTool(context.Background(), "plain_text", nil)
	assert.True(t, res.Success)
	assert.Equal(t, 2, *connects)
}

func TestClient_NoTransportConfigured(t *testing.T) {
	c := NewClient(ServerConfig{})
	res := c.CallTool(context.Background(), "create_course", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no url or command")
}

func TestCatalog_CachesAndRefreshes(t *testing.T) {
	c, _ := inMemoryClient(t, newCourseServer())
	cat := NewCatalog(c)

	_, at := cat.Snapshot()
	assert.True(t, at.IsZero())

	tools, err := cat.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 3)

	_, loaded := cat.Snapshot()
	assert.False(t, loaded.IsZero())

	require.NoError(t, cat.Refresh(context.Background()))
	_, refreshed := cat.Snapshot()
	assert.False(t, refreshed.Before(loaded))
}
