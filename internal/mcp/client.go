// Package mcp is the client side of the course MCP server: it lists the remote
// tool catalog and invokes tools over the streamable HTTP transport (or a
// subprocess for local development).
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/shared/llmutils"
)

const (
	clientName    = "sophia-tutor-chat-client"
	clientVersion = "1.0.0"
)

// ServerConfig holds the connection parameters for the MCP server.
// URL selects the streamable HTTP transport; Command a stdio subprocess.
type ServerConfig struct {
	URL     string
	Headers map[string]string
	Command string
	Args    []string
	Timeout time.Duration
}

// CallResult is the normalised outcome of a tools/call request.
// Data is the JSON-decoded text content, or {"message": text} when the text
// is not JSON.
type CallResult struct {
	Success    bool
	Data       any
	RawContent json.RawMessage
	Error      string
}

// Client owns one lazily established MCP session. It is safe for concurrent
// use; after a transport failure the session is dropped and re-established on
// the next call.
type Client struct {
	cfg       ServerConfig
	transport func() (mcpsdk.Transport, error)

	mu      sync.Mutex
	session *mcpsdk.ClientSession
}

// NewClient returns a Client for cfg. No connection is made until first use.
func NewClient(cfg ServerConfig) *Client {
	c := &Client{cfg: cfg}
	c.transport = c.defaultTransport
	return c
}

// NewClientWithTransport returns a Client that obtains a fresh transport from
// fn for every (re)connect. Used to plug in in-memory transports.
func NewClientWithTransport(fn func() mcpsdk.Transport) *Client {
	return &Client{transport: func() (mcpsdk.Transport, error) { return fn(), nil }}
}

func (c *Client) defaultTransport() (mcpsdk.Transport, error) {
	switch {
	case c.cfg.URL != "":
		httpClient := &http.Client{Transport: headerTransport{headers: c.cfg.Headers, base: http.DefaultTransport}}
		return &mcpsdk.StreamableClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	case c.cfg.Command != "":
		return &mcpsdk.CommandTransport{Command: exec.Command(c.cfg.Command, c.cfg.Args...)}, nil
	default:
		return nil, errors.New("mcp: no url or command configured")
	}
}

// Connect establishes the session if it is not already open.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.sessionFor(ctx)
	return err
}

func (c *Client) sessionFor(ctx context.Context) (*mcpsdk.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}

	tp, err := c.transport()
	if err != nil {
		return nil, err
	}
	cli := mcpsdk.NewClient(&mcpsdk.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := cli.Connect(ctx, tp, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	slog.Info("MCP session connected", "url", c.cfg.URL)
	c.session = session
	return session, nil
}

// drop closes s if it is still the current session.
func (c *Client) drop(s *mcpsdk.ClientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		_ = s.Close()
		c.session = nil
	}
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Close ends the session, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	s, err := c.sessionFor(ctx)
	if err != nil {
		return err
	}
	if err := s.Ping(ctx, nil); err != nil {
		c.dropOnFailure(ctx, s)
		return fmt.Errorf("mcp ping: %w", err)
	}
	return nil
}

// ListTools fetches the remote tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]schema.ToolDescriptor, error) {
	s, err := c.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.ListTools(ctx, nil)
	if err != nil {
		c.dropOnFailure(ctx, s)
		return nil, fmt.Errorf("mcp list tools: %w", err)
	}

	out := make([]schema.ToolDescriptor, 0, len(res.Tools))
	for _, tl := range res.Tools {
		out = append(out, schema.ToolDescriptor{
			Name:        tl.Name,
			Description: tl.Description,
			InputSchema: schemaMap(tl.InputSchema),
		})
	}
	return out, nil
}

// CallTool invokes name with args. Failures are reported in the result, never
// as a Go error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) CallResult {
	if args == nil {
		args = map[string]any{}
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	s, err := c.sessionFor(ctx)
	if err != nil {
		return CallResult{Error: err.Error()}
	}

	argsJSON, _ := json.Marshal(args)
	slog.Info("Calling MCP tool", "name", name, "args", llmutils.Truncate(string(argsJSON), 200))

	res, err := s.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		c.dropOnFailure(ctx, s)
		slog.Error("MCP tool call failed", "name", name, "err", err)
		return CallResult{Error: err.Error()}
	}

	text := joinText(res.Content)
	raw, _ := json.Marshal(res.Content)

	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		slog.Warn("MCP response is not JSON", "name", name, "text", llmutils.Truncate(text, 200))
		data = map[string]any{"message": text}
	}

	slog.Info("MCP tool response received", "name", name, "isError", res.IsError, "contentLength", len(res.Content))
	return CallResult{Success: !res.IsError, Data: data, RawContent: raw}
}

// dropOnFailure discards the session unless the failure came from the
// caller's context, which says nothing about the connection.
func (c *Client) dropOnFailure(ctx context.Context, s *mcpsdk.ClientSession) {
	if ctx.Err() != nil {
		return
	}
	c.drop(s)
}

func joinText(content []mcpsdk.Content) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		if tc, ok := item.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// schemaMap converts whatever representation the SDK uses for an input schema
// into a plain JSON object.
func schemaMap(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// headerTransport adds static headers to every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
