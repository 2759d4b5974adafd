// Package schema holds the data types shared across the tutor chat service:
// chat transcripts, tool descriptors, tool results and agent run results.
package schema

import (
	"context"
	"encoding/json"
)

// ToolDescriptor describes one remote tool as advertised by the MCP catalog.
// InputSchema is a JSON-schema-like object and may be nil.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolCallRequest is one tool invocation requested by the LLM.
// CallID correlates the request with its result turn.
type ToolCallRequest struct {
	CallID    string
	ToolName  string
	Arguments map[string]any
}

// ToolCallResult is the outcome of executing a ToolCallRequest.
// Exactly one result exists for every request, including failed ones.
type ToolCallResult struct {
	Tool    string
	Success bool
	Data    any    // decoded payload of the remote operation
	Message string // informational note, e.g. for unimplemented tools
	Error   string // failure message; empty when Success
}

// OKResult builds a successful result carrying data.
func OKResult(tool string, data any) ToolCallResult {
	return ToolCallResult{Tool: tool, Success: true, Data: data}
}

// ErrorResult builds an error-shaped result for tool.
func ErrorResult(tool, message string) ToolCallResult {
	return ToolCallResult{Tool: tool, Error: message}
}

// IsError reports whether the result represents a failed call.
func (r ToolCallResult) IsError() bool { return !r.Success }

// DataMap returns Data as an object, or nil when it is not one.
func (r ToolCallResult) DataMap() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}

// Wire returns the JSON-compatible shape fed back to the LLM and returned to
// API callers.
func (r ToolCallResult) Wire() map[string]any {
	if r.IsError() {
		out := map[string]any{
			"success": false,
			"error":   true,
			"message": r.Error,
			"tool":    r.Tool,
		}
		if r.Data != nil {
			out["data"] = r.Data
		}
		return out
	}
	out := map[string]any{"success": true}
	if r.Data != nil {
		out["data"] = r.Data
	}
	if r.Message != "" {
		out["message"] = r.Message
	}
	return out
}

func (r ToolCallResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Wire())
}

// String renders the wire shape as compact JSON.
func (r ToolCallResult) String() string {
	b, err := json.Marshal(r.Wire())
	if err != nil {
		return `{"success":false,"error":true,"message":"unencodable tool result"}`
	}
	return string(b)
}

// ToolExecutor runs a named tool. Implementations never return Go errors:
// every failure is reported through the result.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) ToolCallResult
}

// ToolCatalog lists the tools available to an agent run.
type ToolCatalog interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
}
