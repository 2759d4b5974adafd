// Package tools executes the remote course tools requested by an agent run.
// Calls go to the MCP server first; schema-shaped failures of the create and
// list operations are re-issued against the course REST API.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// ErrUnknownTool is returned (wrapped in the result message) for names
// outside the dispatch table.
var ErrUnknownTool = errors.New("unknown MCP tool")

// schemaMarkers are the failure texts that identify an MCP output-schema
// rejection. Matching is case-insensitive.
var schemaMarkers = []string{"output schema", "additional properties"}

// IsSchemaIncompatibility reports whether err is the MCP server refusing its
// own response shape, which the REST API does not suffer from.
func IsSchemaIncompatibility(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range schemaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Executor dispatches tool calls through a Registry. It implements
// schema.ToolExecutor.
type Executor struct {
	registry *Registry
}

var _ schema.ToolExecutor = (*Executor)(nil)

// NewExecutor returns an Executor over reg.
func NewExecutor(reg *Registry) *Executor {
	return &Executor{registry: reg}
}

// Registry exposes the dispatch table.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs one tool. It never returns a Go error and never panics.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (res schema.ToolCallResult) {
	if args == nil {
		args = map[string]any{}
	}
	log := slog.With("tool", name, "runId", RunCtx(ctx).RunID)

	ent, ok := e.registry.lookup(name)
	if !ok {
		log.Warn("Unknown tool requested")
		return schema.ErrorResult(name, fmt.Errorf("%w: %s", ErrUnknownTool, name).Error())
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Tool handler panicked", "panic", r, "stack", string(debug.Stack()))
			res = schema.ErrorResult(name, fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	res, err := ent.handler(ctx, args)
	switch {
	case err != nil:
		if ent.fallback != nil && IsSchemaIncompatibility(err) {
			log.Warn("MCP schema error (exception), using direct API", "err", err)
			return e.fallback(ctx, name, ent.fallback, args)
		}
		log.Error("Tool call failed", "err", err)
		return schema.ErrorResult(name, err.Error())

	case res.IsError() && ent.fallback != nil && IsSchemaIncompatibility(errors.New(res.Error)):
		log.Warn("MCP schema error, using direct API", "err", res.Error)
		return e.fallback(ctx, name, ent.fallback, args)
	}

	if res.Tool == "" {
		res.Tool = name
	}
	return res
}

func (e *Executor) fallback(ctx context.Context, name string, f Fallback, args map[string]any) schema.ToolCallResult {
	data, err := f(ctx, args)
	if err != nil {
		slog.Error("Direct API fallback failed", "tool", name, "err", err)
		return schema.ErrorResult(name, err.Error())
	}
	return schema.OKResult(name, data)
}

// ExecuteAll runs calls and returns their results in request order. With
// parallel set the calls of one batch run concurrently.
func (e *Executor) ExecuteAll(ctx context.Context, calls []schema.ToolCallRequest, parallel bool) []schema.ToolCallResult {
	if !parallel || len(calls) < 2 {
		out := make([]schema.ToolCallResult, len(calls))
		for i, c := range calls {
			out[i] = e.Execute(ctx, c.ToolName, c.Arguments)
		}
		return out
	}
	return iter.Map(calls, func(c *schema.ToolCallRequest) schema.ToolCallResult {
		return e.Execute(ctx, c.ToolName, c.Arguments)
	})
}
