package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/shared/llmutils"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/tools"
)

// BatchExecutor runs the tool calls of one round and returns one result per
// call in request order.
type BatchExecutor interface {
	ExecuteAll(ctx context.Context, calls []schema.ToolCallRequest, parallel bool) []schema.ToolCallResult
}

// Tracer records span-style events for agent runs.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string, _ map[string]any) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (nopTracer) Event(context.Context, string, map[string]any) {}

// LoopRunner executes the LLM ↔ tool iteration loop for one dialect.
// A LoopRunner holds no per-run state and may serve concurrent runs.
type LoopRunner struct {
	dialect  Dialect
	catalog  schema.ToolCatalog
	executor BatchExecutor
	settings schema.AgentSettings
	tracer   Tracer
}

// NewLoopRunner returns a LoopRunner. A nil tracer disables tracing.
func NewLoopRunner(dialect Dialect, catalog schema.ToolCatalog, executor BatchExecutor, settings schema.AgentSettings, tracer Tracer) *LoopRunner {
	if tracer == nil {
		tracer = nopTracer{}
	}
	return &LoopRunner{
		dialect:  dialect,
		catalog:  catalog,
		executor: executor,
		settings: settings,
		tracer:   tracer,
	}
}

// Dialect returns the name of the dialect this runner drives.
func (r *LoopRunner) Dialect() string { return r.dialect.Name() }

// Run drives one agent run for task. An exhausted run is not an error: it
// returns a RunResult with Outcome OutcomeExhausted. The returned error is
// always a *LoopError and the RunResult then carries the trace so far.
func (r *LoopRunner) Run(ctx context.Context, task string, onProgress func(string)) (schema.RunResult, error) {
	if r.settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.settings.RunTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx = tools.WithRun(ctx, tools.RunContext{RunID: runID, Dialect: r.dialect.Name()})
	ctx, finish := r.tracer.StartSpan(ctx, "agent_run", map[string]any{
		"runId":   runID,
		"dialect": r.dialect.Name(),
		"model":   r.settings.Model,
	})

	start := time.Now()
	slog.Info("Agent loop started", "dialect", r.dialect.Name(), "runId", runID, "task", llmutils.Truncate(task, 80))

	res, err := r.run(ctx, task, onProgress)

	slog.Info("Agent loop finished",
		"dialect", r.dialect.Name(),
		"runId", runID,
		"success", res.Success,
		"iterations", res.Iterations,
		"toolsExecuted", res.ToolsExecuted,
		"duration", time.Since(start),
		"err", err,
	)
	r.tracer.Event(ctx, "run_end", map[string]any{
		"success":       res.Success,
		"iterations":    res.Iterations,
		"toolsExecuted": res.ToolsExecuted,
	})
	finish(err)
	return res, err
}

func (r *LoopRunner) run(ctx context.Context, task string, onProgress func(string)) (schema.RunResult, error) {
	res := schema.RunResult{ExecutionLog: []schema.ExecutionLogEntry{}}
	fatal := func(err error) (schema.RunResult, error) {
		slog.Error("Agent loop error", "dialect", r.dialect.Name(), "err", err)
		return res, &LoopError{Dialect: r.dialect.Name(), Err: err}
	}

	descriptors, err := r.catalog.ListTools(ctx)
	if err != nil {
		return fatal(fmt.Errorf("list tools: %w", err))
	}
	slog.Info("MCP tools available", "count", len(descriptors))

	conv, err := r.dialect.Start(ctx, CourseArchitectPrompt, task, descriptors)
	if err != nil {
		return fatal(err)
	}

	for rounds := 0; ; rounds++ {
		if err := ctx.Err(); err != nil {
			return fatal(err)
		}

		reply, err := conv.Send(ctx)
		if err != nil {
			return fatal(err)
		}

		if reply.IsFinal() {
			res.Outcome = schema.OutcomeSuccess
			res.Success = true
			res.FinalResponse = llmutils.StripThink(reply.Text)
			res.Iterations = rounds
			return res, nil
		}

		if rounds >= r.settings.MaxIterations {
			slog.Warn("Iteration limit reached", "dialect", r.dialect.Name(), "max", r.settings.MaxIterations)
			res.Outcome = schema.OutcomeExhausted
			res.Error = ErrIterationLimit.Error()
			res.PartialResponse = llmutils.StripThink(reply.Text)
			res.Iterations = rounds
			return res, nil
		}

		slog.Info("LLM requested tools", "iteration", rounds+1, "max", r.settings.MaxIterations, "count", len(reply.ToolCalls))
		if onProgress != nil {
			if clean := llmutils.StripThink(reply.Text); clean != "" {
				onProgress(clean)
			}
			onProgress(llmutils.ToolHint(reply.ToolCalls))
		}

		results := r.executor.ExecuteAll(ctx, reply.ToolCalls, r.settings.ParallelTools)
		for i, call := range reply.ToolCalls {
			r.record(ctx, &res, call, results[i])
		}
		conv.AddToolResults(reply.ToolCalls, results)
	}
}

func (r *LoopRunner) record(ctx context.Context, res *schema.RunResult, call schema.ToolCallRequest, result schema.ToolCallResult) {
	argsJSON, _ := json.Marshal(call.Arguments)
	if result.IsError() {
		slog.Warn("Tool call failed", "name", call.ToolName, "args", llmutils.Truncate(string(argsJSON), 200), "err", result.Error)
	} else {
		slog.Info("Tool call", "name", call.ToolName, "args", llmutils.Truncate(string(argsJSON), 200))
	}
	r.tracer.Event(ctx, "tool_call", map[string]any{
		"tool":    call.ToolName,
		"callId":  call.CallID,
		"success": result.Success,
	})

	res.ExecutionLog = append(res.ExecutionLog, schema.ExecutionLogEntry{
		Tool:   call.ToolName,
		Args:   call.Arguments,
		Result: result,
	})
	res.ToolsExecuted = len(res.ExecutionLog)
}
