package tools

import "context"

// RunContext carries per-run metadata through the context tree. It is set by
// the agent engine once per run and read by the executor for log correlation.
type RunContext struct {
	RunID   string
	Dialect string
}

type runKey struct{}

// WithRun returns a child context that carries rc.
func WithRun(ctx context.Context, rc RunContext) context.Context {
	return context.WithValue(ctx, runKey{}, rc)
}

// RunCtx extracts the RunContext from ctx.
// Returns a zero-value RunContext if none was set.
func RunCtx(ctx context.Context) RunContext {
	rc, _ := ctx.Value(runKey{}).(RunContext)
	return rc
}
