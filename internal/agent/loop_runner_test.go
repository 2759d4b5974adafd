package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/tools"
)

// scriptedDialect replays a fixed list of replies. When the script runs out
// it repeats the last reply.
type scriptedDialect struct {
	name    string
	replies []Reply
	sendErr error
	// stallAfter makes Send block until ctx ends once that many replies
	// were sent. Zero disables it.
	stallAfter int

	mu      sync.Mutex
	system  string
	task    string
	tools   []schema.ToolDescriptor
	sends   int
	results [][]schema.ToolCallResult
	callIDs [][]string
}

func (d *scriptedDialect) Name() string { return d.name }

func (d *scriptedDialect) Start(_ context.Context, system, task string, tools []schema.ToolDescriptor) (Conversation, error) {
	d.system, d.task, d.tools = system, task, tools
	return d, nil
}

func (d *scriptedDialect) Send(ctx context.Context) (Reply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return Reply{}, d.sendErr
	}
	if d.stallAfter > 0 && d.sends >= d.stallAfter {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	i := d.sends
	if i >= len(d.replies) {
		i = len(d.replies) - 1
	}
	d.sends++
	return d.replies[i], nil
}

func (d *scriptedDialect) AddToolResults(calls []schema.ToolCallRequest, results []schema.ToolCallResult) {
	ids := make([]string, len(calls))
	for i, c := range calls {
		ids[i] = c.CallID
	}
	d.callIDs = append(d.callIDs, ids)
	d.results = append(d.results, results)
}

type staticCatalog struct {
	tools []schema.ToolDescriptor
	err   error
}

func (c staticCatalog) ListTools(context.Context) ([]schema.ToolDescriptor, error) {
	return c.tools, c.err
}

// courseExecutor fakes the course tools with deterministic ids.
type courseExecutor struct {
	mu    sync.Mutex
	calls []string
}

func (e *courseExecutor) ExecuteAll(_ context.Context, calls []schema.ToolCallRequest, _ bool) []schema.ToolCallResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]schema.ToolCallResult, len(calls))
	for i, c := range calls {
		e.calls = append(e.calls, c.ToolName)
		switch c.ToolName {
		case "create_course":
			out[i] = schema.OKResult(c.ToolName, map[string]any{"success": true, "data": map[string]any{"idCourse": "course-1"}})
		case "create_section":
			out[i] = schema.OKResult(c.ToolName, map[string]any{"success": true, "data": map[string]any{"idSection": "section-" + c.CallID}})
		default:
			out[i] = schema.ErrorResult(c.ToolName, "unknown MCP tool: "+c.ToolName)
		}
	}
	return out
}

func call(id, name string, args map[string]any) schema.ToolCallRequest {
	return schema.ToolCallRequest{CallID: id, ToolName: name, Arguments: args}
}

func newRunner(d Dialect, ex BatchExecutor, maxIter int) *LoopRunner {
	cat := staticCatalog{tools: []schema.ToolDescriptor{{Name: "create_course"}, {Name: "create_section"}}}
	return NewLoopRunner(d, cat, ex, schema.NewAgentSettings("test-model", maxIter, time.Minute, false), nil)
}

func TestRun_ImmediateFinalReply(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{{Text: "Nothing to do."}}}
	ex := &courseExecutor{}

	res, err := newRunner(d, ex, 20).Run(context.Background(), "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, schema.OutcomeSuccess, res.Outcome)
	assert.True(t, res.Success)
	assert.Equal(t, "Nothing to do.", res.FinalResponse)
	assert.Equal(t, 0, res.Iterations)
	assert.Empty(t, res.ExecutionLog)
	assert.Equal(t, CourseArchitectPrompt, d.system)
	assert.Equal(t, "hello", d.task)
	assert.Len(t, d.tools, 2)
}

func TestRun_TwoSectionCourse(t *testing.T) {
	d := &scriptedDialect{name: "Gemini", replies: []Reply{
		{ToolCalls: []schema.ToolCallRequest{call("a", "create_course", map[string]any{"title": "Intro to X", "level": "BEGINNER"})}},
		{ToolCalls: []schema.ToolCallRequest{
			call("b", "create_section", map[string]any{"courseId": "course-1", "title": "Basics", "order": 1.0}),
			call("c", "create_section", map[string]any{"courseId": "course-1", "title": "Next steps", "order": 2.0}),
		}},
		{Text: "The course Intro to X is ready."},
	}}
	ex := &courseExecutor{}

	res, err := newRunner(d, ex, 60).Run(context.Background(), "Create a 2-section beginner course called 'Intro to X'", nil)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 3, res.ToolsExecuted)
	assert.Equal(t, []string{"create_course", "create_section", "create_section"}, ex.calls)

	info := ExtractCourseInfo(res.ExecutionLog)
	assert.Equal(t, "course-1", info.CourseID)
	assert.Equal(t, "BEGINNER", info.Level)
	assert.Equal(t, 2, info.SectionsCreated)
}

func TestRun_ResultsCorrelateWithCalls(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{
		{ToolCalls: []schema.ToolCallRequest{
			call("1", "create_course", nil),
			call("2", "nope", nil),
			call("3", "create_section", nil),
		}},
		{Text: "done"},
	}}

	res, err := newRunner(d, &courseExecutor{}, 20).Run(context.Background(), "go", nil)

	require.NoError(t, err)
	require.Len(t, res.ExecutionLog, 3)
	require.Len(t, d.results, 1)
	assert.Equal(t, []string{"1", "2", "3"}, d.callIDs[0])
	assert.Len(t, d.results[0], 3)
	assert.Equal(t, "nope", res.ExecutionLog[1].Tool)
	assert.True(t, res.ExecutionLog[1].Result.IsError())
}

func TestRun_UnknownToolDoesNotStopLoop(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{
		{ToolCalls: []schema.ToolCallRequest{call("1", "delete_everything", nil)}},
		{ToolCalls: []schema.ToolCallRequest{call("2", "create_course", nil)}},
		{Text: "ok"},
	}}

	res, err := newRunner(d, &courseExecutor{}, 20).Run(context.Background(), "go", nil)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.ToolsExecuted)
}

func TestRun_ExhaustsAtCap(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{
		{Text: "still working", ToolCalls: []schema.ToolCallRequest{call("x", "create_section", nil)}},
	}}
	ex := &courseExecutor{}

	res, err := newRunner(d, ex, 3).Run(context.Background(), "loop forever", nil)

	require.NoError(t, err)
	assert.Equal(t, schema.OutcomeExhausted, res.Outcome)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, res.ToolsExecuted)
	assert.Equal(t, ErrIterationLimit.Error(), res.Error)
	assert.Equal(t, "still working", res.PartialResponse)
	assert.Equal(t, 4, d.sends)
}

func TestRun_LLMFailureIsFatal(t *testing.T) {
	d := &scriptedDialect{name: "Gemini", sendErr: errors.New("401 unauthorized")}

	_, err := newRunner(d, &courseExecutor{}, 60).Run(context.Background(), "go", nil)

	require.Error(t, err)
	var loopErr *LoopError
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, "Gemini", loopErr.Dialect)
	assert.Equal(t, "Agent Loop Error (Gemini): 401 unauthorized", err.Error())
}

func TestRun_CatalogFailureIsFatal(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{{Text: "unused"}}}
	cat := staticCatalog{err: errors.New("connection refused")}
	r := NewLoopRunner(d, cat, &courseExecutor{}, schema.NewAgentSettings("m", 20, 0, false), nil)

	_, err := r.Run(context.Background(), "go", nil)

	assert.ErrorContains(t, err, "Agent Loop Error (OpenAI)")
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 0, d.sends)
}

func TestRun_CancelledContextIsFatal(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{{Text: "unused"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(d, &courseExecutor{}, 20).Run(ctx, "go", nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ProgressCallback(t *testing.T) {
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{
		{Text: "Creating the course", ToolCalls: []schema.ToolCallRequest{call("1", "create_course", map[string]any{"title": "Go"})}},
		{Text: "done"},
	}}
	var got []string

	_, err := newRunner(d, &courseExecutor{}, 20).Run(context.Background(), "go", func(s string) { got = append(got, s) })

	require.NoError(t, err)
	assert.Equal(t, []string{"Creating the course", `create_course("Go")`}, got)
}

func TestRun_WithRealExecutorParallel(t *testing.T) {
	reg := tools.NewRegistryBuilder().
		WithTool(tools.ToolCreateSection, func(_ context.Context, args map[string]any) (schema.ToolCallResult, error) {
			return schema.OKResult("create_section", map[string]any{"idSection": args["title"]}), nil
		}).
		Build()
	d := &scriptedDialect{name: "OpenAI", replies: []Reply{
		{ToolCalls: []schema.ToolCallRequest{
			call("1", "create_section", map[string]any{"title": "s1"}),
			call("2", "create_section", map[string]any{"title": "s2"}),
			call("3", "create_section", map[string]any{"title": "s3"}),
		}},
		{Text: "done"},
	}}
	cat := staticCatalog{}
	r := NewLoopRunner(d, cat, tools.NewExecutor(reg), schema.NewAgentSettings("m", 20, time.Minute, true), nil)

	res, err := r.Run(context.Background(), "go", nil)

	require.NoError(t, err)
	require.Len(t, res.ExecutionLog, 3)
	for i, want := range []string{"s1", "s2", "s3"} {
		assert.Equal(t, want, res.ExecutionLog[i].Result.DataMap()["idSection"])
	}
}

func TestRun_DeadlineIsFatal(t *testing.T) {
	d := &scriptedDialect{name: "Gemini", stallAfter: 1, replies: []Reply{
		{ToolCalls: []schema.ToolCallRequest{call("c1", "create_course", map[string]any{"title": "Go"})}},
	}}
	cat := staticCatalog{tools: []schema.ToolDescriptor{{Name: "create_course"}}}
	r := NewLoopRunner(d, cat, &courseExecutor{}, schema.NewAgentSettings("m", 20, 20*time.Millisecond, false), nil)

	start := time.Now()
	res, err := r.Run(context.Background(), "task", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var loopErr *LoopError
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, "Gemini", loopErr.Dialect)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.False(t, res.Success)
	require.Len(t, res.ExecutionLog, 1)
	assert.Equal(t, "create_course", res.ExecutionLog[0].Tool)
	assert.Equal(t, 1, res.ToolsExecuted)
}
