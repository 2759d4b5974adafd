package schema

import "time"

// AgentSettings bounds a single agent run.
type AgentSettings struct {
	Model         string
	MaxIterations int
	RunTimeout    time.Duration
	ParallelTools bool
}

// NewAgentSettings bundles the bounds of one agent run.
func NewAgentSettings(model string, maxIterations int, runTimeout time.Duration, parallelTools bool) AgentSettings {
	return AgentSettings{
		Model:         model,
		MaxIterations: maxIterations,
		RunTimeout:    runTimeout,
		ParallelTools: parallelTools,
	}
}

// Outcome is the terminal state of an agent run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeExhausted Outcome = "exhausted"
)

// ExecutionLogEntry records one tool invocation of an agent run.
type ExecutionLogEntry struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result ToolCallResult `json:"result"`
}

// RunResult is what an agent run returns to its caller.
type RunResult struct {
	Outcome         Outcome             `json:"-"`
	Success         bool                `json:"success"`
	FinalResponse   string              `json:"finalResponse,omitempty"`
	ExecutionLog    []ExecutionLogEntry `json:"executionLog"`
	Iterations      int                 `json:"iterations"`
	ToolsExecuted   int                 `json:"toolsExecuted"`
	Error           string              `json:"error,omitempty"`
	PartialResponse string              `json:"partialResponse,omitempty"`
}
