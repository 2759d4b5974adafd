package agent

import (
	"context"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// Reply is one LLM answer normalised across dialects.
type Reply struct {
	Text      string
	ToolCalls []schema.ToolCallRequest
}

// IsFinal reports whether the reply ends the run.
func (r Reply) IsFinal() bool { return len(r.ToolCalls) == 0 }

// Dialect adapts one function-calling API family to the shared loop.
type Dialect interface {
	// Name is used in log lines and in LoopError, e.g. "OpenAI".
	Name() string
	// Start opens a conversation primed with the system instruction, the
	// task prompt and the tool catalog.
	Start(ctx context.Context, system, task string, tools []schema.ToolDescriptor) (Conversation, error)
}

// Conversation is the dialect-native history of one run. It is owned by a
// single run and is not safe for concurrent use.
type Conversation interface {
	// Send calls the LLM with the current history and appends its reply.
	Send(ctx context.Context) (Reply, error)
	// AddToolResults appends one result per call, in call order.
	AddToolResults(calls []schema.ToolCallRequest, results []schema.ToolCallResult)
}
