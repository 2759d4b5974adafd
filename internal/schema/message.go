package schema

import "time"

// Chat roles stored in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry in a persisted conversation.
//
// Model records which LLM produced an assistant message. Context carries the
// opaque token context returned by Ollama so a follow-up request can resume
// from it; other providers leave it empty.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	Context   []int     `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSystemMessage(content string) Message {
	return Message{
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewAssistantMessage(content, model string, context []int) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Model:     model,
		Context:   context,
		Timestamp: time.Now(),
	}
}
