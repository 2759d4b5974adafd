package schema

import "strings"

// Messages is the ordered transcript of a chat.
// It owns typed append methods so callers never construct raw messages.
type Messages struct {
	Messages []Message
}

// NewMessages returns a Messages initialised with the given messages.
// Called with no arguments it returns an empty Messages ready for use.
func NewMessages(msgs ...Message) Messages {
	if len(msgs) == 0 {
		return Messages{Messages: make([]Message, 0)}
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return Messages{Messages: out}
}

// AddSystem appends a system message.
func (mh *Messages) AddSystem(content string) {
	mh.Messages = append(mh.Messages, NewSystemMessage(content))
}

// AddUser appends a user message.
func (mh *Messages) AddUser(content string) {
	mh.Messages = append(mh.Messages, NewUserMessage(content))
}

// AddAssistant appends an assistant message produced by model.
func (mh *Messages) AddAssistant(content, model string, context []int) {
	mh.Messages = append(mh.Messages, NewAssistantMessage(content, model, context))
}

// Len returns the number of messages.
func (mh *Messages) Len() int { return len(mh.Messages) }

// Last returns the most recent message, or false when the transcript is empty.
func (mh *Messages) Last() (Message, bool) {
	if len(mh.Messages) == 0 {
		return Message{}, false
	}
	return mh.Messages[len(mh.Messages)-1], true
}

// LastContext returns the Ollama context of the latest assistant message.
func (mh *Messages) LastContext() []int {
	for i := len(mh.Messages) - 1; i >= 0; i-- {
		if mh.Messages[i].Role == RoleAssistant {
			return mh.Messages[i].Context
		}
	}
	return nil
}

// Transcript renders the messages as "Role: content" lines, skipping system
// messages. Used to give single-prompt providers the chat history.
func (mh *Messages) Transcript() string {
	var sb strings.Builder
	for _, m := range mh.Messages {
		switch m.Role {
		case RoleUser:
			sb.WriteString("User: ")
		case RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// Add appends msg as-is.
func (mh *Messages) Add(msg Message) {
	mh.Messages = append(mh.Messages, msg)
}

// Append copies all messages from other into mh.
func (mh *Messages) Append(other Messages) {
	mh.Messages = append(mh.Messages, other.Messages...)
}

// Clone returns a copy of mh with an independent backing slice.
func (mh *Messages) Clone() Messages {
	cloned := make([]Message, len(mh.Messages))
	copy(cloned, mh.Messages)
	return Messages{Messages: cloned}
}
