package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// Chat types.
const (
	TypeGeneral = "general"
	TypeCourse  = "course"
)

// Chat holds one conversation's messages and metadata.
type Chat struct {
	ID        string
	ModelName string
	ChatType  string
	CourseID  string
	Messages  schema.Messages
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// NewChat creates an unsaved chat with a fresh id.
func NewChat(modelName, chatType string) *Chat {
	if chatType == "" {
		chatType = TypeGeneral
	}
	now := time.Now().UTC()
	return &Chat{
		ID:        uuid.NewString(),
		ModelName: modelName,
		ChatType:  chatType,
		Messages:  schema.NewMessages(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddUser appends a user message.
func (c *Chat) AddUser(content, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := schema.NewUserMessage(content)
	msg.Model = model
	c.Messages.Add(msg)
	c.UpdatedAt = time.Now().UTC()
}

// AddAssistant appends an assistant message produced by model.
func (c *Chat) AddAssistant(content, model string, context []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages.AddAssistant(content, model, context)
	c.UpdatedAt = time.Now().UTC()
}

// MarkCourse turns the chat into a course chat, recording courseID when set.
func (c *Chat) MarkCourse(courseID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ChatType = TypeCourse
	if courseID != "" {
		c.CourseID = courseID
	}
	c.UpdatedAt = time.Now().UTC()
}

// SetModel records the model used for the chat.
func (c *Chat) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ModelName = model
}

// History returns a snapshot of the messages.
func (c *Chat) History() schema.Messages {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Messages.Clone()
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Messages.Len()
}

// Summary is the list view of a chat.
type Summary struct {
	ID           string    `json:"chatId"`
	ModelName    string    `json:"modelName"`
	ChatType     string    `json:"chatType"`
	CourseID     string    `json:"courseId,omitempty"`
	MessageCount int       `json:"messageCount"`
	LastMessage  string    `json:"lastMessage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// View is the JSON shape of a chat with its messages.
type View struct {
	ID        string           `json:"chatId"`
	ModelName string           `json:"modelName"`
	ChatType  string           `json:"chatType"`
	CourseID  string           `json:"courseId,omitempty"`
	Messages  []schema.Message `json:"messages"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// View returns a snapshot of the chat for rendering.
func (c *Chat) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]schema.Message, len(c.Messages.Messages))
	copy(msgs, c.Messages.Messages)
	return View{
		ID:        c.ID,
		ModelName: c.ModelName,
		ChatType:  c.ChatType,
		CourseID:  c.CourseID,
		Messages:  msgs,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
