package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who authored a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// IsValid returns true if the role is one of the known roles
func (r MessageRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single chat message. SourceDocuments is only ever set on
// assistant messages built from retrieval results.
type Message struct {
	Role            MessageRole    `json:"role" validate:"required,oneof=user assistant system"`
	Content         string         `json:"content"`
	SourceDocuments []SearchResult `json:"sourceDocuments,omitempty"`
}

// NewUserMessage creates a user message
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewSystemMessage creates a system message
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewAssistantMessage creates an assistant message citing sources.
// An empty sources slice leaves SourceDocuments unset.
func NewAssistantMessage(content string, sources []SearchResult) Message {
	msg := Message{Role: RoleAssistant, Content: content}
	if len(sources) > 0 {
		msg.SourceDocuments = append([]SearchResult(nil), sources...)
	}
	return msg
}

// Validate checks the role and that only assistant messages carry sources
func (m Message) Validate() error {
	if !m.Role.IsValid() {
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if len(m.SourceDocuments) > 0 && m.Role != RoleAssistant {
		return fmt.Errorf("sourceDocuments is only allowed on assistant messages, got role %q", m.Role)
	}
	return nil
}

// LastUserMessage returns the index of the last user message, or -1 if there is none
func LastUserMessage(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// MaxTitleLength is the number of characters of the first message used as a title
const MaxTitleLength = 100

// Conversation is a persisted chat, replaced as a whole on every turn
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Path      string    `json:"path" db:"path"`
	Messages  []Message `json:"messages" db:"messages"`
}

// TableName returns the table name for the Conversation model
func (Conversation) TableName() string {
	return "chats"
}

// NewConversation creates a conversation whose title is derived from the first message
func NewConversation(id string, userID uuid.UUID, messages []Message) *Conversation {
	now := time.Now().UTC()
	title := ""
	if len(messages) > 0 {
		title = ConversationTitle(messages[0].Content)
	}
	return &Conversation{
		ID:        id,
		Title:     title,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Path:      ConversationPath(id),
		Messages:  messages,
	}
}

// ConversationTitle truncates content to MaxTitleLength characters
func ConversationTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxTitleLength {
		return content
	}
	return string(runes[:MaxTitleLength])
}

// ConversationPath returns the client route of a conversation
func ConversationPath(id string) string {
	return "/chat/" + id
}

// IsOwnedBy returns true if the conversation belongs to userID
func (c *Conversation) IsOwnedBy(userID uuid.UUID) bool {
	return c.UserID == userID
}
