// Package conversation keeps short-lived per-user chat histories for the
// ask command.
package conversation

import (
	"errors"
	"time"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultMaxMessages is the number of non-system messages kept per user.
	DefaultMaxMessages = 20
	// DefaultMaxAge is the idle time after which a conversation is swept.
	DefaultMaxAge = 30 * time.Minute
	// DefaultSystemPrompt seeds every new conversation.
	DefaultSystemPrompt = "You are a helpful AI assistant in a Discord server. Provide clear, concise, and accurate responses. Use Discord markdown formatting when appropriate."
)

// ErrInvalidRole is returned when appending a message whose role is not
// user or assistant.
var ErrInvalidRole = errors.New("conversation: role must be user or assistant")

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the history of one user.
type Conversation struct {
	OwnerID      string    `json:"owner_id"`
	Messages     []Message `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
	// MessageCount counts appended user and assistant turns. Trimming does
	// not decrease it.
	MessageCount int `json:"message_count"`
}

// NonSystem returns the messages that are not system instructions.
func (c Conversation) NonSystem() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	TotalConversations int `json:"total_conversations"`
	TotalMessages      int `json:"total_messages"`
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
