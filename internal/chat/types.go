package chat

import "context"

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is the internal request structure
type Request struct {
	Messages  []Message
	Model     string
	MaxTokens *int // optional max completion tokens
}

// Result is the internal result structure
type Result struct {
	Message      Message
	Model        string
	Provider     string
	FinishReason string
	Usage        Usage
}

// Provider sends one chat completion request.
type Provider interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// Pinger verifies provider connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
