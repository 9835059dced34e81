// Package summarize turns a window of channel history into a single
// summary: it resolves the window, pages backward through history,
// normalizes messages into a corpus, splits it, and map-reduces it
// through a chat provider.
package summarize

import (
	"context"
	"time"
)

// Message type names. Default and Reply carry user text; any other type
// is a platform event.
const (
	TypeDefault = "Default"
	TypeReply   = "Reply"
)

// Author identifies who posted a message.
type Author struct {
	ID       string
	Username string
	Bot      bool
}

// EmbedField is one name/value pair of an embed.
type EmbedField struct {
	Name  string
	Value string
}

// Embed is the rich-content block attached to a message.
type Embed struct {
	Title       string
	Description string
	Fields      []EmbedField
}

// Attachment is a file attached to a message.
type Attachment struct {
	Name string
}

// Message is a platform-neutral channel message.
type Message struct {
	ID        string
	CreatedAt time.Time
	// Author is nil when the platform did not resolve one.
	Author *Author
	// CleanContent has mentions rendered as names. Content is the raw text.
	CleanContent string
	Content      string
	Type         string
	Embeds       []Embed
	Attachments  []Attachment
}

// IsEvent reports whether the message is a platform event rather than a
// user post.
func (m Message) IsEvent() bool {
	return m.Type != "" && m.Type != TypeDefault && m.Type != TypeReply
}

// PageSource returns one page of channel history, newest first, strictly
// older than beforeID. An empty beforeID requests the newest page.
type PageSource interface {
	FetchPage(ctx context.Context, beforeID string, limit int) ([]Message, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, beforeID string, limit int) ([]Message, error)

func (f PageSourceFunc) FetchPage(ctx context.Context, beforeID string, limit int) ([]Message, error) {
	return f(ctx, beforeID, limit)
}
