package summarize

import (
	"strings"

	"github.com/memohai/recap/internal/prune"
)

// DefaultMaxMessageLength is the per-message rune budget.
const DefaultMaxMessageLength = 800

const corpusTimeLayout = "2006-01-02T15:04:05.000Z"

// CorpusOptions configures BuildCorpus.
type CorpusOptions struct {
	MaxMessageLength int
}

// CorpusResult is the flattened corpus.
type CorpusResult struct {
	Corpus string
	// TotalMessages is the input length, including skipped messages.
	TotalMessages  int
	TruncatedCount int
	Lines          int
}

// BuildCorpus renders one line per message:
//
//	[2006-01-02T15:04:05.000Z] author[ [bot]]: content
//
// User posts with no text, embed, or attachment produce no line. Platform
// events with nothing else to show produce "event: <type>".
func BuildCorpus(messages []Message, opts CorpusOptions) CorpusResult {
	maxLen := opts.MaxMessageLength
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}

	res := CorpusResult{TotalMessages: len(messages)}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		content := prune.CollapseWhitespace(messageContent(msg))
		if content == "" {
			continue
		}
		if cut, truncated := prune.TruncateRunes(content, maxLen); truncated {
			content = cut
			res.TruncatedCount++
		}
		lines = append(lines, "["+msg.CreatedAt.UTC().Format(corpusTimeLayout)+"] "+authorLabel(msg.Author)+": "+content)
	}
	res.Lines = len(lines)
	res.Corpus = strings.Join(lines, "\n")
	return res
}

func authorLabel(a *Author) string {
	if a == nil {
		return "Unknown"
	}
	name := a.Username
	if name == "" {
		name = "Unknown"
	}
	if a.Bot {
		return name + " [bot]"
	}
	return name
}

func messageContent(msg Message) string {
	text := strings.TrimSpace(msg.CleanContent)
	if text == "" {
		text = strings.TrimSpace(msg.Content)
	}
	if text != "" {
		return text
	}
	if s := embedText(msg.Embeds); s != "" {
		return "embed: " + s
	}
	if s := attachmentNames(msg.Attachments); s != "" {
		return "attachments: " + s
	}
	if msg.IsEvent() {
		return "event: " + msg.Type
	}
	return ""
}

func embedText(embeds []Embed) string {
	if len(embeds) == 0 {
		return ""
	}
	first := embeds[0]
	parts := make([]string, 0, 6)
	if first.Title != "" {
		parts = append(parts, first.Title)
	}
	if first.Description != "" {
		parts = append(parts, first.Description)
	}
	fields := first.Fields
	if len(fields) > 2 {
		fields = fields[:2]
	}
	for _, f := range fields {
		if f.Name != "" {
			parts = append(parts, f.Name)
		}
		if f.Value != "" {
			parts = append(parts, f.Value)
		}
	}
	return strings.Join(parts, " | ")
}

func attachmentNames(atts []Attachment) string {
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// OldestFirst returns a reversed copy of newest-first messages.
func OldestFirst(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[len(messages)-1-i] = m
	}
	return out
}
