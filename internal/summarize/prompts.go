package summarize

import (
	"fmt"
	"strings"
)

// DefaultReduceMaxWords caps the length of a merged summary.
const DefaultReduceMaxWords = 700

// SystemPrompt is sent with every summarization call.
const SystemPrompt = "You are an expert summarizer for Discord channel histories. " +
	"Produce a concise, neutral summary for readers who did not follow the conversation. " +
	"Structure your output with: short overview paragraph; 3–7 key topics as bullets; optional actions/decisions; brief sentiment/engagement. " +
	"Avoid sensitive verbatim quotes; prefer paraphrases."

// SummaryContext describes the corpus being summarized.
type SummaryContext struct {
	ChannelName   string
	WindowLabel   string
	TotalMessages int
	Participants  int
	// Model is the chat model to use; empty lets the orchestrator default.
	Model string
}

func chunkPrompt(sc SummaryContext, text string) string {
	channel := sc.ChannelName
	if channel == "" {
		channel = "#current"
	}
	return fmt.Sprintf("Summarize messages from channel \"%s\" in the %s. Total scanned: %d messages from %d participants. Content:\n%s",
		channel, sc.WindowLabel, sc.TotalMessages, sc.Participants, text)
}

func reducePrompt(partials []string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultReduceMaxWords
	}
	parts := make([]string, 0, len(partials))
	for i, p := range partials {
		parts = append(parts, fmt.Sprintf("Part %d:\n%s", i+1, p))
	}
	return fmt.Sprintf("Combine these partial summaries into a single concise summary with the same structure. Do not exceed %d words.\n\n%s",
		maxWords, strings.Join(parts, "\n\n"))
}
