package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/prune"
	"github.com/memohai/recap/internal/summarize"
)

// Discord rejects embed descriptions over 4096 characters.
const maxEmbedDescription = 4000

func description(s string) string {
	out, _ := prune.TruncateRunes(s, maxEmbedDescription)
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func errorEmbed(message string, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Error",
		Description: description(message),
		Color:       colorError,
		Timestamp:   timestamp(now),
	}
}

func askEmbed(resp flow.AskResponse, user *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "💬 Conversation", Value: fmt.Sprintf("%d messages in this thread", resp.MessageCount), Inline: true},
	}
	if resp.Usage.TotalTokens > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "📊 Usage",
			Value:  fmt.Sprintf("Tokens: %d (%d + %d)", resp.Usage.TotalTokens, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
			Inline: true,
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name:   "⏱️ Rate Limit",
		Value:  fmt.Sprintf("%d requests remaining", resp.Remaining),
		Inline: true,
	})
	return &discordgo.MessageEmbed{
		Title:       "🤖 AI Response",
		Description: description(resp.Content),
		Color:       colorInfo,
		Fields:      fields,
		Footer:      requestedBy(user),
		Timestamp:   timestamp(now),
	}
}

type summaryOptions struct {
	ChannelName string
	IncludeBots bool
	MaxMessages int
	Ephemeral   bool
}

func summaryEmbed(res summarize.Result, opts summaryOptions, now time.Time) *discordgo.MessageEmbed {
	visibility := visibilityPublic
	if opts.Ephemeral {
		visibility = visibilityEphemeral
	}
	stats := fmt.Sprintf("Messages scanned: %d\nParticipants: %d\nChunks: %d", res.MessagesScanned, res.Participants, res.Chunks)
	if res.Truncated > 0 {
		stats += fmt.Sprintf("\nTruncated: %d", res.Truncated)
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Channel Summary (%s)", res.Window.Label),
		Description: description(res.Summary),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Stats", Value: stats, Inline: true},
			{
				Name:   "⚙️ Options",
				Value:  fmt.Sprintf("Include bots: %s\nMax messages: %d\nVisibility: %s", yesNo(opts.IncludeBots), opts.MaxMessages, visibility),
				Inline: true,
			},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Channel: " + opts.ChannelName},
		Timestamp: timestamp(now),
	}
}

func pingStatus(latency time.Duration) string {
	switch {
	case latency < 100*time.Millisecond:
		return "🟢 Excellent"
	case latency < 300*time.Millisecond:
		return "🟡 Good"
	}
	return "🔴 Poor"
}

func pingEmbed(botLatency, wsLatency time.Duration, user *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📡 Bot Latency", Value: fmt.Sprintf("%dms", botLatency.Milliseconds()), Inline: true},
			{Name: "🌐 Discord API Latency", Value: fmt.Sprintf("%dms", wsLatency.Milliseconds()), Inline: true},
			{Name: "📊 Status", Value: pingStatus(botLatency), Inline: true},
		},
		Footer:    requestedBy(user),
		Timestamp: timestamp(now),
	}
}

type helpInfo struct {
	MaxRequests             int
	ConversationMaxMessages int
	ConversationMaxAge      time.Duration
	DefaultModel            string
	MaxTokens               int
}

func helpEmbed(info helpInfo, user *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	ranges := strings.Join(summarize.SupportedRanges(), ", ")
	return &discordgo.MessageEmbed{
		Title:       "🤖 Discord AI Bot Help",
		Description: "Here are the available commands:",
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "❓ `/ask`",
				Value: "Ask the AI anything (supports conversation memory)\n**Usage:** `/ask prompt: your question here`\n**Features:** Remembers previous messages in your conversation",
			},
			{
				Name:  "📰 `/summarize`",
				Value: fmt.Sprintf("Summarize a channel over a time window\n**Usage:** `/summarize range: 24h [channel] [include_bots] [max_messages] [visibility]`\n**Ranges:** %s", ranges),
			},
			{
				Name:  "💬 `/conversation`",
				Value: "Manage your conversation with the AI\n**Subcommands:**\n• `/conversation clear` - Clear your conversation history\n• `/conversation info` - Show conversation statistics",
			},
			{
				Name:  "🧠 `/model`",
				Value: "Manage the AI model for this server\n**Subcommands:**\n• `/model list` - List available models\n• `/model current` - Show the current model\n• `/model set` - Change the model (Manage Server only)",
			},
			{
				Name:  "❓ `/help`",
				Value: "Show this help message\n**Usage:** `/help`",
			},
			{
				Name:  "🏓 `/ping`",
				Value: "Check bot responsiveness and latency\n**Usage:** `/ping`",
			},
			{
				Name:  "📋 Rate Limits",
				Value: fmt.Sprintf("• %d requests per user per minute\n• Maximum %d characters per question", info.MaxRequests, flow.MaxPromptLength),
			},
			{
				Name: "💬 Conversation Features",
				Value: fmt.Sprintf("• **Memory**: Each user has their own conversation thread\n• **Context**: AI remembers previous messages in your conversation\n• **Auto-cleanup**: Conversations expire after %d minutes of inactivity\n• **Smart truncation**: Keeps last %d messages to stay within limits",
					int(info.ConversationMaxAge.Minutes()), info.ConversationMaxMessages),
			},
			{
				Name:  "🔧 Technical Info",
				Value: fmt.Sprintf("• Default model: %s\n• Max response length: up to %d tokens", info.DefaultModel, info.MaxTokens),
			},
		},
		Footer:    requestedBy(user),
		Timestamp: timestamp(now),
	}
}
