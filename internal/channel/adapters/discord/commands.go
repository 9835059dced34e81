package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/summarize"
)

const (
	commandAsk          = "ask"
	commandSummarize    = "summarize"
	commandConversation = "conversation"
	commandModel        = "model"
	commandHelp         = "help"
	commandPing         = "ping"
)

const (
	visibilityEphemeral = "ephemeral"
	visibilityPublic    = "public"
)

var rangeChoiceNames = map[string]string{
	"1h":  "1 hour",
	"6h":  "6 hours",
	"24h": "24 hours",
	"3d":  "3 days",
	"7d":  "7 days",
	"30d": "30 days",
}

// Commands returns the slash command manifest. supported fills the
// choices of /model set.
func Commands(supported []string) []*discordgo.ApplicationCommand {
	minMessages := float64(summarize.MinMaxMessages)

	rangeChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(summarize.SupportedRanges()))
	for _, token := range summarize.SupportedRanges() {
		name, ok := rangeChoiceNames[token]
		if !ok {
			name = token
		}
		rangeChoices = append(rangeChoices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: token})
	}
	modelChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(supported))
	for _, m := range supported {
		modelChoices = append(modelChoices, &discordgo.ApplicationCommandOptionChoice{Name: m, Value: m})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        commandAsk,
			Description: "Ask the AI anything (supports conversation memory)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "Your question or prompt",
					Required:    true,
					MaxLength:   flow.MaxPromptLength,
				},
			},
		},
		{
			Name:        commandSummarize,
			Description: "Summarize channel message history over a time window",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "range",
					Description: "Time window to summarize",
					Required:    true,
					Choices:     rangeChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to summarize (defaults to current)",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
						discordgo.ChannelTypeGuildPublicThread,
						discordgo.ChannelTypeGuildPrivateThread,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "include_bots",
					Description: "Include bot messages (default: false)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max_messages",
					Description: "Maximum messages to scan (100-5000, default: 1000)",
					MinValue:    &minMessages,
					MaxValue:    summarize.MaxMaxMessages,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "visibility",
					Description: "Where to show the result",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Ephemeral (default)", Value: visibilityEphemeral},
						{Name: "Public", Value: visibilityPublic},
					},
				},
			},
		},
		{
			Name:        commandConversation,
			Description: "Manage your conversation with the AI",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Clear your conversation history and start fresh",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "info",
					Description: "Show information about your current conversation",
				},
			},
		},
		{
			Name:        commandModel,
			Description: "Manage the AI model for this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List available models",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "current",
					Description: "Show the current model for this server",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Set the active model for this server (admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "model",
							Description: "Model to use",
							Required:    true,
							Choices:     modelChoices,
						},
					},
				},
			},
		},
		{
			Name:        commandHelp,
			Description: "Show available commands and usage",
		},
		{
			Name:        commandPing,
			Description: "Check bot responsiveness and latency",
		},
	}
}
