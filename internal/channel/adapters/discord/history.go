package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/recap/internal/summarize"
)

// messageTypeNames maps gateway message types to their display names.
var messageTypeNames = map[discordgo.MessageType]string{
	0:  summarize.TypeDefault,
	1:  "RecipientAdd",
	2:  "RecipientRemove",
	3:  "Call",
	4:  "ChannelNameChange",
	5:  "ChannelIconChange",
	6:  "ChannelPinnedMessage",
	7:  "UserJoin",
	8:  "GuildBoost",
	9:  "GuildBoostTier1",
	10: "GuildBoostTier2",
	11: "GuildBoostTier3",
	12: "ChannelFollowAdd",
	14: "GuildDiscoveryDisqualified",
	15: "GuildDiscoveryRequalified",
	18: "ThreadCreated",
	19: summarize.TypeReply,
	20: "ChatInputCommand",
	21: "ThreadStarterMessage",
	22: "GuildInviteReminder",
	23: "ContextMenuCommand",
	24: "AutoModerationAction",
}

func messageTypeName(t discordgo.MessageType) string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type%d", int(t))
}

// historySource pages through a channel with the before cursor.
type historySource struct {
	session   Session
	channelID string
}

// NewHistorySource returns a summarize.PageSource over channelID.
func NewHistorySource(session Session, channelID string) summarize.PageSource {
	return &historySource{session: session, channelID: channelID}
}

func (h *historySource) FetchPage(ctx context.Context, beforeID string, limit int) ([]summarize.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > summarize.MaxPageSize {
		limit = summarize.MaxPageSize
	}
	msgs, err := h.session.ChannelMessages(h.channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord channel messages %s: %w", h.channelID, err)
	}
	out := make([]summarize.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, convertMessage(m))
	}
	return out, nil
}

func convertMessage(m *discordgo.Message) summarize.Message {
	msg := summarize.Message{
		ID:           m.ID,
		CreatedAt:    m.Timestamp,
		CleanContent: m.ContentWithMentionsReplaced(),
		Content:      m.Content,
		Type:         messageTypeName(m.Type),
	}
	if m.Author != nil {
		msg.Author = &summarize.Author{ID: m.Author.ID, Username: m.Author.Username, Bot: m.Author.Bot}
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		embed := summarize.Embed{Title: e.Title, Description: e.Description}
		for _, f := range e.Fields {
			if f != nil {
				embed.Fields = append(embed.Fields, summarize.EmbedField{Name: f.Name, Value: f.Value})
			}
		}
		msg.Embeds = append(msg.Embeds, embed)
	}
	for _, a := range m.Attachments {
		if a != nil {
			msg.Attachments = append(msg.Attachments, summarize.Attachment{Name: a.Filename})
		}
	}
	return msg
}

// textChannelTypes are the channel types that carry message history.
var textChannelTypes = map[discordgo.ChannelType]bool{
	discordgo.ChannelTypeGuildText:          true,
	discordgo.ChannelTypeDM:                 true,
	discordgo.ChannelTypeGuildVoice:         true,
	discordgo.ChannelTypeGroupDM:            true,
	discordgo.ChannelTypeGuildNews:          true,
	discordgo.ChannelTypeGuildNewsThread:    true,
	discordgo.ChannelTypeGuildPublicThread:  true,
	discordgo.ChannelTypeGuildPrivateThread: true,
}

func isTextBased(c *discordgo.Channel) bool {
	return c != nil && textChannelTypes[c.Type]
}
