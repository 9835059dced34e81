package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/recap/internal/chat"
	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/models"
	"github.com/memohai/recap/internal/ratelimit"
	"github.com/memohai/recap/internal/summarize"
)

const defaultChannelName = "#current"

// quotaExhausted replies with the wait notice when userID has no requests
// left. It does not spend quota.
func (b *Bot) quotaExhausted(log *slog.Logger, r *responder, userID string) (bool, error) {
	if b.deps.Quota == nil || b.deps.Quota.Remaining(userID) > 0 {
		return false, nil
	}
	wait := b.deps.Quota.TimeUntilReset(userID)
	log.Warn("rate limit exceeded", slog.Duration("time_until_reset", wait))
	return true, r.content(rateLimitText(wait), true)
}

func (b *Bot) handleAsk(ctx context.Context, log *slog.Logger, r *responder) error {
	i := r.i
	user := interactionUser(i)
	if limited, err := b.quotaExhausted(log, r, user.ID); limited || err != nil {
		return err
	}

	prompt, _ := optionMap(i.ApplicationCommandData().Options).str("prompt")
	log.Info("processing ask command", slog.Int("prompt_length", len(prompt)))

	if err := r.deferReply(false); err != nil {
		return err
	}
	resp, err := b.deps.Asker.Ask(ctx, flow.AskRequest{
		UserID:    user.ID,
		GuildID:   i.GuildID,
		Prompt:    prompt,
		RequestID: i.ID,
	})
	if err != nil {
		log.Error("ask command failed", slog.Any("error", err))
		return r.embeds(true, errorEmbed(askErrorText(err), b.now()))
	}
	log.Info("ask command completed",
		slog.Int("response_length", len(resp.Content)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Int("message_count", resp.MessageCount),
	)
	return r.embeds(false, askEmbed(resp, user, b.now()))
}

func askErrorText(err error) string {
	var quotaErr *ratelimit.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		return rateLimitText(quotaErr.RetryAfter)
	case errors.Is(err, flow.ErrEmptyPrompt), errors.Is(err, flow.ErrPromptTooLong):
		return err.Error()
	}
	return chat.UserMessage(err)
}

func (b *Bot) handleSummarize(ctx context.Context, log *slog.Logger, r *responder) error {
	i := r.i
	user := interactionUser(i)
	if limited, err := b.quotaExhausted(log, r, user.ID); limited || err != nil {
		return err
	}

	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	rangeToken, _ := opts.str("range")
	includeBots, _ := opts.boolean("include_bots")
	// Zero lets the service apply its configured default.
	maxMessages, _ := opts.integer("max_messages")
	visibility, _ := opts.str("visibility")
	ephemeral := visibility != visibilityPublic
	if !ephemeral && !canManageGuild(i) {
		ephemeral = true
	}

	if err := r.deferReply(ephemeral); err != nil {
		return err
	}

	target, err := b.targetChannel(i, data, opts)
	if err != nil {
		log.Warn("resolve summarize channel failed", slog.Any("error", err))
	}
	if !isTextBased(target) {
		return r.content("Please choose a text-based channel or run this in a text channel.", ephemeral)
	}
	channelName := target.Name
	if channelName == "" {
		channelName = defaultChannelName
	}

	res, err := b.deps.Summarizer.Summarize(ctx, summarize.Request{
		UserID:      user.ID,
		GuildID:     i.GuildID,
		ChannelName: channelName,
		Range:       rangeToken,
		IncludeBots: includeBots,
		MaxMessages: maxMessages,
		Source:      NewHistorySource(b.session, target.ID),
	})
	if err != nil {
		var quotaErr *ratelimit.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return r.content(rateLimitText(quotaErr.RetryAfter), ephemeral)
		}
		log.Error("summarize command failed", slog.String("range", rangeToken), slog.Any("error", err))
		return r.content("❌ Failed to summarize this channel. Please try again.", ephemeral)
	}
	if res.Empty {
		return r.content(fmt.Sprintf("No messages found in the %s. Try a wider range or different channel.", res.Window.Label), ephemeral)
	}

	log.Info("summarize command completed",
		slog.String("range", rangeToken),
		slog.String("channel_id", target.ID),
		slog.Int("collected", res.MessagesScanned),
		slog.Int("chunks", res.Chunks),
	)
	return r.embeds(ephemeral, summaryEmbed(res, summaryOptions{
		ChannelName: channelName,
		IncludeBots: includeBots,
		MaxMessages: res.MaxMessages,
		Ephemeral:   ephemeral,
	}, b.now()))
}

// targetChannel resolves the channel option, falling back to the channel
// the command ran in.
func (b *Bot) targetChannel(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData, opts commandOptions) (*discordgo.Channel, error) {
	channelID, ok := opts.str("channel")
	if ok && channelID != "" {
		if data.Resolved != nil {
			if c, ok := data.Resolved.Channels[channelID]; ok && c != nil {
				return c, nil
			}
		}
	} else {
		channelID = i.ChannelID
	}
	if channelID == "" {
		return nil, errors.New("interaction has no channel")
	}
	return b.session.Channel(channelID)
}

func (b *Bot) handleConversation(_ context.Context, log *slog.Logger, r *responder) error {
	i := r.i
	user := interactionUser(i)
	sub, _ := subcommand(i.ApplicationCommandData().Options)

	switch sub {
	case "clear":
		existed := b.deps.Asker.Clear(user.ID)
		embed := &discordgo.MessageEmbed{
			Title:     "🗑️ Conversation Cleared",
			Color:     colorSuccess,
			Timestamp: timestamp(b.now()),
		}
		if existed {
			embed.Description = "Your conversation history has been cleared. Start a new conversation with `/ask`!"
		} else {
			embed.Color = colorNotice
			embed.Description = "You didn't have an active conversation to clear."
		}
		log.Info("conversation cleared", slog.Bool("existed", existed))
		return r.embeds(false, embed)
	case "info":
		conv := b.deps.Asker.Conversation(user.ID)
		fields := []*discordgo.MessageEmbedField{
			{Name: "📝 Your Messages", Value: fmt.Sprintf("%d messages in this thread", conv.MessageCount), Inline: true},
			{Name: "⏰ Last Activity", Value: fmt.Sprintf("<t:%d:R>", conv.LastActivity.Unix()), Inline: true},
		}
		if b.deps.Stats != nil {
			stats := b.deps.Stats.Stats()
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:  "🌐 Global Stats",
				Value: fmt.Sprintf("%d active conversations\n%d total messages", stats.TotalConversations, stats.TotalMessages),
			})
		}
		log.Info("conversation info requested", slog.Int("message_count", conv.MessageCount))
		return r.embeds(false, &discordgo.MessageEmbed{
			Title:     "💬 Conversation Info",
			Color:     colorInfo,
			Fields:    fields,
			Footer:    &discordgo.MessageEmbedFooter{Text: "Conversation ID: " + user.ID, IconURL: user.AvatarURL("")},
			Timestamp: timestamp(b.now()),
		})
	}
	return r.content("Unknown subcommand", true)
}

func (b *Bot) handleModel(_ context.Context, log *slog.Logger, r *responder) error {
	i := r.i
	sub, opts := subcommand(i.ApplicationCommandData().Options)
	store := b.deps.Models

	switch sub {
	case "list":
		return r.content(fmt.Sprintf("Available models: %s\nDefault model: %s", strings.Join(store.Supported(), ", "), store.Default()), true)
	case "current":
		return r.content("Current model for this server: "+store.ModelFor(i.GuildID), true)
	case "set":
		if !canManageGuild(i) {
			return r.content("You need the Manage Server permission to change the model.", true)
		}
		if i.GuildID == "" {
			return r.content("Model configuration can only be changed in a server.", true)
		}
		selected, _ := opts.str("model")
		if err := store.SetModel(i.GuildID, selected); err != nil {
			if errors.Is(err, models.ErrUnsupportedModel) {
				return r.content(fmt.Sprintf("Unsupported model %q. Available models: %s", selected, strings.Join(store.Supported(), ", ")), true)
			}
			log.Error("model set failed", slog.String("model", selected), slog.Any("error", err))
			return r.content("❌ Failed to process model command.", true)
		}
		log.Info("model set via command", slog.String("selected", selected))
		return r.content(fmt.Sprintf("Model updated to %s for this server.", selected), true)
	}
	return r.content("Unknown subcommand", true)
}

func (b *Bot) handleHelp(_ context.Context, log *slog.Logger, r *responder) error {
	info := helpInfo{
		ConversationMaxMessages: b.cfg.ConversationMaxMessages,
		ConversationMaxAge:      b.cfg.ConversationMaxAge,
		MaxTokens:               b.cfg.MaxTokens,
	}
	if b.deps.Quota != nil {
		info.MaxRequests = b.deps.Quota.MaxRequests()
	}
	if b.deps.Models != nil {
		info.DefaultModel = b.deps.Models.Default()
	}
	log.Info("processing help command")
	return r.embeds(false, helpEmbed(info, interactionUser(r.i), b.now()))
}

func (b *Bot) handlePing(_ context.Context, log *slog.Logger, r *responder) error {
	now := b.now()
	var botLatency time.Duration
	if created, err := discordgo.SnowflakeTimestamp(r.i.ID); err == nil && now.After(created) {
		botLatency = now.Sub(created)
	}
	wsLatency := b.session.HeartbeatLatency()
	log.Info("processing ping command",
		slog.Duration("bot_latency", botLatency),
		slog.Duration("ws_latency", wsLatency),
	)
	return r.embeds(false, pingEmbed(botLatency, wsLatency, interactionUser(r.i), now))
}
