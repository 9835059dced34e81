package discord

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/recap/internal/chat"
	"github.com/memohai/recap/internal/conversation"
	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/ratelimit"
	"github.com/memohai/recap/internal/summarize"
)

func TestHandleAsk(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	asker := &fakeAsker{resp: flow.AskResponse{
		Content:      "Paris.",
		MessageCount: 2,
		Remaining:    9,
		Usage:        chat.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
	b := newTestBot(session, Deps{Asker: asker, Quota: fakeQuota{remaining: 10}})

	b.dispatch(context.Background(), commandInteraction(commandAsk,
		option("prompt", discordgo.ApplicationCommandOptionString, "capital of France?")))

	require.Len(t, asker.requests, 1)
	assert.Equal(t, "u1", asker.requests[0].UserID)
	assert.Equal(t, "g1", asker.requests[0].GuildID)
	assert.Equal(t, "capital of France?", asker.requests[0].Prompt)

	require.Len(t, session.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, session.responses[0].Type)
	assert.Nil(t, session.responses[0].Data)

	require.Len(t, session.edits, 1)
	require.Len(t, session.edits[0].Embeds, 1)
	embed := session.edits[0].Embeds[0]
	assert.Equal(t, "🤖 AI Response", embed.Title)
	assert.Equal(t, "Paris.", embed.Description)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "2 messages in this thread", embed.Fields[0].Value)
	assert.Equal(t, "Tokens: 15 (10 + 5)", embed.Fields[1].Value)
	assert.Equal(t, "9 requests remaining", embed.Fields[2].Value)
	assert.Equal(t, "Requested by alice", embed.Footer.Text)
}

func TestHandleAsk_RateLimitedBeforeDefer(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	asker := &fakeAsker{}
	b := newTestBot(session, Deps{Asker: asker, Quota: fakeQuota{remaining: 0, wait: 12300 * time.Millisecond}})

	b.dispatch(context.Background(), commandInteraction(commandAsk,
		option("prompt", discordgo.ApplicationCommandOptionString, "hi")))

	assert.Empty(t, asker.requests)
	require.Len(t, session.responses, 1)
	resp := session.responses[0]
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, "⏰ Please wait 13 seconds before your next request.", resp.Data.Content)
}

func TestHandleAsk_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "provider rate limit", err: chat.ErrRateLimited, want: "Rate limit exceeded. Please try again later."},
		{name: "quota race", err: &ratelimit.QuotaExceededError{Key: "u1", RetryAfter: 2 * time.Second}, want: "⏰ Please wait 2 seconds before your next request."},
		{name: "prompt too long", err: flow.ErrPromptTooLong, want: flow.ErrPromptTooLong.Error()},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			session := newFakeSession()
			b := newTestBot(session, Deps{Asker: &fakeAsker{err: tt.err}, Quota: fakeQuota{remaining: 10}})
			b.dispatch(context.Background(), commandInteraction(commandAsk,
				option("prompt", discordgo.ApplicationCommandOptionString, "hi")))

			require.Len(t, session.edits, 1)
			require.Len(t, session.edits[0].Embeds, 1)
			assert.Equal(t, "❌ Error", session.edits[0].Embeds[0].Title)
			assert.Equal(t, tt.want, session.edits[0].Embeds[0].Description)
		})
	}
}

func summarizeResult() summarize.Result {
	return summarize.Result{
		Summary:         "Overview of the day.",
		Window:          summarize.Window{Label: "last 24 hours"},
		MessagesScanned: 42,
		Participants:    5,
		Chunks:          1,
		MaxMessages:     1000,
	}
}

func TestHandleSummarize(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.channels["c1"] = &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText}
	summarizer := &fakeSummarizer{res: summarizeResult()}
	b := newTestBot(session, Deps{Summarizer: summarizer, Quota: fakeQuota{remaining: 10}})

	b.dispatch(context.Background(), commandInteraction(commandSummarize,
		option("range", discordgo.ApplicationCommandOptionString, "24h"),
		option("visibility", discordgo.ApplicationCommandOptionString, visibilityPublic),
	))

	require.Len(t, session.responses, 1)
	require.NotNil(t, session.responses[0].Data)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, session.responses[0].Data.Flags, "public needs Manage Server")

	require.Len(t, summarizer.requests, 1)
	req := summarizer.requests[0]
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "general", req.ChannelName)
	assert.Equal(t, "24h", req.Range)
	assert.Zero(t, req.MaxMessages)
	assert.False(t, req.IncludeBots)
	assert.NotNil(t, req.Source)

	require.Len(t, session.edits, 1)
	require.Len(t, session.edits[0].Embeds, 1)
	embed := session.edits[0].Embeds[0]
	assert.Equal(t, "Channel Summary (last 24 hours)", embed.Title)
	assert.Equal(t, "Overview of the day.", embed.Description)
	assert.Equal(t, "Messages scanned: 42\nParticipants: 5\nChunks: 1", embed.Fields[0].Value)
	assert.Equal(t, "Include bots: no\nMax messages: 1000\nVisibility: ephemeral", embed.Fields[1].Value)
	assert.Equal(t, "Channel: general", embed.Footer.Text)
}

func TestHandleSummarize_PublicWithPermission(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.channels["c1"] = &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText}
	res := summarizeResult()
	res.Truncated = 3
	b := newTestBot(session, Deps{Summarizer: &fakeSummarizer{res: res}, Quota: fakeQuota{remaining: 10}})

	i := commandInteraction(commandSummarize,
		option("range", discordgo.ApplicationCommandOptionString, "24h"),
		option("include_bots", discordgo.ApplicationCommandOptionBoolean, true),
		option("visibility", discordgo.ApplicationCommandOptionString, visibilityPublic),
	)
	i.Member.Permissions = discordgo.PermissionManageServer
	b.dispatch(context.Background(), i)

	require.Len(t, session.responses, 1)
	assert.Nil(t, session.responses[0].Data)
	embed := session.edits[0].Embeds[0]
	assert.Contains(t, embed.Fields[0].Value, "Truncated: 3")
	assert.Equal(t, "Include bots: yes\nMax messages: 1000\nVisibility: public", embed.Fields[1].Value)
}

func TestHandleSummarize_ResolvedChannelOption(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	summarizer := &fakeSummarizer{res: summarizeResult()}
	b := newTestBot(session, Deps{Summarizer: summarizer})

	i := commandInteraction(commandSummarize,
		option("range", discordgo.ApplicationCommandOptionString, "24h"),
		option("channel", discordgo.ApplicationCommandOptionChannel, "t9"),
		option("max_messages", discordgo.ApplicationCommandOptionInteger, float64(250)),
	)
	data := i.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{
		Channels: map[string]*discordgo.Channel{"t9": {ID: "t9", Name: "release-thread", Type: discordgo.ChannelTypeGuildPublicThread}},
	}
	i.Data = data
	b.dispatch(context.Background(), i)

	require.Len(t, summarizer.requests, 1)
	assert.Equal(t, "release-thread", summarizer.requests[0].ChannelName)
	assert.Equal(t, 250, summarizer.requests[0].MaxMessages)
}

func TestHandleSummarize_Replies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		channel *discordgo.Channel
		res     summarize.Result
		err     error
		want    string
	}{
		{
			name:    "empty window",
			channel: &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			res:     summarize.Result{Empty: true, Window: summarize.Window{Label: "last 1 hour"}},
			want:    "No messages found in the last 1 hour. Try a wider range or different channel.",
		},
		{
			name:    "not text based",
			channel: &discordgo.Channel{ID: "c1", Name: "Lounge", Type: discordgo.ChannelTypeGuildCategory},
			want:    "Please choose a text-based channel or run this in a text channel.",
		},
		{
			name:    "quota race",
			channel: &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			err:     &ratelimit.QuotaExceededError{Key: "u1", RetryAfter: 1500 * time.Millisecond},
			want:    "⏰ Please wait 2 seconds before your next request.",
		},
		{
			name:    "pipeline failure",
			channel: &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			err:     chat.ErrUnavailable,
			want:    "❌ Failed to summarize this channel. Please try again.",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			session := newFakeSession()
			session.channels["c1"] = tt.channel
			b := newTestBot(session, Deps{Summarizer: &fakeSummarizer{res: tt.res, err: tt.err}})
			b.dispatch(context.Background(), commandInteraction(commandSummarize,
				option("range", discordgo.ApplicationCommandOptionString, "1h")))

			require.Len(t, session.edits, 1)
			assert.Equal(t, tt.want, session.edits[0].Content)
			assert.Empty(t, session.edits[0].Embeds)
		})
	}
}

func TestHandleConversation(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	last := testNow.Add(-5 * time.Minute)
	asker := &fakeAsker{
		cleared: map[string]bool{"u1": true},
		conv:    conversation.Conversation{OwnerID: "u1", MessageCount: 6, LastActivity: last},
	}
	stats := conversation.NewStore(nil, conversation.StoreConfig{})
	require.NoError(t, stats.Append("u1", conversation.RoleUser, "hi"))
	b := newTestBot(session, Deps{Asker: asker, Stats: stats})

	b.dispatch(context.Background(), commandInteraction(commandConversation, sub("clear")))
	b.dispatch(context.Background(), commandInteraction(commandConversation, sub("info")))

	require.Len(t, session.responses, 2)
	cleared := session.responses[0].Data.Embeds[0]
	assert.Equal(t, "🗑️ Conversation Cleared", cleared.Title)
	assert.Equal(t, colorSuccess, cleared.Color)

	info := session.responses[1].Data.Embeds[0]
	assert.Equal(t, "💬 Conversation Info", info.Title)
	require.Len(t, info.Fields, 3)
	assert.Equal(t, "6 messages in this thread", info.Fields[0].Value)
	assert.Equal(t, "<t:"+strconv.FormatInt(last.Unix(), 10)+":R>", info.Fields[1].Value)
	assert.Equal(t, "1 active conversations\n1 total messages", info.Fields[2].Value)
	assert.Equal(t, "Conversation ID: u1", info.Footer.Text)
}

func TestHandleConversation_NothingToClear(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	b := newTestBot(session, Deps{Asker: &fakeAsker{}})
	b.dispatch(context.Background(), commandInteraction(commandConversation, sub("clear")))

	embed := session.responses[0].Data.Embeds[0]
	assert.Equal(t, colorNotice, embed.Color)
	assert.Equal(t, "You didn't have an active conversation to clear.", embed.Description)
}

func TestHandleModel(t *testing.T) {
	t.Parallel()

	admin := func(i *discordgo.Interaction) { i.Member.Permissions = discordgo.PermissionManageServer }
	dm := func(i *discordgo.Interaction) {
		i.GuildID = ""
		i.User = i.Member.User
		i.Member = nil
	}
	modelOpt := func(v string) *discordgo.ApplicationCommandInteractionDataOption {
		return option("model", discordgo.ApplicationCommandOptionString, v)
	}

	tests := []struct {
		name   string
		sub    *discordgo.ApplicationCommandInteractionDataOption
		mutate func(*discordgo.Interaction)
		want   string
		stored string
	}{
		{name: "list", sub: sub("list"), want: "Available models: gpt-5, gpt-5-mini, gpt-5-nano\nDefault model: gpt-5"},
		{name: "current", sub: sub("current"), want: "Current model for this server: gpt-5"},
		{name: "set without permission", sub: sub("set", modelOpt("gpt-5-mini")), want: "You need the Manage Server permission to change the model."},
		{name: "set in dm", sub: sub("set", modelOpt("gpt-5-mini")), mutate: dm, want: "You need the Manage Server permission to change the model."},
		{name: "set", sub: sub("set", modelOpt("gpt-5-mini")), mutate: admin, want: "Model updated to gpt-5-mini for this server.", stored: "gpt-5-mini"},
		{name: "set unsupported", sub: sub("set", modelOpt("gpt-4")), mutate: admin, want: "Unsupported model \"gpt-4\". Available models: gpt-5, gpt-5-mini, gpt-5-nano"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			session := newFakeSession()
			store := &fakeModels{def: "gpt-5"}
			b := newTestBot(session, Deps{Models: store})
			i := commandInteraction(commandModel, tt.sub)
			if tt.mutate != nil {
				tt.mutate(i)
			}
			b.dispatch(context.Background(), i)

			require.Len(t, session.responses, 1)
			assert.Equal(t, tt.want, session.responses[0].Data.Content)
			assert.Equal(t, discordgo.MessageFlagsEphemeral, session.responses[0].Data.Flags)
			if tt.stored != "" {
				assert.Equal(t, tt.stored, store.ModelFor("g1"))
			}
		})
	}
}

func TestHandleHelp(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	b := newTestBot(session, Deps{Models: &fakeModels{def: "gpt-5-mini"}, Quota: fakeQuota{}})
	b.dispatch(context.Background(), commandInteraction(commandHelp))

	embed := session.responses[0].Data.Embeds[0]
	assert.Equal(t, "🤖 Discord AI Bot Help", embed.Title)
	var rateField, techField string
	for _, f := range embed.Fields {
		switch f.Name {
		case "📋 Rate Limits":
			rateField = f.Value
		case "🔧 Technical Info":
			techField = f.Value
		}
	}
	assert.Contains(t, rateField, "10 requests per user per minute")
	assert.Contains(t, rateField, "Maximum 2000 characters per question")
	assert.Contains(t, techField, "Default model: gpt-5-mini")
	assert.Contains(t, techField, "up to 2000 tokens")
}

func TestHandlePing(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.latency = 120 * time.Millisecond
	b := newTestBot(session, Deps{})
	b.dispatch(context.Background(), commandInteraction(commandPing))

	embed := session.responses[0].Data.Embeds[0]
	assert.Equal(t, "🏓 Pong!", embed.Title)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "50ms", embed.Fields[0].Value)
	assert.Equal(t, "120ms", embed.Fields[1].Value)
	assert.Equal(t, "🟢 Excellent", embed.Fields[2].Value)
}

func TestPingStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "🟢 Excellent", pingStatus(99*time.Millisecond))
	assert.Equal(t, "🟡 Good", pingStatus(100*time.Millisecond))
	assert.Equal(t, "🔴 Poor", pingStatus(300*time.Millisecond))
}
