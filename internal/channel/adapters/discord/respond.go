package discord

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	colorInfo    = 0x0099FF
	colorSuccess = 0x00FF00
	colorNotice  = 0xFFFF00
	colorError   = 0xFF0000
)

// responder answers one interaction, switching to webhook edits once the
// reply has been deferred.
type responder struct {
	session  Session
	i        *discordgo.Interaction
	deferred bool
	replied  bool
}

func newResponder(session Session, i *discordgo.Interaction) *responder {
	return &responder{session: session, i: i}
}

// deferReply acknowledges the interaction. Ephemerality is fixed here for
// every later edit.
func (r *responder) deferReply(ephemeral bool) error {
	if r.deferred || r.replied {
		return nil
	}
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := r.session.InteractionRespond(r.i, resp); err != nil {
		return fmt.Errorf("defer reply: %w", err)
	}
	r.deferred = true
	return nil
}

func (r *responder) content(text string, ephemeral bool) error {
	return r.send(&discordgo.InteractionResponseData{Content: text}, ephemeral)
}

func (r *responder) embeds(ephemeral bool, embeds ...*discordgo.MessageEmbed) error {
	return r.send(&discordgo.InteractionResponseData{Embeds: embeds}, ephemeral)
}

func (r *responder) send(data *discordgo.InteractionResponseData, ephemeral bool) error {
	if r.deferred || r.replied {
		edit := &discordgo.WebhookEdit{}
		content := data.Content
		edit.Content = &content
		if data.Embeds != nil {
			embeds := data.Embeds
			edit.Embeds = &embeds
		}
		if _, err := r.session.InteractionResponseEdit(r.i, edit); err != nil {
			return fmt.Errorf("edit reply: %w", err)
		}
		return nil
	}
	if ephemeral {
		data.Flags |= discordgo.MessageFlagsEphemeral
	}
	err := r.session.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	r.replied = true
	return nil
}

// rateLimitText renders the wait notice for a rate-limited user.
func rateLimitText(wait time.Duration) string {
	seconds := int(math.Ceil(wait.Seconds()))
	return fmt.Sprintf("⏰ Please wait %d seconds before your next request.", seconds)
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{}
}

func guildLabel(i *discordgo.Interaction) string {
	if i.GuildID == "" {
		return "DM"
	}
	return i.GuildID
}

// canManageGuild reports whether the invoking member holds Manage Server.
func canManageGuild(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageServer != 0
}

func requestLogger(log *slog.Logger, i *discordgo.Interaction) *slog.Logger {
	return log.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("user_id", interactionUser(i).ID),
		slog.String("guild_id", guildLabel(i)),
	)
}

func requestedBy(u *discordgo.User) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{
		Text:    "Requested by " + u.Username,
		IconURL: u.AvatarURL(""),
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	out := make(commandOptions, len(opts))
	for _, o := range opts {
		if o != nil {
			out[o.Name] = o
		}
	}
	return out
}

// subcommand returns the invoked subcommand and its options.
func subcommand(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, commandOptions) {
	for _, o := range opts {
		if o != nil && o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, optionMap(o.Options)
		}
	}
	return "", commandOptions{}
}

func (o commandOptions) str(name string) (string, bool) {
	opt, ok := o[name]
	if !ok {
		return "", false
	}
	s, ok := opt.Value.(string)
	return s, ok
}

func (o commandOptions) integer(name string) (int, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func (o commandOptions) boolean(name string) (bool, bool) {
	opt, ok := o[name]
	if !ok {
		return false, false
	}
	v, ok := opt.Value.(bool)
	return v, ok
}
