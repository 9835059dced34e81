package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/recap/internal/channel"
	"github.com/memohai/recap/internal/conversation"
	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/summarize"
)

// Type is the channel type reported by the Discord adapter.
const Type channel.ChannelType = "discord"

// Interaction tokens stay valid for 15 minutes.
const interactionTimeout = 14 * time.Minute

// Session is the subset of *discordgo.Session the bot uses.
type Session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	HeartbeatLatency() time.Duration
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

var _ Session = (*discordgo.Session)(nil)

// NewSession creates a gateway session for a bot token. Slash commands only
// need the guilds intent.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return session, nil
}

// Asker answers prompts with per-user conversation memory.
type Asker interface {
	Ask(ctx context.Context, req flow.AskRequest) (flow.AskResponse, error)
	Clear(userID string) bool
	Conversation(userID string) conversation.Conversation
}

// Summarizer produces channel summaries.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (summarize.Result, error)
}

// ModelStore reads and updates the per-guild model selection.
type ModelStore interface {
	Supported() []string
	Default() string
	ModelFor(guildID string) string
	SetModel(guildID, model string) error
}

// QuotaReader peeks at a user's rate limit without spending quota.
type QuotaReader interface {
	MaxRequests() int
	Remaining(key string) int
	TimeUntilReset(key string) time.Duration
}

// StatsReader reports conversation store totals.
type StatsReader interface {
	Stats() conversation.Stats
}

// Config identifies the application the commands are registered for.
type Config struct {
	AppID string
	// GuildID registers commands on one guild; empty registers globally.
	GuildID string
	// Conversation limits shown by /help.
	ConversationMaxMessages int
	ConversationMaxAge      time.Duration
	MaxTokens               int
}

// Deps are the services behind the slash commands.
type Deps struct {
	Asker      Asker
	Summarizer Summarizer
	Models     ModelStore
	Quota      QuotaReader
	Stats      StatsReader
}

type commandHandler func(ctx context.Context, log *slog.Logger, r *responder) error

// Bot owns the gateway session and dispatches slash commands.
type Bot struct {
	logger   *slog.Logger
	session  Session
	cfg      Config
	deps     Deps
	status   *channel.StatusTracker
	handlers map[string]commandHandler
	now      func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	removers []func()
	inflight sync.WaitGroup
}

// NewBot creates a stopped Bot.
func NewBot(log *slog.Logger, session Session, cfg Config, deps Deps) *Bot {
	if log == nil {
		log = slog.Default()
	}
	b := &Bot{
		logger:  log.With(slog.String("adapter", "discord")),
		session: session,
		cfg:     cfg,
		deps:    deps,
		status:  channel.NewStatusTracker(Type),
		now:     time.Now,
	}
	b.handlers = map[string]commandHandler{
		commandAsk:          b.handleAsk,
		commandSummarize:    b.handleSummarize,
		commandConversation: b.handleConversation,
		commandModel:        b.handleModel,
		commandHelp:         b.handleHelp,
		commandPing:         b.handlePing,
	}
	return b
}

// Start registers event handlers and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	if b.session == nil {
		return errors.New("discord session is nil")
	}
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return nil
	}
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.removers = append(b.removers,
		b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { b.onReady(r) }),
		b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) { b.onInteraction(i) }),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			b.status.MarkStopped(errors.New("gateway disconnected"))
			b.logger.Warn("gateway disconnected")
		}),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
			b.status.MarkRunning()
			b.logger.Info("gateway resumed")
		}),
	)
	b.mu.Unlock()

	b.logger.Info("start")
	if err := b.session.Open(); err != nil {
		b.status.MarkStopped(err)
		return fmt.Errorf("discord open connection: %w", err)
	}
	b.status.MarkRunning()
	return nil
}

// Stop closes the session and waits for in-flight commands or ctx.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel == nil {
		b.mu.Unlock()
		return nil
	}
	b.cancel()
	removers := b.removers
	b.cancel = nil
	b.removers = nil
	b.mu.Unlock()

	b.logger.Info("stop")
	for _, remove := range removers {
		if remove != nil {
			remove()
		}
	}

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("stop timed out waiting for commands", slog.Any("error", ctx.Err()))
	}

	err := b.session.Close()
	b.status.MarkStopped(nil)
	if err != nil {
		return fmt.Errorf("discord close connection: %w", err)
	}
	return nil
}

// ConnectionStatus reports the gateway state and heartbeat latency.
func (b *Bot) ConnectionStatus() channel.ConnectionStatus {
	st := b.status.Status()
	if st.Running && b.session != nil {
		st.Latency = b.session.HeartbeatLatency()
	}
	return st
}

// RegisterCommands overwrites the application's slash commands.
func (b *Bot) RegisterCommands() error {
	var supported []string
	if b.deps.Models != nil {
		supported = b.deps.Models.Supported()
	}
	cmds := Commands(supported)
	registered, err := b.session.ApplicationCommandBulkOverwrite(b.cfg.AppID, b.cfg.GuildID, cmds)
	if err != nil {
		return fmt.Errorf("discord register commands: %w", err)
	}
	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name)
	}
	scope := "global"
	if b.cfg.GuildID != "" {
		scope = "guild"
	}
	b.logger.Info("slash commands registered",
		slog.Int("command_count", len(registered)),
		slog.Any("commands", names),
		slog.String("scope", scope),
		slog.String("app_id", b.cfg.AppID),
	)
	return nil
}

func (b *Bot) onReady(r *discordgo.Ready) {
	attrs := []any{slog.Int("guilds", len(r.Guilds))}
	if r.User != nil {
		attrs = append(attrs, slog.String("user", r.User.Username))
	}
	b.logger.Info("bot is ready", attrs...)
	b.status.MarkRunning()
	if err := b.RegisterCommands(); err != nil {
		b.logger.Error("register slash commands failed", slog.Any("error", err))
	}
}

func (b *Bot) onInteraction(ic *discordgo.InteractionCreate) {
	if ic == nil || ic.Interaction == nil || ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	// Add under mu so it cannot race Stop's Wait.
	b.mu.Lock()
	base := b.ctx
	if base == nil || base.Err() != nil {
		b.mu.Unlock()
		return
	}
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	ctx, cancel := context.WithTimeout(base, interactionTimeout)
	defer cancel()
	b.dispatch(ctx, ic.Interaction)
}

func (b *Bot) dispatch(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	user := interactionUser(i)
	log := requestLogger(b.logger, i)

	handler, ok := b.handlers[data.Name]
	if !ok {
		log.Warn("unknown command received", slog.String("command", data.Name))
		return
	}
	r := newResponder(b.session, i)
	if err := handler(ctx, log, r); err != nil {
		log.Error("error executing command",
			slog.String("command", data.Name),
			slog.String("username", user.Username),
			slog.Any("error", err),
		)
		if ferr := r.content("❌ An error occurred while executing this command.", true); ferr != nil {
			log.Warn("error reply failed", slog.Any("error", ferr))
		}
	}
}
