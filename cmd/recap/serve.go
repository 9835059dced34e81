package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/recap/internal/channel/adapters/discord"
	"github.com/memohai/recap/internal/chat"
	"github.com/memohai/recap/internal/config"
	"github.com/memohai/recap/internal/conversation"
	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/handlers"
	"github.com/memohai/recap/internal/healthcheck"
	channelchecker "github.com/memohai/recap/internal/healthcheck/checkers/channel"
	conversationchecker "github.com/memohai/recap/internal/healthcheck/checkers/conversation"
	"github.com/memohai/recap/internal/logger"
	"github.com/memohai/recap/internal/models"
	"github.com/memohai/recap/internal/ratelimit"
	"github.com/memohai/recap/internal/schedule"
	"github.com/memohai/recap/internal/server"
	"github.com/memohai/recap/internal/summarize"
	"github.com/memohai/recap/internal/version"
)

const providerPingTimeout = 10 * time.Second

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideDurations,
			provideLogger,
			provideLimiter,
			provideConversationStore,
			provideModelStore,
			provideChatProvider,
			provideOrchestrator,
			provideSummarizeService,
			provideResolver,
			provideSweeper,
			provideDiscordSession,
			provideBot,
			provideHealth,
			provideServerHandler(providePingHandler),
			provideServer,
		),
		fx.Invoke(
			startServer,
			checkChatProvider,
			startSweeper,
			startBot,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideDurations(cfg config.Config) (config.Durations, error) {
	return cfg.ParseDurations()
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

// provideLimiter returns the one limiter shared by /ask and /summarize.
func provideLimiter(cfg config.Config, d config.Durations) *ratelimit.Limiter {
	return ratelimit.NewLimiter(cfg.RateLimit.MaxRequests, d.RateLimitWindow)
}

func provideConversationStore(log *slog.Logger, cfg config.Config, d config.Durations) *conversation.Store {
	return conversation.NewStore(log, conversation.StoreConfig{
		MaxMessages:  cfg.Conversation.MaxMessages,
		MaxAge:       d.ConversationTTL,
		SystemPrompt: cfg.Conversation.SystemPrompt,
	})
}

func provideModelStore(log *slog.Logger, cfg config.Config) *models.Store {
	return models.NewStore(log, models.Config{
		Path:      cfg.Models.Path,
		Default:   cfg.Models.Default,
		Supported: cfg.Models.Supported,
	})
}

func provideChatProvider(log *slog.Logger, cfg config.Config) (*chat.OpenAIProvider, error) {
	return chat.NewOpenAIProvider(log, chat.OpenAIConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Timeout:    cfg.OpenAI.Timeout(),
		MaxRetries: cfg.OpenAI.MaxRetries,
	})
}

func provideOrchestrator(log *slog.Logger, cfg config.Config, provider *chat.OpenAIProvider) *summarize.Orchestrator {
	return summarize.NewOrchestrator(log, provider, summarize.OrchestratorConfig{
		DefaultModel:   cfg.Models.Default,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		ReduceMaxWords: cfg.Summarize.ReduceMaxWords,
	})
}

func provideSummarizeService(log *slog.Logger, cfg config.Config, limiter *ratelimit.Limiter, orchestrator *summarize.Orchestrator, store *models.Store) *summarize.Service {
	return summarize.NewService(log, limiter, orchestrator, store, summarize.ServiceConfig{
		MaxMessageLength:   cfg.Summarize.MaxMessageLength,
		MaxCharsPerChunk:   cfg.Summarize.MaxCharsPerChunk,
		DefaultMaxMessages: cfg.Summarize.DefaultMaxMessages,
	})
}

func provideResolver(log *slog.Logger, cfg config.Config, limiter *ratelimit.Limiter, store *conversation.Store, provider *chat.OpenAIProvider, modelStore *models.Store) *flow.Resolver {
	return flow.NewResolver(log, limiter, store, provider, modelStore, cfg.OpenAI.MaxTokens)
}

func provideSweeper(log *slog.Logger, d config.Durations, limiter *ratelimit.Limiter, store *conversation.Store) *schedule.Sweeper {
	return schedule.NewSweeper(log,
		schedule.Task{Name: "rate_limit", Interval: d.RateLimitSweep, Run: limiter.Cleanup},
		schedule.Task{Name: "conversations", Interval: d.ConversationSweep, Run: store.Sweep},
	)
}

func provideDiscordSession(cfg config.Config) (*discordgo.Session, error) {
	return discord.NewSession(cfg.Discord.BotToken)
}

type botParams struct {
	fx.In

	Logger    *slog.Logger
	Config    config.Config
	Durations config.Durations
	Session   *discordgo.Session
	Resolver  *flow.Resolver
	Summarize *summarize.Service
	Models    *models.Store
	Limiter   *ratelimit.Limiter
	Store     *conversation.Store
}

func provideBot(params botParams) *discord.Bot {
	return discord.NewBot(params.Logger, params.Session, discord.Config{
		AppID:                   params.Config.Discord.AppID,
		GuildID:                 params.Config.Discord.GuildID,
		ConversationMaxMessages: params.Config.Conversation.MaxMessages,
		ConversationMaxAge:      params.Durations.ConversationTTL,
		MaxTokens:               params.Config.OpenAI.MaxTokens,
	}, discord.Deps{
		Asker:      params.Resolver,
		Summarizer: params.Summarize,
		Models:     params.Models,
		Quota:      params.Limiter,
		Stats:      params.Store,
	})
}

func provideHealth(log *slog.Logger, bot *discord.Bot, store *conversation.Store, limiter *ratelimit.Limiter) *healthcheck.Aggregator {
	return healthcheck.NewAggregator(
		channelchecker.NewChecker(log, bot),
		conversationchecker.NewChecker(log, store, limiter),
	)
}

func providePingHandler(log *slog.Logger, health *healthcheck.Aggregator) *handlers.PingHandler {
	return handlers.NewPingHandler(log, health)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting recap %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			logger.Info("health server listening", slog.String("addr", srv.Addr()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

// checkChatProvider refuses to start when the provider is unreachable.
func checkChatProvider(lc fx.Lifecycle, logger *slog.Logger, provider *chat.OpenAIProvider) {
	lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, providerPingTimeout)
		defer cancel()
		logger.Info("testing openai connection")
		if err := provider.Ping(pingCtx); err != nil {
			return fmt.Errorf("openai connection: %w", err)
		}
		logger.Info("openai connection successful")
		return nil
	}})
}

func startSweeper(lc fx.Lifecycle, sweeper *schedule.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return sweeper.Start() },
		OnStop:  func(ctx context.Context) error { return sweeper.Stop(ctx) },
	})
}

func startBot(lc fx.Lifecycle, bot *discord.Bot) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return bot.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return bot.Stop(ctx) },
	})
}
