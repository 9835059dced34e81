package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/memohai/recap/internal/ratelimit"
)

const (
	MinMaxMessages     = 100
	MaxMaxMessages     = 5000
	DefaultMaxMessages = 1000
)

// ErrInvalidRequest wraps option validation failures.
var ErrInvalidRequest = errors.New("invalid summarize request")

// ModelResolver picks the chat model for a guild.
type ModelResolver interface {
	ModelFor(guildID string) string
}

// Request is one summarize invocation.
type Request struct {
	UserID      string `validate:"required"`
	GuildID     string
	ChannelName string
	Range       string `validate:"required"`
	IncludeBots bool
	// MaxMessages of zero selects the configured default.
	MaxMessages int        `validate:"omitempty,gte=100,lte=5000"`
	Source      PageSource `validate:"required"`
}

// Result is the outcome of a summarize invocation.
type Result struct {
	Summary         string
	Window          Window
	MessagesScanned int
	Participants    int
	Chunks          int
	Truncated       int
	// Empty is set when the window held no messages; no summary was made.
	Empty       bool
	MaxMessages int
}

// ServiceConfig holds the pipeline limits.
type ServiceConfig struct {
	MaxMessageLength   int
	MaxCharsPerChunk   int
	DefaultMaxMessages int
}

// Service runs the whole summarize path behind the per-user rate limit.
type Service struct {
	limiter      *ratelimit.Limiter
	orchestrator *Orchestrator
	models       ModelResolver
	cfg          ServiceConfig
	validate     *validator.Validate
	now          func() time.Time
	logger       *slog.Logger
}

func NewService(log *slog.Logger, limiter *ratelimit.Limiter, orchestrator *Orchestrator, models ModelResolver, cfg ServiceConfig) *Service {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.MaxCharsPerChunk <= 0 {
		cfg.MaxCharsPerChunk = DefaultMaxCharsPerChunk
	}
	if cfg.DefaultMaxMessages < MinMaxMessages || cfg.DefaultMaxMessages > MaxMaxMessages {
		cfg.DefaultMaxMessages = DefaultMaxMessages
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		limiter:      limiter,
		orchestrator: orchestrator,
		models:       models,
		cfg:          cfg,
		validate:     validator.New(),
		now:          time.Now,
		logger:       log.With(slog.String("service", "summarize")),
	}
}

// SetClock replaces time.Now. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Limiter exposes the shared rate limiter.
func (s *Service) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Summarize validates req, spends one request of the user's quota, and
// produces a summary of the requested window. An empty window is reported
// through Result.Empty rather than an error.
func (s *Service) Summarize(ctx context.Context, req Request) (Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if s.limiter != nil {
		if err := s.limiter.Check(req.UserID); err != nil {
			return Result{}, err
		}
	}
	window, err := ResolveRange(req.Range, s.now())
	if err != nil {
		return Result{}, err
	}

	maxMessages := req.MaxMessages
	if maxMessages == 0 {
		maxMessages = s.cfg.DefaultMaxMessages
	}
	log := s.logger.With(slog.String("user_id", req.UserID), slog.String("guild_id", req.GuildID), slog.String("range", req.Range))

	fetched, err := FetchMessages(ctx, req.Source, FetchOptions{
		From:        window.From,
		To:          window.To,
		MaxMessages: maxMessages,
		IncludeBots: req.IncludeBots,
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Window:          window,
		MessagesScanned: len(fetched.Messages),
		Participants:    fetched.Participants(),
		MaxMessages:     maxMessages,
	}
	if len(fetched.Messages) == 0 {
		res.Empty = true
		log.Info("summarize window empty", slog.Int("pages", fetched.Pages))
		return res, nil
	}

	corpus := BuildCorpus(OldestFirst(fetched.Messages), CorpusOptions{MaxMessageLength: s.cfg.MaxMessageLength})
	res.Truncated = corpus.TruncatedCount
	if corpus.Lines == 0 {
		res.Empty = true
		log.Info("summarize window has no readable content", slog.Int("messages", corpus.TotalMessages))
		return res, nil
	}
	chunks := ChunkText(corpus.Corpus, ChunkOptions{MaxCharsPerChunk: s.cfg.MaxCharsPerChunk})
	res.Chunks = len(chunks)

	model := ""
	if s.models != nil {
		model = s.models.ModelFor(req.GuildID)
	}
	summary, err := s.orchestrator.Summarize(ctx, chunks, SummaryContext{
		ChannelName:   req.ChannelName,
		WindowLabel:   window.Label,
		TotalMessages: res.MessagesScanned,
		Participants:  res.Participants,
		Model:         model,
	})
	if err != nil {
		return Result{}, err
	}
	res.Summary = summary

	log.Info("summarize collected messages",
		slog.String("label", window.Label),
		slog.Int("collected", res.MessagesScanned),
		slog.Int("participants", res.Participants),
		slog.Int("chunks", res.Chunks),
		slog.Int("truncated", res.Truncated),
		slog.Int("pages", fetched.Pages),
	)
	return res, nil
}
