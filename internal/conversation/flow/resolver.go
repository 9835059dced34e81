// Package flow runs the ask command: quota check, history lookup, model
// call, and history update.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/memohai/recap/internal/chat"
	"github.com/memohai/recap/internal/conversation"
	"github.com/memohai/recap/internal/prune"
	"github.com/memohai/recap/internal/ratelimit"
)

// MaxPromptLength is the longest prompt accepted, in runes.
const MaxPromptLength = 2000

var (
	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrPromptTooLong is returned when the prompt exceeds MaxPromptLength.
	ErrPromptTooLong = fmt.Errorf("prompt exceeds %d characters", MaxPromptLength)
)

// ModelResolver picks the chat model for a guild.
type ModelResolver interface {
	ModelFor(guildID string) string
}

// AskRequest is one ask invocation.
type AskRequest struct {
	UserID    string
	GuildID   string
	Prompt    string
	RequestID string
}

// AskResponse carries the reply and the bookkeeping shown to the user.
type AskResponse struct {
	Content      string
	Model        string
	Usage        chat.Usage
	MessageCount int
	Remaining    int
	Elapsed      time.Duration
}

// Resolver wires the limiter, the conversation store, and the provider.
type Resolver struct {
	limiter   *ratelimit.Limiter
	store     *conversation.Store
	provider  chat.Provider
	models    ModelResolver
	maxTokens int
	logger    *slog.Logger
}

// NewResolver creates a Resolver. maxTokens of zero leaves the provider
// default.
func NewResolver(
	log *slog.Logger,
	limiter *ratelimit.Limiter,
	store *conversation.Store,
	provider chat.Provider,
	models ModelResolver,
	maxTokens int,
) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		limiter:   limiter,
		store:     store,
		provider:  provider,
		models:    models,
		maxTokens: maxTokens,
		logger:    log.With(slog.String("service", "conversation_resolver")),
	}
}

// Ask answers prompt in the context of the user's conversation. The
// user and assistant turns are appended only when the provider succeeds.
func (r *Resolver) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return AskResponse{}, ErrEmptyPrompt
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return AskResponse{}, ErrPromptTooLong
	}
	if err := r.limiter.Check(req.UserID); err != nil {
		return AskResponse{}, err
	}

	log := r.logger.With(
		slog.String("request_id", req.RequestID),
		slog.String("user_id", req.UserID),
		slog.String("guild_id", req.GuildID),
	)

	conv := r.store.Get(req.UserID)
	messages := make([]chat.Message, 0, len(conv.Messages)+1)
	for _, m := range conv.Messages {
		messages = append(messages, chat.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chat.Message{Role: conversation.RoleUser, Content: prompt})

	model := ""
	if r.models != nil {
		model = r.models.ModelFor(req.GuildID)
	}
	chatReq := chat.Request{Model: model, Messages: messages}
	if r.maxTokens > 0 {
		chatReq.MaxTokens = chat.IntPtr(r.maxTokens)
	}

	log.Info("generating response",
		slog.Int("prompt_length", utf8.RuneCountInString(prompt)),
		slog.Int("history", len(conv.Messages)),
		slog.String("model", model),
	)
	start := time.Now()
	res, err := r.provider.Chat(ctx, chatReq)
	if err != nil {
		log.Error("ask failed", slog.String("prompt", prune.Excerpt(prompt, 80)), slog.Any("error", err))
		return AskResponse{}, err
	}
	content := strings.TrimSpace(res.Message.Content)
	if content == "" {
		content = chat.FallbackReply
	}

	if err := r.store.Append(req.UserID, conversation.RoleUser, prompt); err != nil {
		return AskResponse{}, err
	}
	if err := r.store.Append(req.UserID, conversation.RoleAssistant, content); err != nil {
		return AskResponse{}, err
	}
	after := r.store.Get(req.UserID)

	resp := AskResponse{
		Content:      content,
		Model:        firstNonEmpty(res.Model, model),
		Usage:        res.Usage,
		MessageCount: after.MessageCount,
		Remaining:    r.limiter.Remaining(req.UserID),
		Elapsed:      time.Since(start),
	}
	log.Info("response generated",
		slog.Duration("elapsed", resp.Elapsed),
		slog.Int("response_length", len(content)),
		slog.Int("message_count", resp.MessageCount),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp, nil
}

// Clear drops the user's conversation.
func (r *Resolver) Clear(userID string) bool {
	return r.store.Clear(userID)
}

// Conversation returns the user's conversation. Like Store.Get it keeps
// the conversation alive.
func (r *Resolver) Conversation(userID string) conversation.Conversation {
	return r.store.Get(userID)
}

// Limiter exposes the shared rate limiter.
func (r *Resolver) Limiter() *ratelimit.Limiter {
	return r.limiter
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
