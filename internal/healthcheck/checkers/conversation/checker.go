package conversationchecker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/recap/internal/conversation"
	"github.com/memohai/recap/internal/healthcheck"
)

const checkTypeConversationStore = "conversation.store"

// StatsReader reads conversation store totals.
type StatsReader interface {
	Stats() conversation.Stats
}

// KeyCounter reports how many rate limit keys are tracked.
type KeyCounter interface {
	Len() int
}

// Checker reports in-memory state sizes.
type Checker struct {
	logger  *slog.Logger
	store   StatsReader
	limiter KeyCounter
}

// NewChecker creates a conversation state checker. limiter may be nil.
func NewChecker(log *slog.Logger, store StatsReader, limiter KeyCounter) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_conversation")),
		store:   store,
		limiter: limiter,
	}
}

// ListChecks reports the conversation store totals.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return []healthcheck.CheckResult{}
	}
	if c.store == nil {
		c.logger.Warn("conversation healthcheck dependency is unavailable")
		return []healthcheck.CheckResult{
			{
				ID:      checkTypeConversationStore + ".service",
				Type:    checkTypeConversationStore,
				Status:  healthcheck.StatusWarn,
				Summary: "Conversation store is not available.",
			},
		}
	}

	stats := c.store.Stats()
	item := healthcheck.CheckResult{
		ID:      checkTypeConversationStore,
		Type:    checkTypeConversationStore,
		Status:  healthcheck.StatusOK,
		Summary: fmt.Sprintf("%d active conversations, %d total messages.", stats.TotalConversations, stats.TotalMessages),
		Metadata: map[string]any{
			"total_conversations": stats.TotalConversations,
			"total_messages":      stats.TotalMessages,
		},
	}
	if c.limiter != nil {
		item.Metadata["rate_limited_keys"] = c.limiter.Len()
	}
	return []healthcheck.CheckResult{item}
}
