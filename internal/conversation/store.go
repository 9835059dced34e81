package conversation

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// StoreConfig holds the store limits. Zero values fall back to defaults.
type StoreConfig struct {
	MaxMessages  int
	MaxAge       time.Duration
	SystemPrompt string
}

// Store is an in-memory, TTL-evicted map of conversations keyed by user id.
// It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	cfg    StoreConfig
	now    func() time.Time
	convs  map[string]*Conversation
	logger *slog.Logger
}

// NewStore creates an empty store.
func NewStore(log *slog.Logger, cfg StoreConfig) *Store {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		cfg:    cfg,
		now:    time.Now,
		convs:  make(map[string]*Conversation),
		logger: log.With(slog.String("service", "conversation")),
	}
}

// SetClock replaces time.Now. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
}

// Get returns a copy of the user's conversation, creating it with the seed
// system message when absent. Every call refreshes LastActivity, so reading
// a conversation also keeps it alive.
func (s *Store) Get(userID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.getOrCreateLocked(userID)
	conv.LastActivity = s.now()
	return snapshot(conv)
}

// Append adds a user or assistant message and trims the history.
func (s *Store) Append(userID, role, content string) error {
	if !validRole(role) {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := s.getOrCreateLocked(userID)
	conv.Messages = append(conv.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	conv.LastActivity = now
	conv.MessageCount++
	conv.Messages = trim(conv.Messages, s.cfg.MaxMessages)
	return nil
}

// Clear deletes the user's conversation and reports whether one existed.
func (s *Store) Clear(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[userID]; !ok {
		return false
	}
	delete(s.convs, userID)
	return true
}

// Stats counts live conversations and the turns appended to them.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{TotalConversations: len(s.convs)}
	for _, conv := range s.convs {
		stats.TotalMessages += conv.MessageCount
	}
	return stats
}

// Sweep removes conversations idle for longer than MaxAge and returns the
// number removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, conv := range s.convs {
		if now.Sub(conv.LastActivity) > s.cfg.MaxAge {
			delete(s.convs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept idle conversations", slog.Int("removed", removed), slog.Int("remaining", len(s.convs)))
	}
	return removed
}

func (s *Store) getOrCreateLocked(userID string) *Conversation {
	if conv, ok := s.convs[userID]; ok {
		return conv
	}
	now := s.now()
	conv := &Conversation{
		OwnerID: userID,
		Messages: []Message{{
			Role:      RoleSystem,
			Content:   s.cfg.SystemPrompt,
			Timestamp: now,
		}},
		LastActivity: now,
	}
	s.convs[userID] = conv
	return conv
}

// trim keeps a leading system message plus the most recent max messages.
func trim(msgs []Message, max int) []Message {
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		if len(msgs) <= max+1 {
			return msgs
		}
		out := make([]Message, 0, max+1)
		out = append(out, msgs[0])
		return append(out, msgs[len(msgs)-max:]...)
	}
	if len(msgs) <= max {
		return msgs
	}
	return append([]Message(nil), msgs[len(msgs)-max:]...)
}

func snapshot(conv *Conversation) Conversation {
	out := *conv
	out.Messages = append([]Message(nil), conv.Messages...)
	return out
}
