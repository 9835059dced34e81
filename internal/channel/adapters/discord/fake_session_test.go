package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/recap/internal/conversation"
	"github.com/memohai/recap/internal/conversation/flow"
	"github.com/memohai/recap/internal/models"
	"github.com/memohai/recap/internal/summarize"
)

type editCall struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
}

type fakeSession struct {
	mu sync.Mutex

	openErr    error
	opened     bool
	closed     bool
	handlers   int
	removed    int
	latency    time.Duration
	registered []*discordgo.ApplicationCommand
	registerTo [2]string

	responses []*discordgo.InteractionResponse
	edits     []editCall

	channels map[string]*discordgo.Channel
	// history is newest first.
	history   map[string][]*discordgo.Message
	pageCalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		channels: map[string]*discordgo.Channel{},
		history:  map[string][]*discordgo.Message{},
	}
}

func (f *fakeSession) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) AddHandler(interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.removed++
	}
}

func (f *fakeSession) HeartbeatLatency() time.Duration {
	return f.latency
}

func (f *fakeSession) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = commands
	f.registerTo = [2]string{appID, guildID}
	return commands, nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := editCall{}
	if edit.Content != nil {
		call.Content = *edit.Content
	}
	if edit.Embeds != nil {
		call.Embeds = *edit.Embeds
	}
	f.edits = append(f.edits, call)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelMessages(channelID string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	all, ok := f.history[channelID]
	if !ok {
		return nil, errors.New("unknown channel")
	}
	start := 0
	if beforeID != "" {
		start = len(all)
		for idx, m := range all {
			if m.ID == beforeID {
				start = idx + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[channelID]
	if !ok {
		return nil, errors.New("unknown channel")
	}
	return c, nil
}

type fakeAsker struct {
	requests []flow.AskRequest
	resp     flow.AskResponse
	err      error
	cleared  map[string]bool
	conv     conversation.Conversation
}

func (a *fakeAsker) Ask(_ context.Context, req flow.AskRequest) (flow.AskResponse, error) {
	a.requests = append(a.requests, req)
	return a.resp, a.err
}

func (a *fakeAsker) Clear(userID string) bool {
	return a.cleared[userID]
}

func (a *fakeAsker) Conversation(string) conversation.Conversation {
	return a.conv
}

type fakeSummarizer struct {
	requests []summarize.Request
	res      summarize.Result
	err      error
}

func (s *fakeSummarizer) Summarize(_ context.Context, req summarize.Request) (summarize.Result, error) {
	s.requests = append(s.requests, req)
	return s.res, s.err
}

type fakeModels struct {
	def    string
	guilds map[string]string
}

func (m *fakeModels) Supported() []string {
	return []string{"gpt-5", "gpt-5-mini", "gpt-5-nano"}
}

func (m *fakeModels) Default() string { return m.def }

func (m *fakeModels) ModelFor(guildID string) string {
	if v, ok := m.guilds[guildID]; ok {
		return v
	}
	return m.def
}

func (m *fakeModels) SetModel(guildID, model string) error {
	if !slices.Contains(m.Supported(), model) {
		return fmt.Errorf("%w: %s", models.ErrUnsupportedModel, model)
	}
	if m.guilds == nil {
		m.guilds = map[string]string{}
	}
	m.guilds[guildID] = model
	return nil
}

type fakeQuota struct {
	remaining int
	wait      time.Duration
}

func (q fakeQuota) MaxRequests() int                   { return 10 }
func (q fakeQuota) Remaining(string) int               { return q.remaining }
func (q fakeQuota) TimeUntilReset(string) time.Duration { return q.wait }
