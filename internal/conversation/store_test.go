package conversation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore(nil, StoreConfig{})
	s.SetClock(func() time.Time { return now })
	return s, &now
}

func TestStore_GetCreatesSeededConversation(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	conv := s.Get("u1")

	require.Len(t, conv.Messages, 1)
	assert.Equal(t, RoleSystem, conv.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, conv.Messages[0].Content)
	assert.Equal(t, "u1", conv.OwnerID)
	assert.Zero(t, conv.MessageCount)
}

func TestStore_GetRefreshesLastActivity(t *testing.T) {
	t.Parallel()

	s, now := newTestStore(t)
	first := s.Get("u1")
	*now = now.Add(10 * time.Minute)
	second := s.Get("u1")

	assert.True(t, second.LastActivity.After(first.LastActivity))
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	require.NoError(t, s.Append("u1", RoleUser, "hi"))

	conv := s.Get("u1")
	conv.Messages[1].Content = "mutated"
	conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: "extra"})

	again := s.Get("u1")
	require.Len(t, again.Messages, 2)
	assert.Equal(t, "hi", again.Messages[1].Content)
}

func TestStore_AppendTrimsToLimit(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	total := DefaultMaxMessages + 5
	for i := 0; i < total; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		require.NoError(t, s.Append("u1", role, fmt.Sprintf("m%d", i)))
	}

	conv := s.Get("u1")
	assert.Equal(t, RoleSystem, conv.Messages[0].Role)
	nonSystem := conv.NonSystem()
	require.Len(t, nonSystem, DefaultMaxMessages)
	for i, m := range nonSystem {
		assert.Equal(t, fmt.Sprintf("m%d", i+5), m.Content)
	}
	assert.Equal(t, total, conv.MessageCount)
}

func TestStore_AppendRejectsInvalidRole(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	err := s.Append("u1", RoleSystem, "override")
	assert.True(t, errors.Is(err, ErrInvalidRole))
	assert.Equal(t, 0, s.Stats().TotalConversations)
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	require.NoError(t, s.Append("u1", RoleUser, "hello"))

	assert.True(t, s.Clear("u1"))
	assert.False(t, s.Clear("u1"))

	conv := s.Get("u1")
	assert.Len(t, conv.Messages, 1)
	assert.Zero(t, conv.MessageCount)
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	require.NoError(t, s.Append("u1", RoleUser, "a"))
	require.NoError(t, s.Append("u1", RoleAssistant, "b"))
	require.NoError(t, s.Append("u2", RoleUser, "c"))
	s.Get("u3")

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalConversations)
	assert.Equal(t, 3, stats.TotalMessages)
}

func TestStore_SweepRemovesIdle(t *testing.T) {
	t.Parallel()

	s, now := newTestStore(t)
	s.Get("idle")
	*now = now.Add(20 * time.Minute)
	s.Get("active")
	*now = now.Add(11 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Stats().TotalConversations)
	assert.Equal(t, 0, s.Sweep())
}

func TestTrim(t *testing.T) {
	t.Parallel()

	msg := func(role, content string) Message { return Message{Role: role, Content: content} }

	cases := []struct {
		name string
		in   []Message
		max  int
		want []string
	}{
		{
			name: "under limit",
			in:   []Message{msg(RoleSystem, "s"), msg(RoleUser, "1")},
			max:  2,
			want: []string{"s", "1"},
		},
		{
			name: "keeps system and tail",
			in:   []Message{msg(RoleSystem, "s"), msg(RoleUser, "1"), msg(RoleAssistant, "2"), msg(RoleUser, "3")},
			max:  2,
			want: []string{"s", "2", "3"},
		},
		{
			name: "no system message",
			in:   []Message{msg(RoleUser, "1"), msg(RoleAssistant, "2"), msg(RoleUser, "3")},
			max:  2,
			want: []string{"2", "3"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := trim(tc.in, tc.max)
			contents := make([]string, 0, len(got))
			for _, m := range got {
				contents = append(contents, m.Content)
			}
			assert.Equal(t, tc.want, contents)
		})
	}
}
