package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"recapbot/internal/command"
	"recapbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubStore struct {
	domain.Store
	recent []domain.Message
	chats  []domain.ChatStat
	stat   *domain.ChatStat
}

func (s *stubStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if len(s.recent) > limit {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func (s *stubStore) KnownChats(ctx context.Context) ([]domain.ChatStat, error) {
	return s.chats, nil
}

func (s *stubStore) ChatStats(ctx context.Context, chatID string) (*domain.ChatStat, error) {
	return s.stat, nil
}

type replyCapture struct {
	replies []string
}

func (c *replyCapture) Reply(ctx context.Context, text string) error {
	c.replies = append(c.replies, text)
	return nil
}

func (c *replyCapture) Send(ctx context.Context, chatID, text string) error {
	return c.Reply(ctx, text)
}

func (c *replyCapture) last(t *testing.T) string {
	t.Helper()
	if len(c.replies) == 0 {
		t.Fatal("expected a reply")
	}
	return c.replies[len(c.replies)-1]
}

func groupEvent() domain.ChatEvent {
	return domain.ChatEvent{
		ID: "m1", Channel: "test", ChatID: "g1@g.us", ChatName: "Trip",
		From: "alice@c.us", Timestamp: 1000, IsGroup: true,
	}
}

func newSet(t *testing.T, st domain.Store) (*Set, *command.Registry) {
	t.Helper()
	reg := command.NewRegistry(testLogger())
	s := New(Deps{
		Store:    st,
		Registry: reg,
		Prefix:   "!",
		Now:      func() time.Time { return time.Unix(10000, 0) },
		Intn:     func(n int) int { return 0 },
		Logger:   testLogger(),
	})
	for _, c := range s.All() {
		reg.Register(c)
	}
	return s, reg
}

func TestHelp_ListsRegisteredCommandsByCategory(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	if err := s.help(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("help: %v", err)
	}

	got := resp.last(t)
	for _, want := range []string{
		"🤖 *Bot Commands*",
		"*General Commands:*",
		"• !help -",
		"• !ping -",
		"*Group Commands:*",
		"• !groups -",
		"*Utility Commands:*",
		"• !random -",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("help output missing %q:\n%s", want, got)
		}
	}
}

func TestHelp_SpecificCommandShowsAliases(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	if err := s.help(context.Background(), groupEvent(), []string{"RANDOM"}, resp); err != nil {
		t.Fatalf("help random: %v", err)
	}
	got := resp.last(t)
	if !strings.Contains(got, "*!random*") || !strings.Contains(got, "rand, randomsg") {
		t.Fatalf("unexpected detail output:\n%s", got)
	}
}

func TestHelp_UnknownCommand(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	if err := s.help(context.Background(), groupEvent(), []string{"nope"}, resp); err != nil {
		t.Fatalf("help nope: %v", err)
	}
	if !strings.Contains(resp.last(t), "Unknown command: *nope*") {
		t.Fatalf("unexpected reply: %q", resp.last(t))
	}
}

func TestPing(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	cmd := s.Ping()
	if err := cmd.Execute(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if got := resp.last(t); got != "🏓 Pong!" {
		t.Fatalf("reply = %q", got)
	}
}

func TestRandom_ResendsStoredMessage(t *testing.T) {
	st := &stubStore{recent: []domain.Message{
		{MessageID: "m9", Body: "bring snacks", Author: "bob@c.us", From: "g1@g.us", Timestamp: 10000 - 120},
	}}
	s, _ := newSet(t, st)
	resp := &replyCapture{}

	if err := s.random(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("random: %v", err)
	}
	got := resp.last(t)
	if !strings.Contains(got, "🎲 *Random Message from 2 minutes ago:*") {
		t.Fatalf("age missing:\n%s", got)
	}
	if !strings.Contains(got, "👤 *bob:* bring snacks") {
		t.Fatalf("body missing:\n%s", got)
	}
}

func TestRandom_EmptyHistory(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	if err := s.random(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("random: %v", err)
	}
	if !strings.Contains(resp.last(t), "No recent messages") {
		t.Fatalf("reply = %q", resp.last(t))
	}
}

func TestRandom_NonGroupRejected(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}
	ev := groupEvent()
	ev.IsGroup = false

	if err := s.random(context.Background(), ev, nil, resp); err != nil {
		t.Fatalf("random: %v", err)
	}
	if !strings.Contains(resp.last(t), "only works in groups") {
		t.Fatalf("reply = %q", resp.last(t))
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Unix(100000, 0)
	cases := []struct {
		delta time.Duration
		want  string
	}{
		{90 * time.Second, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{49 * time.Hour, "2 days ago"},
	}
	for _, c := range cases {
		if got := timeAgo(now, now.Add(-c.delta)); got != c.want {
			t.Errorf("timeAgo(-%v) = %q, want %q", c.delta, got, c.want)
		}
	}
}

func TestGroups_ListsKnownChats(t *testing.T) {
	st := &stubStore{chats: []domain.ChatStat{
		{ChatID: "g1@g.us", ChatName: "Trip", MessageCount: 42},
		{ChatID: "g2@g.us", ChatName: "Family", MessageCount: 7},
	}}
	s, _ := newSet(t, st)
	resp := &replyCapture{}

	if err := s.groups(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("groups: %v", err)
	}
	got := resp.last(t)
	for _, want := range []string{
		"📋 *Groups I'm in (2):*",
		"1. *Trip*",
		"💬 42 messages",
		"2. *Family*",
		"`g2@g.us`",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("groups output missing %q:\n%s", want, got)
		}
	}
}

func TestGroups_Empty(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	if err := s.groups(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("groups: %v", err)
	}
	if !strings.Contains(resp.last(t), "not in any groups") {
		t.Fatalf("reply = %q", resp.last(t))
	}
}

func TestInfo_ShowsChatStats(t *testing.T) {
	st := &stubStore{stat: &domain.ChatStat{
		ChatID: "g1@g.us", ChatName: "Trip", MessageCount: 42,
		FirstSeen: 1000, LastSeen: 9000,
	}}
	s, _ := newSet(t, st)
	resp := &replyCapture{}

	if err := s.info(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("info: %v", err)
	}
	got := resp.last(t)
	for _, want := range []string{"📊 *Group Information*", "*Name:* Trip", "*Messages stored:* 42", "`g1@g.us`"} {
		if !strings.Contains(got, want) {
			t.Fatalf("info output missing %q:\n%s", want, got)
		}
	}
}

func TestInfo_NoHistory(t *testing.T) {
	s, _ := newSet(t, &stubStore{})
	resp := &replyCapture{}

	if err := s.info(context.Background(), groupEvent(), nil, resp); err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(resp.last(t), "No stored history") {
		t.Fatalf("reply = %q", resp.last(t))
	}
}
