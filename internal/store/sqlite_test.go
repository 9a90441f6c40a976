package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"recapbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func incoming(chatID, msgID, body string, ts int64) domain.Message {
	return domain.Message{
		MessageID: msgID,
		Body:      body,
		From:      "user@c.us",
		ChatID:    chatID,
		Timestamp: ts,
		Direction: domain.DirectionIncoming,
		IsGroup:   true,
	}
}

// --- conversation records ---

func TestCreatePendingRecord_SecondInsertRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := domain.ConversationRecord{ID: "r1", ChatID: "Trip", StartTimestamp: 100, Items: []string{}}
	if err := s.CreatePendingRecord(ctx, rec); err != nil {
		t.Fatalf("first create: %v", err)
	}

	rec2 := domain.ConversationRecord{ID: "r2", ChatID: "Trip", StartTimestamp: 110, Items: []string{}}
	err := s.CreatePendingRecord(ctx, rec2)
	if !errors.Is(err, domain.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}

	// The original record is untouched.
	got, err := s.FindPendingRecord(ctx, "Trip")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.ID != "r1" || got.StartTimestamp != 100 {
		t.Fatalf("unexpected pending record: %+v", got)
	}
}

func TestCreatePendingRecord_DifferentChatsIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePendingRecord(ctx, domain.ConversationRecord{ID: "a", ChatID: "chat-a"}); err != nil {
		t.Fatalf("chat-a: %v", err)
	}
	if err := s.CreatePendingRecord(ctx, domain.ConversationRecord{ID: "b", ChatID: "chat-b"}); err != nil {
		t.Fatalf("chat-b: %v", err)
	}
}

func TestCreatePendingRecord_AllowedAfterCompletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := domain.ConversationRecord{ID: "r1", ChatID: "c1", Items: []string{}}
	if err := s.CreatePendingRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Status = domain.StatusCompleted
	rec.Summary = "done"
	rec.Items = []string{"milk"}
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Chat is free again once the record left the pending state.
	if err := s.CreatePendingRecord(ctx, domain.ConversationRecord{ID: "r2", ChatID: "c1"}); err != nil {
		t.Fatalf("expected new recording to be allowed: %v", err)
	}
}

func TestFindPendingRecord_NoneReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.FindPendingRecord(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSaveRecord_UpsertRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := domain.ConversationRecord{
		ID: "r1", ChatID: "c1", ChatName: "Trip",
		StartMessageID: "m1", StartTimestamp: 100,
		Status: domain.StatusPending, Items: []string{},
	}
	if err := s.CreatePendingRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.EndMessageID = "m9"
	rec.EndTimestamp = 200
	rec.Summary = "Grocery run"
	rec.Items = []string{"milk", "bread"}
	rec.Status = domain.StatusCompleted
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Pending lookup no longer sees it.
	if got, _ := s.FindPendingRecord(ctx, "c1"); got != nil {
		t.Fatalf("record should not be pending anymore: %+v", got)
	}
}

// --- messages ---

func TestRecentMessages_IncomingNonEmptyNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msgs := []domain.Message{
		incoming("c1", "m1", "first", 100),
		incoming("c1", "m2", "second", 105),
		incoming("c1", "m3", "", 107), // empty body excluded
		{MessageID: "m4", Body: "bot reply", ChatID: "c1", Timestamp: 108, Direction: domain.DirectionOutgoing, IsGroup: true},
		incoming("c1", "m5", "third", 110),
		incoming("c2", "m6", "other chat", 111),
	}
	for _, m := range msgs {
		if err := s.SaveMessage(ctx, m); err != nil {
			t.Fatalf("save %s: %v", m.MessageID, err)
		}
	}

	got, err := s.RecentMessages(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(got), got)
	}
	if got[0].MessageID != "m5" || got[2].MessageID != "m1" {
		t.Fatalf("wrong order: %s .. %s", got[0].MessageID, got[2].MessageID)
	}
}

func TestRecentMessages_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		if err := s.SaveMessage(ctx, incoming("c1", "m", "body", 100+i)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentMessages(ctx, "c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
}

func TestMessagesBetween_InclusiveBoundsOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, m := range []domain.Message{
		incoming("c1", "m0", "before", 99),
		incoming("c1", "m1", "need milk", 101),
		incoming("c1", "m2", "and bread", 105),
		incoming("c1", "m3", "at bound", 120),
		incoming("c1", "m4", "after", 121),
	} {
		if err := s.SaveMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.MessagesBetween(ctx, "c1", 101, 120)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Body != "need milk" || got[1].Body != "and bread" || got[2].Body != "at bound" {
		t.Fatalf("wrong content/order: %+v", got)
	}
}

func TestMessagesBetween_ExcludesOutgoing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveMessage(ctx, incoming("c1", "m1", "user text", 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMessage(ctx, domain.Message{
		MessageID: "m2", Body: "bot text", ChatID: "c1", Timestamp: 101,
		Direction: domain.DirectionOutgoing, IsGroup: true,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.MessagesBetween(ctx, "c1", 0, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Body != "user text" {
		t.Fatalf("expected only the incoming message, got %+v", got)
	}
}

func TestMessagesBetween_EmptyBodiesIncluded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveMessage(ctx, incoming("c1", "m1", "", 100)); err != nil {
		t.Fatal(err)
	}

	got, err := s.MessagesBetween(ctx, "c1", 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("empty body should be in the window, got %d messages", len(got))
	}
}

// --- chat stats ---

func TestKnownChats_GroupsOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	group := incoming("g1", "m1", "hi", 100)
	group.ChatName = "Trip"
	direct := incoming("d1", "m2", "psst", 105)
	direct.IsGroup = false
	for _, m := range []domain.Message{group, direct} {
		if err := s.SaveMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	chats, err := s.KnownChats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0].ChatID != "g1" || chats[0].ChatName != "Trip" {
		t.Fatalf("unexpected chats: %+v", chats)
	}
}

func TestChatStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, m := range []domain.Message{
		incoming("g1", "m1", "a", 100),
		incoming("g1", "m2", "b", 150),
	} {
		if err := s.SaveMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.ChatStats(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if st == nil || st.MessageCount != 2 || st.FirstSeen != 100 || st.LastSeen != 150 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	none, err := s.ChatStats(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("expected nil for unknown chat, got %+v", none)
	}
}
