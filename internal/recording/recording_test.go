package recording

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"

	"recapbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStore is an in-memory domain.Store with real pending-record semantics.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]domain.ConversationRecord
	messages []domain.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]domain.ConversationRecord{}}
}

func (s *fakeStore) CreatePendingRecord(ctx context.Context, rec domain.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ChatID == rec.ChatID && r.Status == domain.StatusPending {
			return domain.ErrAlreadyRecording
		}
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeStore) FindPendingRecord(ctx context.Context, chatID string) (*domain.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ChatID == chatID && r.Status == domain.StatusPending {
			rc := r
			return &rc, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveRecord(ctx context.Context, rec domain.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeStore) SaveMessage(ctx context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && m.Direction == domain.DirectionIncoming && m.Body != "" {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) MessagesBetween(ctx context.Context, chatID string, t0, t1 int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && m.Direction == domain.DirectionIncoming &&
			m.Timestamp >= t0 && m.Timestamp <= t1 {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *fakeStore) KnownChats(ctx context.Context) ([]domain.ChatStat, error) { return nil, nil }
func (s *fakeStore) ChatStats(ctx context.Context, chatID string) (*domain.ChatStat, error) {
	return nil, nil
}
func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) record(id string) (domain.ConversationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *fakeStore) allRecords() []domain.ConversationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConversationRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// fakeSummarizer returns a fixed summary, or an error when set.
type fakeSummarizer struct {
	summary domain.Summary
	err     error
	gotText string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript string) (domain.Summary, error) {
	f.gotText = transcript
	if f.err != nil {
		return domain.Summary{}, f.err
	}
	return f.summary, nil
}

// fakeEnricher maps item names to products; missing entries fail.
type fakeEnricher struct {
	mu       sync.Mutex
	products map[string][]domain.Product
	calls    []string
}

func (f *fakeEnricher) Lookup(ctx context.Context, item string) ([]domain.Product, error) {
	f.mu.Lock()
	f.calls = append(f.calls, item)
	f.mu.Unlock()
	p, ok := f.products[item]
	if !ok {
		return nil, errors.New("catalog unavailable")
	}
	return p, nil
}

// captureResponder records every reply for assertions.
type captureResponder struct {
	mu      sync.Mutex
	replies []string
}

func (c *captureResponder) Reply(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, text)
	return nil
}

func (c *captureResponder) Send(ctx context.Context, chatID, text string) error {
	return c.Reply(ctx, text)
}

func (c *captureResponder) last(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		t.Fatal("expected a reply")
	}
	return c.replies[len(c.replies)-1]
}

func tripEvent(id string, ts int64, body string) domain.ChatEvent {
	return domain.ChatEvent{
		ID:        id,
		Channel:   "test",
		ChatID:    "trip@g.us",
		ChatName:  "Trip",
		From:      "alice@c.us",
		Body:      body,
		Timestamp: ts,
		IsGroup:   true,
	}
}

func incoming(id, chatID, body string, ts int64) domain.Message {
	return domain.Message{
		MessageID: id,
		ChatID:    chatID,
		ChatName:  "Trip",
		From:      "alice@c.us",
		Body:      body,
		Timestamp: ts,
		Direction: domain.DirectionIncoming,
		IsGroup:   true,
	}
}
