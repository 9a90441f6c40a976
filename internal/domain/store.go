package domain

import (
	"context"
	"errors"
)

// ErrAlreadyRecording is returned by CreatePendingRecord when the chat
// already has a pending record.
var ErrAlreadyRecording = errors.New("recording already in progress for this chat")

// ChatStat summarizes stored history for one chat.
type ChatStat struct {
	ChatID       string
	ChatName     string
	MessageCount int
	FirstSeen    int64
	LastSeen     int64
}

// Store handles persistent storage of chat messages and conversation records.
type Store interface {
	// CreatePendingRecord inserts a new pending record. The insert is
	// conditional: if the chat already has a pending record it fails with
	// ErrAlreadyRecording and writes nothing.
	CreatePendingRecord(ctx context.Context, rec ConversationRecord) error
	// FindPendingRecord returns the chat's pending record, or nil if none.
	FindPendingRecord(ctx context.Context, chatID string) (*ConversationRecord, error)
	// SaveRecord inserts or updates a record keyed by its ID.
	SaveRecord(ctx context.Context, rec ConversationRecord) error

	SaveMessage(ctx context.Context, msg Message) error
	// RecentMessages returns up to limit incoming, non-empty messages for
	// the chat, newest first.
	RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
	// MessagesBetween returns incoming messages with t0 <= timestamp <= t1,
	// oldest first. Empty bodies are included.
	MessagesBetween(ctx context.Context, chatID string, t0, t1 int64) ([]Message, error)

	KnownChats(ctx context.Context) ([]ChatStat, error)
	ChatStats(ctx context.Context, chatID string) (*ChatStat, error)

	Close() error
}
