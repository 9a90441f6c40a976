package domain

import "context"

// Channel is a chat platform adapter (WhatsApp, Telegram, Discord).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus EventBus) error
	Stop() error
	Send(ctx context.Context, chatID string, content string) error
}

// GroupJoiner is implemented by adapters that can join a group chat from
// an invite link.
type GroupJoiner interface {
	JoinGroup(ctx context.Context, inviteCode string) (string, error)
}
