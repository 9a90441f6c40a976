package domain

import "context"

// Responder sends text back to the platform that produced an event.
type Responder interface {
	// Reply sends text to the chat the triggering event came from.
	Reply(ctx context.Context, text string) error
	// Send sends text to an arbitrary chat on the same platform.
	Send(ctx context.Context, chatID string, text string) error
}

// Command categories for /help grouping.
const (
	CategoryGeneral   = "general"
	CategoryGroup     = "group"
	CategoryUtility   = "utility"
	CategoryRecording = "recording"
)

// Command is a named bot action. A command is valid only if Name,
// Description, and Execute are all set.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Category    string
	Execute     func(ctx context.Context, ev ChatEvent, args []string, r Responder) error
}
