package domain

// Direction marks whether a stored message was received by the bot or sent by it.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// ChatEvent is one inbound event delivered by a chat platform adapter.
type ChatEvent struct {
	ID        string // platform message identifier
	Channel   string // adapter name: whatsapp | telegram | discord
	ChatID    string
	ChatName  string
	From      string
	Author    string // group participant, when distinct from From
	Body      string
	Timestamp int64 // unix seconds
	IsGroup   bool
}

// Message is a persisted chat message row.
type Message struct {
	MessageID string
	Body      string
	From      string
	Author    string
	ChatID    string
	ChatName  string
	Timestamp int64
	Direction Direction
	IsGroup   bool
}

// OutboundMessage is a reply or broadcast routed back through an adapter.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}
