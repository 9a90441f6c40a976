package domain

// EventBus routes events between platform adapters and the dispatcher.
type EventBus interface {
	Publish(ev ChatEvent)
	Subscribe() <-chan ChatEvent
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
