package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recapbot/internal/command"
	"recapbot/internal/domain"
	"recapbot/internal/metrics"
)

// genericFailureReply answers any handler error or panic. The dispatcher
// never surfaces internals to the chat.
const genericFailureReply = "❌ An error occurred while executing this command."

// Dispatcher consumes inbound chat events and routes prefixed commands to
// registered handlers. It is the catch boundary for command execution:
// nothing a handler returns or panics with escapes it.
type Dispatcher struct {
	registry    *command.Registry
	store       domain.Store
	bus         domain.EventBus
	prefix      string
	concurrency int
	logger      *slog.Logger
}

// Config holds all dependencies for the dispatcher.
type Config struct {
	Registry    *command.Registry
	Store       domain.Store
	Bus         domain.EventBus
	Prefix      string
	Concurrency int // max parallel events (default 5)
	Logger      *slog.Logger
}

func New(cfg Config) *Dispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &Dispatcher{
		registry:    cfg.Registry,
		store:       cfg.Store,
		bus:         cfg.Bus,
		prefix:      cfg.Prefix,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Run consumes inbound events and processes them with bounded concurrency.
// Every group event is persisted before dispatch so the recording window
// queries see it.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", "prefix", d.prefix, "concurrency", d.concurrency)

	sem := make(chan struct{}, d.concurrency)
	inbound := d.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case ev, ok := <-inbound:
			if !ok {
				d.logger.Info("inbound channel closed, dispatcher stopping")
				return
			}
			sem <- struct{}{}
			go func(ev domain.ChatEvent) {
				defer func() { <-sem }()
				d.persistInbound(ctx, ev)
				d.OnEvent(ctx, ev)
			}(ev)
		}
	}
}

// persistInbound saves a group event to the message store. Storage failures
// are logged and do not block dispatch.
func (d *Dispatcher) persistInbound(ctx context.Context, ev domain.ChatEvent) {
	if !ev.IsGroup || d.store == nil {
		return
	}
	err := d.store.SaveMessage(ctx, domain.Message{
		MessageID: ev.ID,
		Body:      ev.Body,
		From:      ev.From,
		Author:    ev.Author,
		ChatID:    ev.ChatID,
		ChatName:  ev.ChatName,
		Timestamp: ev.Timestamp,
		Direction: domain.DirectionIncoming,
		IsGroup:   true,
	})
	if err != nil {
		d.logger.Warn("failed to save inbound message", "chat", ev.ChatID, "err", err)
	}
}

// OnEvent routes one inbound event. Non-group events, unprefixed text, an
// empty command token, and unknown tokens are all silent no-ops.
func (d *Dispatcher) OnEvent(ctx context.Context, ev domain.ChatEvent) {
	metrics.EventsSeen.Inc()

	if !ev.IsGroup || !strings.HasPrefix(ev.Body, d.prefix) {
		metrics.EventsFiltered.Inc()
		return
	}

	fields := strings.Fields(strings.TrimPrefix(ev.Body, d.prefix))
	if len(fields) == 0 {
		metrics.EventsFiltered.Inc()
		return
	}
	token := strings.ToLower(fields[0])
	args := fields[1:]

	cmd, ok := d.registry.Resolve(token)
	if !ok {
		// The bot never replies "unknown command".
		metrics.EventsFiltered.Inc()
		return
	}

	resp := d.Responder(ev)

	d.logger.Info("executing command", "command", cmd.Name, "chat", ev.ChatName, "channel", ev.Channel)
	metrics.CommandsDispatched.Inc()

	if err := d.execute(ctx, cmd, ev, args, resp); err != nil {
		metrics.CommandsFailed.Inc()
		d.logger.Error("command failed", "command", cmd.Name, "chat", ev.ChatID, "err", err)
		if rerr := resp.Reply(ctx, genericFailureReply); rerr != nil {
			d.logger.Error("failed to send failure reply", "chat", ev.ChatID, "err", rerr)
		}
	}
}

// execute invokes the handler and converts panics into errors so they stay
// inside the dispatcher boundary.
func (d *Dispatcher) execute(ctx context.Context, cmd domain.Command, ev domain.ChatEvent, args []string, r domain.Responder) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in command %s: %v", cmd.Name, rec)
		}
	}()
	return cmd.Execute(ctx, ev, args, r)
}

// Responder returns a reply handle scoped to the given event. Outbound
// text is routed through the bus and persisted as an outgoing message.
func (d *Dispatcher) Responder(ev domain.ChatEvent) domain.Responder {
	return &busResponder{d: d, ev: ev}
}

type busResponder struct {
	d  *Dispatcher
	ev domain.ChatEvent
}

func (r *busResponder) Reply(ctx context.Context, text string) error {
	return r.Send(ctx, r.ev.ChatID, text)
}

func (r *busResponder) Send(ctx context.Context, chatID string, text string) error {
	r.d.bus.SendOutbound(domain.OutboundMessage{
		Channel: r.ev.Channel,
		ChatID:  chatID,
		Content: text,
	})

	if r.d.store != nil {
		err := r.d.store.SaveMessage(ctx, domain.Message{
			Body:      text,
			ChatID:    chatID,
			ChatName:  r.ev.ChatName,
			Timestamp: time.Now().Unix(),
			Direction: domain.DirectionOutgoing,
			IsGroup:   r.ev.IsGroup,
		})
		if err != nil {
			r.d.logger.Warn("failed to save outbound message", "chat", chatID, "err", err)
		}
	}
	return nil
}
