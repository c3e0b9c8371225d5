package router

import (
	"context"
	"log/slog"

	"github.com/agentbus/agentbus/internal/redisbus"
)

// Listener subscribes to the command channel and feeds every message
// through the router. Messages are handled one at a time; long runs belong
// on the queue.
type Listener struct {
	bus     *redisbus.Client
	router  *Router
	channel string
}

func NewListener(bus *redisbus.Client, router *Router, channel string) *Listener {
	return &Listener{bus: bus, router: router, channel: channel}
}

// Start blocks until the context is cancelled.
func (l *Listener) Start(ctx context.Context) {
	sub := l.bus.Subscribe(ctx, l.channel)
	defer sub.Close()

	slog.Info("command listener started", "channel", l.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("command listener stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				slog.Warn("subscription closed")
				return
			}
			l.router.Handle(ctx, []byte(msg.Payload))
		}
	}
}
