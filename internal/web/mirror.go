package web

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/agentbus/agentbus/internal/redisbus"
)

// MirrorStatus subscribes to the status channel and forwards every result to
// connected websocket clients. Blocks until the context is cancelled.
func (s *Server) MirrorStatus(ctx context.Context, bus *redisbus.Client, commandChannel string) {
	statusChannel := redisbus.StatusChannel(commandChannel)
	sub := bus.Subscribe(ctx, statusChannel)
	defer sub.Close()

	slog.Info("mirroring status channel to websocket", "channel", statusChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload any
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				slog.Warn("invalid status payload", "error", err)
				continue
			}
			s.hub.Broadcast(Event{Type: "status", Payload: payload})
		}
	}
}
