package router

import (
	"context"
	"log/slog"

	"github.com/stakewatch/stakewatch/internal/channel"
	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/enrich"
)

// Router dispatches enriched messages to their destination channel.
// Channel handles are resolved once at startup and reused.
type Router struct {
	defaultCh  channel.Sender
	governance channel.Sender
	log        *slog.Logger
}

// New builds a router. A nil governance channel routes everything to
// the default channel.
func New(defaultCh, governance channel.Sender, log *slog.Logger) *Router {
	return &Router{defaultCh: defaultCh, governance: governance, log: log}
}

// Dispatch classifies and sends every message. Send failures are
// logged and never block delivery of the remaining messages; the
// successfully delivered messages are returned.
func (r *Router) Dispatch(ctx context.Context, msgs []*enrich.Message) []*enrich.Message {
	delivered := make([]*enrich.Message, 0, len(msgs))
	for _, msg := range msgs {
		ch := r.channelFor(msg.Category)
		if ch == nil {
			r.log.Warn("no channel for message", "display", msg.Display)
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			r.log.Error("channel send failed", "display", msg.Display, "error", err)
			continue
		}
		delivered = append(delivered, msg)
	}
	return delivered
}

func (r *Router) channelFor(cat config.Category) channel.Sender {
	if cat == config.CategoryODAO && r.governance != nil {
		return r.governance
	}
	return r.defaultCh
}
