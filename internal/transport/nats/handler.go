package nats

import (
	"context"

	"walletdash/internal/bus"
	"walletdash/internal/service"
	"walletdash/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Source is what the pump drains. *Bus satisfies it.
type Source interface {
	Messages() <-chan *nats.Msg
	States() <-chan bus.State
}

// Handler pumps inbound messages and connection transitions into the
// dashboard from a single goroutine.
type Handler struct {
	src     Source
	inbound service.InboundHandler
	log     zerolog.Logger
	done    chan struct{}
}

func NewHandler(src Source, inbound service.InboundHandler, log zerolog.Logger) *Handler {
	return &Handler{
		src:     src,
		inbound: inbound,
		log:     logger.Component(log, "nats-pump"),
		done:    make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or the connection is closed.
func (h *Handler) Start(ctx context.Context) error {
	defer close(h.done)
	h.log.Info().Msg("inbound pump is running")

	msgs, states := h.src.Messages(), h.src.States()
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("inbound pump shutting down")
			return nil
		case s := <-states:
			h.inbound.HandleState(ctx, s)
			if s == bus.StateClosed {
				return nil
			}
		case m := <-msgs:
			h.inbound.HandleMessage(bus.Message{Topic: TopicFor(m.Subject), Payload: m.Data})
		}
	}
}

// Stop waits for the pump to finish the message in hand.
func (h *Handler) Stop(ctx context.Context) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
