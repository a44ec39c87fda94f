package channel

import (
	"context"

	"go.uber.org/zap"

	"imkit/internal/domain"
)

const outboxSize = 64

// outbox decouples Client.Send from a transport's rate limiting and retry
// backoff: enqueue never blocks, and one worker sends in order.
type outbox struct {
	ch   chan domain.Message
	send func(domain.Message)
	lg   *zap.Logger
}

func newOutbox(send func(domain.Message), lg *zap.Logger) *outbox {
	return &outbox{ch: make(chan domain.Message, outboxSize), send: send, lg: lg}
}

// enqueue is the handler registered with the sink. A full outbox drops msg.
func (o *outbox) enqueue(msg domain.Message) {
	select {
	case o.ch <- msg:
	default:
		o.lg.Warn("outbox full, message dropped", zap.String("target", msg.TargetID), zap.String("id", msg.ID))
	}
}

// run sends queued messages until ctx ends.
func (o *outbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(o.ch); n > 0 {
				o.lg.Info("outbox stopped with pending messages", zap.Int("pending", n))
			}
			return
		case msg := <-o.ch:
			o.send(msg)
		}
	}
}
