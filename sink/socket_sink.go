package sink

import (
	"context"

	"chat-broker/domain/event"
)

// SocketSink bridges the fan-out worker to one connection's write pump.
type SocketSink struct {
	Outbound chan event.DomainEvent
}

func NewSocketSink(bufferSize int) *SocketSink {
	return &SocketSink{Outbound: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by fanout. It redirects the event into the channel
// owned by the connection; the write pump takes it from there. A full
// buffer drops the event rather than stalling the whole pipeline.
func (s *SocketSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Outbound <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Backpressure: a slow consumer loses events, never delays others.
		return nil
	}
}
