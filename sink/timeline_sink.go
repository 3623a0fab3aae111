package sink

import (
	"context"
	"sync"

	"chat-broker/domain"
	"chat-broker/domain/event"
)

// Timeline holds a simple local timeline of broadcast messages. Handy for
// the viewer tool and for asserting delivery order in tests.
type Timeline struct {
	mu       sync.Mutex
	Owner    domain.IdentityID
	Messages []domain.Message
}

func NewTimeline(owner domain.IdentityID) *Timeline {
	return &Timeline{Owner: owner}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.NewMessage)
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.Messages = append(t.Messages, toIndexedMessage(evt))
	t.mu.Unlock()
	return nil
}

func (t *Timeline) Snapshot() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.Messages))
	copy(out, t.Messages)
	return out
}
