package sink

import (
	"context"
	"log/slog"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
)

// SearchSink feeds sanitized messages into the full-text index. It is
// registered as a permanent fanout sink so indexing follows relay order.
type SearchSink struct {
	index contract.ISearch
	log   *slog.Logger
}

func NewSearchSink(index contract.ISearch, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.NewMessage)
	if !ok || evt.Kind != domain.MessageKindText {
		return nil
	}
	if err := s.index.Index(toIndexedMessage(evt), evt.Language); err != nil {
		s.log.Warn("Failed to index message", "message", evt.ID, "error", err)
	}
	return nil
}

func toIndexedMessage(evt event.NewMessage) domain.Message {
	return domain.Message{
		ID:        evt.ID,
		Room:      evt.RoomID,
		SenderID:  evt.Author,
		Kind:      evt.Kind,
		Content:   evt.Content,
		Seq:       evt.Seq,
		CreatedAt: evt.At,
	}
}
