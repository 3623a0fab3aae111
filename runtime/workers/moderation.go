package workers

import (
	"context"
	"log/slog"

	"chat-broker/domain/event"
	"chat-broker/moderation"

	"github.com/abadojack/whatlanggo"
)

// ModerationWorker sits between the relay and the fanout: raw message
// events get their content censored and annotated with a detected language,
// every other event passes through untouched. A single instance drains the
// raw channel so pipeline order is preserved.
type ModerationWorker struct {
	moderator moderation.Moderator
	rawEvents <-chan event.DomainEvent
	events    chan<- event.DomainEvent
	log       *slog.Logger
}

func NewModerationWorker(moderator moderation.Moderator,
	rawEvents <-chan event.DomainEvent, events chan<- event.DomainEvent,
	log *slog.Logger) *ModerationWorker {
	return &ModerationWorker{
		moderator: moderator,
		rawEvents: rawEvents,
		events:    events,
		log:       log,
	}
}

func (w *ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping moderation worker")
			return ctx.Err()
		case evt, ok := <-w.rawEvents:
			if !ok {
				return nil
			}
			out := w.sanitize(evt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case w.events <- out:
			}
		}
	}
}

func (w *ModerationWorker) sanitize(evt event.DomainEvent) event.DomainEvent {
	posted, ok := evt.(event.MessagePosted)
	if !ok {
		return evt
	}
	info := whatlanggo.Detect(posted.Content)
	return event.NewMessage{
		ID:       posted.ID,
		RoomID:   posted.RoomID,
		Author:   posted.Author,
		Kind:     posted.Kind,
		Content:  w.moderator.Censor(posted.Content),
		MediaRef: posted.MediaRef,
		Seq:      posted.Seq,
		Language: info.Lang.Iso6391(),
		At:       posted.At,
	}
}
