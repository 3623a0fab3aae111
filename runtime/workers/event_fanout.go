package workers

import (
	"context"
	"log/slog"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
)

// EventFanout delivers pipeline events to their audience: the canonical
// connection of a targeted identity, the current members of a room, or —
// for presence updates — every room the identity is joined to. Permanent
// sinks (projections, search index, metrics) observe everything.
//
// A single fanout worker drains the channel, so delivery order equals the
// order events entered the pipeline.
type EventFanout struct {
	log        *slog.Logger
	presence   contract.IPresence
	membership contract.IMembership
	events     <-chan event.DomainEvent
	sinks      []contract.EventSink
}

func NewEventFanout(log *slog.Logger, presence contract.IPresence,
	membership contract.IMembership, events <-chan event.DomainEvent) *EventFanout {
	return &EventFanout{
		log:        log,
		presence:   presence,
		membership: membership,
		events:     events,
	}
}

// Add registers permanent sinks that observe every delivered event.
func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Warn("Permanent sink rejected event", "type", evt.Type(), "error", err)
		}
	}

	if targeted, ok := evt.(event.Targeted); ok {
		w.deliverTo(ctx, targeted.Target(), evt)
		return
	}

	if presence, ok := evt.(event.PresenceUpdate); ok {
		seen := make(map[domain.IdentityID]struct{})
		for _, room := range w.membership.RoomsOf(presence.Identity) {
			for _, member := range w.membership.MembersOf(room) {
				if member == presence.Identity {
					continue
				}
				if _, dup := seen[member]; dup {
					continue
				}
				seen[member] = struct{}{}
				w.deliverTo(ctx, member, evt)
			}
		}
		return
	}

	room := evt.Room()
	if room == "" {
		return
	}
	var excluded domain.IdentityID
	if excluding, ok := evt.(event.Excluding); ok {
		excluded = excluding.Exclude()
	}
	for _, member := range w.membership.MembersOf(room) {
		if member == excluded {
			continue
		}
		w.deliverTo(ctx, member, evt)
	}
}

func (w *EventFanout) deliverTo(ctx context.Context, identity domain.IdentityID, evt event.DomainEvent) {
	sink, ok := w.presence.SinkOf(identity)
	if !ok {
		// Offline member: durable state already committed, nothing to push.
		return
	}
	if err := sink.Consume(ctx, evt); err != nil {
		w.log.Warn("Delivery failed",
			"identity", identity, "type", evt.Type(), "error", err)
	}
}
