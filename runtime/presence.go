// Package runtime hosts the in-memory coordination state of the broker:
// presence, room membership, billing countdowns, and the orchestrator that
// composes them. It contains no transport or storage logic.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
)

type presenceEntry struct {
	record domain.PresenceRecord
	sink   contract.EventSink
}

// Presence tracks the canonical connection per identity. Last writer wins on
// reconnect; a stale disconnect never clobbers a fresher registration.
type Presence struct {
	mu      sync.RWMutex
	log     *slog.Logger
	entries map[domain.IdentityID]*presenceEntry
	events  chan<- event.DomainEvent
}

func NewPresence(log *slog.Logger, events chan<- event.DomainEvent) *Presence {
	return &Presence{
		log:     log,
		entries: make(map[domain.IdentityID]*presenceEntry),
		events:  events,
	}
}

// Register replaces any prior canonical connection for the identity and
// flips it online. Idempotent per connection.
func (p *Presence) Register(identity domain.IdentityID, conn domain.ConnectionID, sink contract.EventSink) {
	p.mu.Lock()
	entry, ok := p.entries[identity]
	if !ok {
		entry = &presenceEntry{record: domain.PresenceRecord{Identity: identity}}
		p.entries[identity] = entry
	}
	entry.record.Connection = conn
	entry.record.Status = domain.StatusOnline
	entry.record.CustomStatus = ""
	entry.record.LastSeen = time.Now().UTC()
	entry.sink = sink
	record := entry.record
	p.mu.Unlock()

	p.broadcast(record)
}

// Unregister only takes effect if conn is still the canonical connection,
// so a slow disconnect cannot undo a fresher reconnect.
func (p *Presence) Unregister(identity domain.IdentityID, conn domain.ConnectionID) bool {
	p.mu.Lock()
	entry, ok := p.entries[identity]
	if !ok || entry.record.Connection != conn {
		p.mu.Unlock()
		p.log.Debug(fmt.Sprintf("Ignoring stale unregister for %s", identity))
		return false
	}
	entry.record.Connection = ""
	entry.record.Status = domain.StatusOffline
	entry.record.LastSeen = time.Now().UTC()
	entry.sink = nil
	record := entry.record
	p.mu.Unlock()

	p.broadcast(record)
	return true
}

// SetStatus updates the presence status. Unknown identities report false
// instead of failing.
func (p *Presence) SetStatus(identity domain.IdentityID, status domain.PresenceStatus, custom string) bool {
	p.mu.Lock()
	entry, ok := p.entries[identity]
	if !ok {
		p.mu.Unlock()
		return false
	}
	entry.record.Status = status
	entry.record.CustomStatus = custom
	entry.record.LastSeen = time.Now().UTC()
	record := entry.record
	p.mu.Unlock()

	p.broadcast(record)
	return true
}

// Refresh bumps LastSeen when activity arrives on the canonical connection.
func (p *Presence) Refresh(identity domain.IdentityID, conn domain.ConnectionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[identity]
	if ok && entry.record.Connection == conn {
		entry.record.LastSeen = time.Now().UTC()
	}
}

func (p *Presence) IsOnline(identity domain.IdentityID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[identity]
	return ok && entry.record.Online()
}

func (p *Presence) Lookup(identity domain.IdentityID) (domain.PresenceRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[identity]
	if !ok {
		return domain.PresenceRecord{}, false
	}
	return entry.record, true
}

// SinkOf resolves the canonical connection's sink for targeted delivery.
func (p *Presence) SinkOf(identity domain.IdentityID) (contract.EventSink, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[identity]
	if !ok || entry.sink == nil {
		return nil, false
	}
	return entry.sink, true
}

// Sweep flips records not refreshed within ttl back to offline, modelling
// transient store eviction. Returns the identities swept.
func (p *Presence) Sweep(ttl time.Duration) []domain.IdentityID {
	cutoff := time.Now().UTC().Add(-ttl)
	var swept []domain.IdentityID
	var records []domain.PresenceRecord

	p.mu.Lock()
	for id, entry := range p.entries {
		if entry.record.Online() && entry.record.LastSeen.Before(cutoff) {
			entry.record.Connection = ""
			entry.record.Status = domain.StatusOffline
			entry.sink = nil
			swept = append(swept, id)
			records = append(records, entry.record)
		}
	}
	p.mu.Unlock()

	for _, r := range records {
		p.broadcast(r)
	}
	return swept
}

func (p *Presence) broadcast(record domain.PresenceRecord) {
	evt := event.PresenceUpdate{
		Identity:     record.Identity,
		Status:       record.Status,
		CustomStatus: record.CustomStatus,
		LastSeen:     record.LastSeen,
	}
	select {
	case p.events <- evt:
	default:
		p.log.Warn("Event channel full, dropping presence update", "identity", record.Identity)
	}
}
