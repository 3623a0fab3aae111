package runtime

import (
	"log/slog"
	"sync"

	"chat-broker/domain"
	"chat-broker/domain/event"
)

type memberSet map[domain.IdentityID]struct{}

// Membership tracks which identities are currently joined to which rooms.
// It holds connected membership only; the durable participant set of a room
// lives in storage. The orchestrator calls Leave for every room a dying
// connection had joined, which is the sole cleanup path.
type Membership struct {
	mu      sync.RWMutex
	log     *slog.Logger
	rooms   map[domain.RoomID]memberSet
	events  chan<- event.DomainEvent
}

func NewMembership(log *slog.Logger, events chan<- event.DomainEvent) *Membership {
	return &Membership{
		log:    log,
		rooms:  make(map[domain.RoomID]memberSet),
		events: events,
	}
}

// Join adds the identity to the room's membership set and returns the
// current member list. Other members are notified.
func (m *Membership) Join(room domain.RoomID, identity domain.IdentityID) []domain.IdentityID {
	m.mu.Lock()
	members, ok := m.rooms[room]
	if !ok {
		members = make(memberSet)
		m.rooms[room] = members
	}
	_, already := members[identity]
	members[identity] = struct{}{}
	list := make([]domain.IdentityID, 0, len(members))
	for id := range members {
		list = append(list, id)
	}
	m.mu.Unlock()

	if !already {
		m.emit(event.MemberJoined{RoomID: room, Identity: identity, Members: list})
	}
	return list
}

// Leave is an idempotent removal. Empty rooms are dropped from the map to
// prevent slow leaks.
func (m *Membership) Leave(room domain.RoomID, identity domain.IdentityID) bool {
	m.mu.Lock()
	members, ok := m.rooms[room]
	if !ok {
		m.mu.Unlock()
		return false
	}
	_, present := members[identity]
	delete(members, identity)
	if len(members) == 0 {
		delete(m.rooms, room)
	}
	m.mu.Unlock()

	if present {
		m.emit(event.MemberLeft{RoomID: room, Identity: identity})
	}
	return present
}

func (m *Membership) MembersOf(room domain.RoomID) []domain.IdentityID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members, ok := m.rooms[room]
	if !ok {
		return nil
	}
	list := make([]domain.IdentityID, 0, len(members))
	for id := range members {
		list = append(list, id)
	}
	return list
}

func (m *Membership) IsMember(room domain.RoomID, identity domain.IdentityID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members, ok := m.rooms[room]
	if !ok {
		return false
	}
	_, present := members[identity]
	return present
}

// RoomsOf lists the rooms an identity is currently joined to. The fan-out
// worker uses it to scope presence updates.
func (m *Membership) RoomsOf(identity domain.IdentityID) []domain.RoomID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rooms []domain.RoomID
	for id, members := range m.rooms {
		if _, present := members[identity]; present {
			rooms = append(rooms, id)
		}
	}
	return rooms
}

func (m *Membership) emit(evt event.DomainEvent) {
	select {
	case m.events <- evt:
	default:
		m.log.Warn("Event channel full, dropping membership event", "type", evt.Type())
	}
}
