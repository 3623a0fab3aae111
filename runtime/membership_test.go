package runtime

import (
	"log/slog"
	"testing"

	"chat-broker/domain"
	"chat-broker/domain/event"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMembership_JoinAndLeave(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	membership := NewMembership(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	room := domain.RoomID("room-1")
	alice := domain.IdentityID("alice")
	bob := domain.IdentityID("bob")

	// When two identities join
	members := membership.Join(room, alice)
	req.Equal([]domain.IdentityID{alice}, members)
	members = membership.Join(room, bob)
	req.Len(members, 2)

	// Then membership reads back
	req.True(membership.IsMember(room, alice))
	req.True(membership.IsMember(room, bob))
	req.Len(membership.MembersOf(room), 2)

	// And two join events were emitted
	req.Equal("member-joined", (<-events).Type())
	req.Equal("member-joined", (<-events).Type())

	// When alice leaves
	req.True(membership.Leave(room, alice))
	req.False(membership.IsMember(room, alice))
	req.Equal("member-left", (<-events).Type())

	// Then leaving again is a no-op without an event
	req.False(membership.Leave(room, alice))
	req.Empty(events)
}

func TestMembership_DoubleJoinEmitsOnce(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	membership := NewMembership(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	room := domain.RoomID("room-1")
	alice := domain.IdentityID("alice")

	membership.Join(room, alice)
	membership.Join(room, alice)

	req.Len(membership.MembersOf(room), 1)
	req.Equal("member-joined", (<-events).Type())
	req.Empty(events)
}

func TestMembership_RoomsOf(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	membership := NewMembership(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	alice := domain.IdentityID("alice")

	membership.Join("room-1", alice)
	membership.Join("room-2", alice)
	membership.Join("room-3", "bob")

	rooms := membership.RoomsOf(alice)
	req.Len(rooms, 2)
	req.Contains(rooms, domain.RoomID("room-1"))
	req.Contains(rooms, domain.RoomID("room-2"))
}

func TestMembership_EmptyRoomIsDropped(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	membership := NewMembership(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	room := domain.RoomID("room-1")

	membership.Join(room, "alice")
	membership.Leave(room, "alice")

	req.Empty(membership.MembersOf(room))
	req.Empty(membership.RoomsOf("alice"))
}
