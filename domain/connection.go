package domain

type ConnectionID string

// Connection is the ephemeral per-socket state owned by the orchestrator.
// It is created on connect, destroyed on disconnect, and tracks the rooms
// joined through it so teardown can leave every one of them.
type Connection struct {
	ID          ConnectionID
	Identity    IdentityID
	Role        Role
	joinedRooms map[RoomID]struct{}
}

func NewConnection(id ConnectionID, identity IdentityID, role Role) *Connection {
	return &Connection{
		ID:          id,
		Identity:    identity,
		Role:        role,
		joinedRooms: make(map[RoomID]struct{}),
	}
}

func (c *Connection) TrackRoom(roomID RoomID) {
	c.joinedRooms[roomID] = struct{}{}
}

func (c *Connection) ForgetRoom(roomID RoomID) {
	delete(c.joinedRooms, roomID)
}

// JoinedRooms returns a snapshot of the rooms joined through this connection.
func (c *Connection) JoinedRooms() []RoomID {
	rooms := make([]RoomID, 0, len(c.joinedRooms))
	for id := range c.joinedRooms {
		rooms = append(rooms, id)
	}
	return rooms
}
