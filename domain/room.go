package domain

import "time"

type RoomID string

type RoomKind string

const (
	RoomKindFree RoomKind = "free"
	RoomKindPaid RoomKind = "paid"
)

// ChatRoom identifies a conversation. It outlives individual connections:
// the core never deletes a room, archival is a storage concern.
type ChatRoom struct {
	ID            RoomID
	Kind          RoomKind
	Participants  []IdentityID
	LastMessageID string
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// HasParticipant reports whether the identity belongs to the room's
// participant set (not whether it is currently connected).
func (r *ChatRoom) HasParticipant(id IdentityID) bool {
	for _, p := range r.Participants {
		if p == id {
			return true
		}
	}
	return false
}
