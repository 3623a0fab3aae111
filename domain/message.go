// Messages are immutable and validated by the relay before persistence.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindMedia MessageKind = "media"
)

// Message represents an immutable chat event. Seq is the durable ordered
// position assigned by storage; fan-out follows Seq order, not arrival order.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	SenderID  IdentityID
	Kind      MessageKind
	Content   string
	MediaRef  string
	Seq       uint64
	CreatedAt time.Time
}
