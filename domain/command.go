package domain

import "encoding/json"

// Commands are the decoded payloads of inbound connection events.
// The orchestrator dispatches them to the owning component.

type JoinRoomCommand struct {
	Room RoomID `json:"room_id"`
}

type LeaveRoomCommand struct {
	Room RoomID `json:"room_id"`
}

type SendMessageCommand struct {
	Room     RoomID      `json:"room_id"`
	Kind     MessageKind `json:"kind"`
	Content  string      `json:"content"`
	MediaRef string      `json:"media_ref,omitempty"`
}

type TypingCommand struct {
	Room     RoomID `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

type ReadReceiptCommand struct {
	Room      RoomID `json:"room_id"`
	MessageID string `json:"message_id"`
}

type RequestPaidChatCommand struct {
	Provider        IdentityID `json:"provider_id"`
	DurationMinutes int        `json:"duration_minutes"`
	Kind            CallKind   `json:"kind"`
}

type AcceptChatRequestCommand struct {
	RequestID string `json:"request_id"`
}

type ExtendChatCommand struct {
	Room    RoomID `json:"room_id"`
	Minutes int    `json:"minutes"`
}

type EndChatCommand struct {
	Room RoomID `json:"room_id"`
}

type CallUserCommand struct {
	Callee IdentityID `json:"callee_id"`
	Kind   CallKind   `json:"kind"`
}

type AcceptCallCommand struct {
	Call CallID `json:"call_id"`
}

type RejectCallCommand struct {
	Call CallID `json:"call_id"`
}

type JoinCallCommand struct {
	Call CallID `json:"call_id"`
}

// CallSignalCommand carries an opaque signaling payload (offer/answer/
// candidate data). The broker relays Payload without interpreting it.
type CallSignalCommand struct {
	Call    CallID          `json:"call_id"`
	Payload json.RawMessage `json:"payload"`
}

type EndCallCommand struct {
	Call CallID `json:"call_id"`
}

type StatusUpdateCommand struct {
	Status       PresenceStatus `json:"status"`
	CustomStatus string         `json:"custom_status,omitempty"`
}
