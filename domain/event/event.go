// Package event defines the domain events flowing through the broker
// pipeline and out to connected sockets.
package event

import (
	"encoding/json"
	"time"

	"chat-broker/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything the fan-out worker can deliver. Room scopes the
// delivery to current room members; targeted events override that scope.
type DomainEvent interface {
	Type() string
	Room() domain.RoomID
}

// Targeted events are delivered to a single identity's canonical connection
// instead of a whole room.
type Targeted interface {
	Target() domain.IdentityID
}

// Excluding events skip one room member (typically the originator).
type Excluding interface {
	Exclude() domain.IdentityID
}

// MessagePosted is the raw, not-yet-sanitized message accepted by the relay.
// It only travels between the relay and the moderation stage.
type MessagePosted struct {
	ID       uuid.UUID          `json:"id"`
	RoomID   domain.RoomID      `json:"room_id"`
	Author   domain.IdentityID  `json:"author"`
	Kind     domain.MessageKind `json:"kind"`
	Content  string             `json:"content"`
	MediaRef string             `json:"media_ref,omitempty"`
	Seq      uint64             `json:"seq"`
	At       time.Time          `json:"at"`
}

func (e MessagePosted) Type() string        { return "message-posted" }
func (e MessagePosted) Room() domain.RoomID { return e.RoomID }

// NewMessage is the sanitized message broadcast to room members.
type NewMessage struct {
	ID       uuid.UUID          `json:"id"`
	RoomID   domain.RoomID      `json:"room_id"`
	Author   domain.IdentityID  `json:"author"`
	Kind     domain.MessageKind `json:"kind"`
	Content  string             `json:"content"`
	MediaRef string             `json:"media_ref,omitempty"`
	Seq      uint64             `json:"seq"`
	Language string             `json:"language,omitempty"`
	At       time.Time          `json:"at"`
}

func (e NewMessage) Type() string        { return "new-message" }
func (e NewMessage) Room() domain.RoomID { return e.RoomID }

type TypingIndicator struct {
	RoomID   domain.RoomID     `json:"room_id"`
	Identity domain.IdentityID `json:"identity_id"`
	IsTyping bool              `json:"is_typing"`
}

func (e TypingIndicator) Type() string               { return "typing-indicator" }
func (e TypingIndicator) Room() domain.RoomID        { return e.RoomID }
func (e TypingIndicator) Exclude() domain.IdentityID { return e.Identity }

type MessageRead struct {
	RoomID    domain.RoomID     `json:"room_id"`
	MessageID string            `json:"message_id"`
	Reader    domain.IdentityID `json:"reader_id"`
	At        time.Time         `json:"at"`
}

func (e MessageRead) Type() string               { return "message-read" }
func (e MessageRead) Room() domain.RoomID        { return e.RoomID }
func (e MessageRead) Exclude() domain.IdentityID { return e.Reader }

type MemberJoined struct {
	RoomID   domain.RoomID       `json:"room_id"`
	Identity domain.IdentityID   `json:"identity_id"`
	Members  []domain.IdentityID `json:"members"`
}

func (e MemberJoined) Type() string               { return "member-joined" }
func (e MemberJoined) Room() domain.RoomID        { return e.RoomID }
func (e MemberJoined) Exclude() domain.IdentityID { return e.Identity }

type MemberLeft struct {
	RoomID   domain.RoomID     `json:"room_id"`
	Identity domain.IdentityID `json:"identity_id"`
}

func (e MemberLeft) Type() string               { return "member-left" }
func (e MemberLeft) Room() domain.RoomID        { return e.RoomID }
func (e MemberLeft) Exclude() domain.IdentityID { return e.Identity }

// PresenceUpdate has no room of its own; the fan-out worker delivers it to
// every room the identity is currently a member of.
type PresenceUpdate struct {
	Identity     domain.IdentityID     `json:"identity_id"`
	Status       domain.PresenceStatus `json:"status"`
	CustomStatus string                `json:"custom_status,omitempty"`
	LastSeen     time.Time             `json:"last_seen"`
}

func (e PresenceUpdate) Type() string        { return "presence-update" }
func (e PresenceUpdate) Room() domain.RoomID { return "" }

type ChatRequested struct {
	RequestID       string            `json:"request_id"`
	Requester       domain.IdentityID `json:"requester_id"`
	Provider        domain.IdentityID `json:"provider_id"`
	DurationMinutes int               `json:"duration_minutes"`
	CostCents       int               `json:"cost_cents"`
}

func (e ChatRequested) Type() string              { return "chat-requested" }
func (e ChatRequested) Room() domain.RoomID       { return "" }
func (e ChatRequested) Target() domain.IdentityID { return e.Provider }

// ChatStarted is emitted once per participant when an authorized payment
// turns into an active, timed chat.
type ChatStarted struct {
	RoomID            domain.RoomID     `json:"room_id"`
	To                domain.IdentityID `json:"-"`
	AuthorizedSeconds int               `json:"authorized_seconds"`
}

func (e ChatStarted) Type() string              { return "chat-started" }
func (e ChatStarted) Room() domain.RoomID       { return e.RoomID }
func (e ChatStarted) Target() domain.IdentityID { return e.To }

type ChatExtended struct {
	RoomID            domain.RoomID `json:"room_id"`
	AdditionalSeconds int           `json:"additional_seconds"`
	RemainingSeconds  int           `json:"remaining_seconds"`
}

func (e ChatExtended) Type() string        { return "chat-extended" }
func (e ChatExtended) Room() domain.RoomID { return e.RoomID }

// ChatTimeWarning marks the active -> expiring transition shortly before
// the deadline so clients can prompt for an extension.
type ChatTimeWarning struct {
	RoomID           domain.RoomID `json:"room_id"`
	RemainingSeconds int           `json:"remaining_seconds"`
}

func (e ChatTimeWarning) Type() string        { return "chat-time-warning" }
func (e ChatTimeWarning) Room() domain.RoomID { return e.RoomID }

type ChatTimeEnded struct {
	RoomID domain.RoomID `json:"room_id"`
}

func (e ChatTimeEnded) Type() string        { return "chat-time-ended" }
func (e ChatTimeEnded) Room() domain.RoomID { return e.RoomID }

type ChatEnded struct {
	RoomID  domain.RoomID     `json:"room_id"`
	EndedBy domain.IdentityID `json:"ended_by"`
}

func (e ChatEnded) Type() string        { return "chat-ended" }
func (e ChatEnded) Room() domain.RoomID { return e.RoomID }

type IncomingCall struct {
	CallID domain.CallID     `json:"call_id"`
	Caller domain.IdentityID `json:"caller_id"`
	Callee domain.IdentityID `json:"callee_id"`
	Kind   domain.CallKind   `json:"kind"`
}

func (e IncomingCall) Type() string              { return "incoming-call" }
func (e IncomingCall) Room() domain.RoomID       { return "" }
func (e IncomingCall) Target() domain.IdentityID { return e.Callee }

// CallRinging acknowledges the invitation back to the caller.
type CallRinging struct {
	CallID domain.CallID     `json:"call_id"`
	Caller domain.IdentityID `json:"-"`
	Callee domain.IdentityID `json:"callee_id"`
}

func (e CallRinging) Type() string              { return "call-ringing" }
func (e CallRinging) Room() domain.RoomID       { return "" }
func (e CallRinging) Target() domain.IdentityID { return e.Caller }

type CallAccepted struct {
	CallID domain.CallID     `json:"call_id"`
	To     domain.IdentityID `json:"-"`
}

func (e CallAccepted) Type() string              { return "call-accepted" }
func (e CallAccepted) Room() domain.RoomID       { return "" }
func (e CallAccepted) Target() domain.IdentityID { return e.To }

type CallRejected struct {
	CallID domain.CallID     `json:"call_id"`
	To     domain.IdentityID `json:"-"`
}

func (e CallRejected) Type() string              { return "call-rejected" }
func (e CallRejected) Room() domain.RoomID       { return "" }
func (e CallRejected) Target() domain.IdentityID { return e.To }

type CallSignal struct {
	CallID  domain.CallID     `json:"call_id"`
	Sender  domain.IdentityID `json:"sender_id"`
	To      domain.IdentityID `json:"-"`
	Payload json.RawMessage   `json:"payload"`
}

func (e CallSignal) Type() string              { return "call-signal" }
func (e CallSignal) Room() domain.RoomID       { return "" }
func (e CallSignal) Target() domain.IdentityID { return e.To }

type CallEnded struct {
	CallID domain.CallID     `json:"call_id"`
	To     domain.IdentityID `json:"-"`
	Reason string            `json:"reason,omitempty"`
}

func (e CallEnded) Type() string              { return "call-ended" }
func (e CallEnded) Room() domain.RoomID       { return "" }
func (e CallEnded) Target() domain.IdentityID { return e.To }

// ErrorNotice is pushed to the originating connection only. It never
// travels through the fan-out worker.
type ErrorNotice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

func (e ErrorNotice) Type() string        { return "error" }
func (e ErrorNotice) Room() domain.RoomID { return "" }
