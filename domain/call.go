package domain

import "time"

type CallID string

type CallKind string

const (
	CallKindVoice CallKind = "voice"
	CallKindVideo CallKind = "video"
)

func (k CallKind) Valid() bool {
	return k == CallKindVoice || k == CallKindVideo
}

type CallState string

const (
	CallRinging  CallState = "ringing"
	CallAccepted CallState = "accepted"
	CallActive   CallState = "active"
	CallRejected CallState = "rejected"
	CallEnded    CallState = "ended"
)

func (s CallState) Terminal() bool {
	return s == CallRejected || s == CallEnded
}

// CallSession is an ephemeral signaling-only room owned jointly by caller
// and callee for the call's duration. The broker never inspects signaling
// payloads; it only relays them between the two parties.
type CallSession struct {
	ID        CallID
	CallerID  IdentityID
	CalleeID  IdentityID
	Kind      CallKind
	State     CallState
	StartedAt time.Time
}

// OtherParty returns the opposite participant, or empty if id is neither.
func (c *CallSession) OtherParty(id IdentityID) IdentityID {
	switch id {
	case c.CallerID:
		return c.CalleeID
	case c.CalleeID:
		return c.CallerID
	}
	return ""
}

func (c *CallSession) Involves(id IdentityID) bool {
	return id == c.CallerID || id == c.CalleeID
}
