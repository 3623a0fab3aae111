package services

import (
	"encoding/json"
	"log/slog"
	"testing"

	"chat-broker/domain"
	"chat-broker/domain/event"
	errs "chat-broker/errors"
	"chat-broker/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type callFixture struct {
	presence *mocks.MockIPresence
	users    *mocks.MockIUserRepository
	events   chan event.DomainEvent
	service  *CallService
}

func newCallFixture(t *testing.T) callFixture {
	ctrl := gomock.NewController(t)
	f := callFixture{
		presence: mocks.NewMockIPresence(ctrl),
		users:    mocks.NewMockIUserRepository(ctrl),
		events:   make(chan event.DomainEvent, 16),
	}
	f.service = NewCallService(logs.GetLoggerFromLevel(slog.LevelDebug),
		f.presence, f.users, f.events)
	return f
}

func (f callFixture) ring(t *testing.T) domain.CallID {
	t.Helper()
	f.presence.EXPECT().IsOnline(domain.IdentityID("bob")).Return(true)
	f.users.EXPECT().CallKindEnabled("bob", domain.CallKindVoice).Return(true, nil)
	call, err := f.service.Invite("alice", domain.CallUserCommand{Callee: "bob", Kind: domain.CallKindVoice})
	require.NoError(t, err)
	// Drain the invitation and the ringing ack
	<-f.events
	<-f.events
	return call
}

func TestCallService_Invite_DeliversInvitationAndAck(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)

	f.presence.EXPECT().IsOnline(domain.IdentityID("bob")).Return(true)
	f.users.EXPECT().CallKindEnabled("bob", domain.CallKindVideo).Return(true, nil)

	call, err := f.service.Invite("alice", domain.CallUserCommand{Callee: "bob", Kind: domain.CallKindVideo})
	req.NoError(err)

	incoming := (<-f.events).(event.IncomingCall)
	req.Equal(call, incoming.CallID)
	req.Equal(domain.IdentityID("bob"), incoming.Target())

	ringing := (<-f.events).(event.CallRinging)
	req.Equal(domain.IdentityID("alice"), ringing.Target())
}

func TestCallService_Invite_OfflineCallee(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)

	f.presence.EXPECT().IsOnline(domain.IdentityID("bob")).Return(false)

	_, err := f.service.Invite("alice", domain.CallUserCommand{Callee: "bob", Kind: domain.CallKindVoice})
	req.ErrorIs(err, errs.ErrRecipientUnavailable)
	req.Empty(f.events)
}

func TestCallService_Invite_CallKindDisabled(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)

	f.presence.EXPECT().IsOnline(domain.IdentityID("bob")).Return(true)
	f.users.EXPECT().CallKindEnabled("bob", domain.CallKindVideo).Return(false, nil)

	_, err := f.service.Invite("alice", domain.CallUserCommand{Callee: "bob", Kind: domain.CallKindVideo})
	req.ErrorIs(err, errs.ErrRecipientUnavailable)
}

func TestCallService_Accept_OnlyCallee(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	call := f.ring(t)

	// Given the caller tries to accept their own call
	err := f.service.Accept("alice", call)
	req.ErrorIs(err, errs.ErrInvalidCallState)

	// When the callee accepts
	req.NoError(f.service.Accept("bob", call))

	// Then both parties are told
	req.Equal("call-accepted", (<-f.events).Type())
	req.Equal("call-accepted", (<-f.events).Type())

	// And a second accept is invalid
	req.ErrorIs(f.service.Accept("bob", call), errs.ErrInvalidCallState)
}

func TestCallService_Reject_TerminatesCall(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	call := f.ring(t)

	req.NoError(f.service.Reject("bob", call))
	req.Equal("call-rejected", (<-f.events).Type())
	req.Equal("call-rejected", (<-f.events).Type())

	// The call is gone afterwards
	req.ErrorIs(f.service.Accept("bob", call), errs.ErrCallNotFound)
}

func TestCallService_RelaySignal_RequiresJoinedParties(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	call := f.ring(t)
	payload := json.RawMessage(`{"sdp":"offer"}`)

	// Given a ringing call, signals are refused
	err := f.service.RelaySignal("alice", call, payload)
	req.ErrorIs(err, errs.ErrInvalidCallState)

	// When accepted and both have joined the call room
	req.NoError(f.service.Accept("bob", call))
	<-f.events
	<-f.events
	req.NoError(f.service.JoinCallRoom("alice", call))
	req.NoError(f.service.JoinCallRoom("bob", call))

	// Then a signal from alice reaches bob untouched
	req.NoError(f.service.RelaySignal("alice", call, payload))
	signal := (<-f.events).(event.CallSignal)
	req.Equal(domain.IdentityID("bob"), signal.Target())
	req.JSONEq(`{"sdp":"offer"}`, string(signal.Payload))
}

func TestCallService_JoinCallRoom_OutsiderRefused(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	call := f.ring(t)

	req.ErrorIs(f.service.JoinCallRoom("mallory", call), errs.ErrInvalidCallState)
}

func TestCallService_End_NotifiesBothParties(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	call := f.ring(t)

	req.NoError(f.service.End("alice", call))
	req.Equal("call-ended", (<-f.events).Type())
	req.Equal("call-ended", (<-f.events).Type())

	// Ending twice reports the call as gone
	req.ErrorIs(f.service.End("alice", call), errs.ErrCallNotFound)
}

func TestCallService_EndAllFor_DisconnectTeardown(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	call := f.ring(t)

	// When alice's connection drops
	f.service.EndAllFor("alice")

	// Then her live call is terminated with a reason
	ended := (<-f.events).(event.CallEnded)
	req.Equal(call, ended.CallID)
	req.Equal("participant disconnected", ended.Reason)
	<-f.events
}
