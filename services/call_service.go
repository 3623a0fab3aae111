package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
	errs "chat-broker/errors"

	"github.com/google/uuid"
)

type ICallService interface {
	Invite(caller domain.IdentityID, cmd domain.CallUserCommand) (domain.CallID, error)
	Accept(by domain.IdentityID, call domain.CallID) error
	Reject(by domain.IdentityID, call domain.CallID) error
	JoinCallRoom(identity domain.IdentityID, call domain.CallID) error
	RelaySignal(sender domain.IdentityID, call domain.CallID, payload json.RawMessage) error
	End(by domain.IdentityID, call domain.CallID) error
	EndAllFor(identity domain.IdentityID)
}

type callEntry struct {
	session domain.CallSession
	joined  map[domain.IdentityID]struct{}
}

// CallService manages the call signaling lifecycle inside dedicated call
// rooms. Payloads are relayed opaquely; the broker never interprets
// offer/answer/candidate data.
type CallService struct {
	mu       sync.Mutex
	log      *slog.Logger
	presence contract.IPresence
	users    contract.IUserRepository
	events   chan<- event.DomainEvent
	calls    map[domain.CallID]*callEntry
}

func NewCallService(log *slog.Logger, presence contract.IPresence,
	users contract.IUserRepository, events chan<- event.DomainEvent) *CallService {
	return &CallService{
		log:      log,
		presence: presence,
		users:    users,
		events:   events,
		calls:    make(map[domain.CallID]*callEntry),
	}
}

// Invite creates a ringing session and delivers the invitation to the
// callee's canonical connection only, with an acknowledgment to the caller.
func (s *CallService) Invite(caller domain.IdentityID, cmd domain.CallUserCommand) (domain.CallID, error) {
	if !cmd.Kind.Valid() {
		return "", fmt.Errorf("invalid call kind %q", cmd.Kind)
	}
	if !s.presence.IsOnline(cmd.Callee) {
		return "", fmt.Errorf("%w: %s is offline", errs.ErrRecipientUnavailable, cmd.Callee)
	}
	enabled, err := s.users.CallKindEnabled(string(cmd.Callee), cmd.Kind)
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", fmt.Errorf("%w: %s calls disabled for %s",
			errs.ErrRecipientUnavailable, cmd.Kind, cmd.Callee)
	}

	session := domain.CallSession{
		ID:        domain.CallID(uuid.NewString()),
		CallerID:  caller,
		CalleeID:  cmd.Callee,
		Kind:      cmd.Kind,
		State:     domain.CallRinging,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.calls[session.ID] = &callEntry{
		session: session,
		joined:  make(map[domain.IdentityID]struct{}),
	}
	s.mu.Unlock()

	s.events <- event.IncomingCall{CallID: session.ID, Caller: caller, Callee: cmd.Callee, Kind: cmd.Kind}
	s.events <- event.CallRinging{CallID: session.ID, Caller: caller, Callee: cmd.Callee}
	s.log.Info("Call invitation delivered",
		"call", session.ID, "caller", caller, "callee", cmd.Callee, "kind", cmd.Kind)
	return session.ID, nil
}

func (s *CallService) Accept(by domain.IdentityID, call domain.CallID) error {
	s.mu.Lock()
	entry, ok := s.calls[call]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrCallNotFound, call)
	}
	if entry.session.State != domain.CallRinging || by != entry.session.CalleeID {
		s.mu.Unlock()
		return fmt.Errorf("%w: accept from %s in state %s",
			errs.ErrInvalidCallState, by, entry.session.State)
	}
	entry.session.State = domain.CallAccepted
	caller, callee := entry.session.CallerID, entry.session.CalleeID
	s.mu.Unlock()

	s.events <- event.CallAccepted{CallID: call, To: caller}
	s.events <- event.CallAccepted{CallID: call, To: callee}
	return nil
}

func (s *CallService) Reject(by domain.IdentityID, call domain.CallID) error {
	s.mu.Lock()
	entry, ok := s.calls[call]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrCallNotFound, call)
	}
	if entry.session.State != domain.CallRinging || by != entry.session.CalleeID {
		s.mu.Unlock()
		return fmt.Errorf("%w: reject from %s in state %s",
			errs.ErrInvalidCallState, by, entry.session.State)
	}
	entry.session.State = domain.CallRejected
	caller := entry.session.CallerID
	delete(s.calls, call)
	s.mu.Unlock()

	s.events <- event.CallRejected{CallID: call, To: caller}
	s.events <- event.CallRejected{CallID: call, To: by}
	return nil
}

// JoinCallRoom adds the identity to the call's signaling room, distinct
// from any chat room. Required before signal relay.
func (s *CallService) JoinCallRoom(identity domain.IdentityID, call domain.CallID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.calls[call]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrCallNotFound, call)
	}
	if !entry.session.Involves(identity) {
		return fmt.Errorf("%w: %s not a party of %s", errs.ErrInvalidCallState, identity, call)
	}
	entry.joined[identity] = struct{}{}
	if entry.session.State == domain.CallAccepted && len(entry.joined) == 2 {
		entry.session.State = domain.CallActive
	}
	return nil
}

func (s *CallService) RelaySignal(sender domain.IdentityID, call domain.CallID, payload json.RawMessage) error {
	s.mu.Lock()
	entry, ok := s.calls[call]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrCallNotFound, call)
	}
	state := entry.session.State
	if state != domain.CallAccepted && state != domain.CallActive {
		s.mu.Unlock()
		return fmt.Errorf("%w: signal in state %s", errs.ErrInvalidCallState, state)
	}
	if _, joined := entry.joined[sender]; !joined {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s has not joined the call room", errs.ErrInvalidCallState, sender)
	}
	other := entry.session.OtherParty(sender)
	s.mu.Unlock()

	if other == "" {
		return fmt.Errorf("%w: %s not a party of %s", errs.ErrInvalidCallState, sender, call)
	}
	s.events <- event.CallSignal{CallID: call, Sender: sender, To: other, Payload: payload}
	return nil
}

func (s *CallService) End(by domain.IdentityID, call domain.CallID) error {
	return s.end(by, call, "")
}

// EndAllFor ends every non-terminal call referencing the identity. The
// orchestrator triggers it when the identity's connection drops.
func (s *CallService) EndAllFor(identity domain.IdentityID) {
	s.mu.Lock()
	var affected []domain.CallID
	for id, entry := range s.calls {
		if entry.session.Involves(identity) && !entry.session.State.Terminal() {
			affected = append(affected, id)
		}
	}
	s.mu.Unlock()

	for _, id := range affected {
		if err := s.end(identity, id, "participant disconnected"); err != nil {
			s.log.Debug("Call already gone during disconnect teardown", "call", id)
		}
	}
}

func (s *CallService) end(by domain.IdentityID, call domain.CallID, reason string) error {
	s.mu.Lock()
	entry, ok := s.calls[call]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrCallNotFound, call)
	}
	if entry.session.State.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("%w: already %s", errs.ErrInvalidCallState, entry.session.State)
	}
	if !entry.session.Involves(by) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s not a party of %s", errs.ErrInvalidCallState, by, call)
	}
	entry.session.State = domain.CallEnded
	caller, callee := entry.session.CallerID, entry.session.CalleeID
	delete(s.calls, call)
	s.mu.Unlock()

	s.events <- event.CallEnded{CallID: call, To: caller, Reason: reason}
	s.events <- event.CallEnded{CallID: call, To: callee, Reason: reason}
	return nil
}
