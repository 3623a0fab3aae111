package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
	errs "chat-broker/errors"
	"chat-broker/services"
)

// Envelope is the wire format shared by both directions of a connection.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Orchestrator owns the connection lifecycle and dispatches every inbound
// envelope to the component that handles it. Failures never travel through
// the fan-out pipeline; they are pushed straight back to the originating
// sink as error notices.
type Orchestrator struct {
	log        *slog.Logger
	presence   contract.IPresence
	membership contract.IMembership
	chat       services.IChatService
	calls      services.ICallService
	payments   services.IPaymentService
}

func NewOrchestrator(log *slog.Logger, presence contract.IPresence,
	membership contract.IMembership, chat services.IChatService,
	calls services.ICallService, payments services.IPaymentService) *Orchestrator {
	return &Orchestrator{
		log:        log,
		presence:   presence,
		membership: membership,
		chat:       chat,
		calls:      calls,
		payments:   payments,
	}
}

// Connect registers the connection as the identity's canonical one and
// returns the connection state tracked for teardown.
func (o *Orchestrator) Connect(identity domain.IdentityID, role domain.Role,
	connID domain.ConnectionID, sink contract.EventSink) *domain.Connection {
	conn := domain.NewConnection(connID, identity, role)
	o.presence.Register(identity, connID, sink)
	o.log.Info("Connection established", "identity", identity, "connection", connID)
	return conn
}

// Disconnect tears down everything the connection had: room membership,
// live calls, presence. Safe to call once per connection.
func (o *Orchestrator) Disconnect(conn *domain.Connection) {
	for _, room := range conn.JoinedRooms() {
		o.membership.Leave(room, conn.Identity)
		conn.ForgetRoom(room)
	}
	o.calls.EndAllFor(conn.Identity)
	o.presence.Unregister(conn.Identity, conn.ID)
	o.log.Info("Connection closed", "identity", conn.Identity, "connection", conn.ID)
}

// HandleEvent decodes and dispatches one inbound envelope. A handler error
// is reported to the connection's own sink, never to other members.
func (o *Orchestrator) HandleEvent(ctx context.Context, conn *domain.Connection,
	sink contract.EventSink, env Envelope) {
	o.presence.Refresh(conn.Identity, conn.ID)

	if err := o.dispatch(ctx, conn, env); err != nil {
		o.log.Debug("Rejected inbound event",
			"identity", conn.Identity, "type", env.Type, "error", err)
		notice := event.ErrorNotice{
			Kind:    errs.Kind(err),
			Message: err.Error(),
			Event:   env.Type,
		}
		if err := sink.Consume(ctx, notice); err != nil {
			o.log.Warn("Failed to deliver error notice", "identity", conn.Identity)
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, conn *domain.Connection, env Envelope) error {
	switch env.Type {
	case "join-room":
		var cmd domain.JoinRoomCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		o.membership.Join(cmd.Room, conn.Identity)
		conn.TrackRoom(cmd.Room)
		return nil

	case "leave-room":
		var cmd domain.LeaveRoomCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		o.membership.Leave(cmd.Room, conn.Identity)
		conn.ForgetRoom(cmd.Room)
		return nil

	case "send-message":
		var cmd domain.SendMessageCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		_, err := o.chat.Send(ctx, conn.Identity, cmd)
		return err

	case "typing":
		var cmd domain.TypingCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.chat.SetTyping(conn.Identity, cmd)

	case "read-receipt":
		var cmd domain.ReadReceiptCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.chat.MarkRead(conn.Identity, cmd)

	case "request-paid-chat":
		var cmd domain.RequestPaidChatCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		_, err := o.payments.RequestPaidChat(ctx, conn.Identity, cmd)
		return err

	case "accept-chat-request":
		var cmd domain.AcceptChatRequestCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		_, err := o.payments.AcceptChatRequest(ctx, conn.Identity, cmd.RequestID)
		return err

	case "extend-chat":
		var cmd domain.ExtendChatCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		_, err := o.payments.ExtendChat(ctx, conn.Identity, cmd)
		return err

	case "end-chat":
		var cmd domain.EndChatCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.chat.EndChat(cmd.Room, conn.Identity)

	case "call-user":
		var cmd domain.CallUserCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		_, err := o.calls.Invite(conn.Identity, cmd)
		return err

	case "accept-call":
		var cmd domain.AcceptCallCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.calls.Accept(conn.Identity, cmd.Call)

	case "reject-call":
		var cmd domain.RejectCallCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.calls.Reject(conn.Identity, cmd.Call)

	case "join-call":
		var cmd domain.JoinCallCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.calls.JoinCallRoom(conn.Identity, cmd.Call)

	case "call-signal":
		var cmd domain.CallSignalCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.calls.RelaySignal(conn.Identity, cmd.Call, cmd.Payload)

	case "end-call":
		var cmd domain.EndCallCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		return o.calls.End(conn.Identity, cmd.Call)

	case "status-update":
		var cmd domain.StatusUpdateCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnknownEvent, err)
		}
		if !o.presence.SetStatus(conn.Identity, cmd.Status, cmd.CustomStatus) {
			return fmt.Errorf("%w: unknown identity %s", errs.ErrAuthentication, conn.Identity)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", errs.ErrUnknownEvent, env.Type)
	}
}
