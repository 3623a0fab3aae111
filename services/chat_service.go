package services

import (
	"context"
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

type IChatService interface {
	Send(ctx context.Context, sender domain.IdentityID, cmd domain.SendMessageCommand) (domain.Message, error)
	SetTyping(sender domain.IdentityID, cmd domain.TypingCommand) error
	MarkRead(reader domain.IdentityID, cmd domain.ReadReceiptCommand) error
	History(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	EndChat(room domain.RoomID, by domain.IdentityID) error
}

// ChatService is the message relay. It validates membership, consults the
// billing engine before admitting paid messages, persists for a durable
// order, and hands the event to the pipeline while still holding the room
// lock — so fan-out order always equals storage commit order, even under
// concurrent senders.
type ChatService struct {
	log        *slog.Logger
	membership contract.IMembership
	billing    contract.IBilling
	rooms      contract.IRoomRepository
	messages   contract.IMessageRepository
	receipts   contract.IReceiptRepository
	rawEvents  chan<- event.DomainEvent
	events     chan<- event.DomainEvent

	mu         sync.Mutex
	roomLocks  map[domain.RoomID]*sync.Mutex
	maxContent int
}

func NewChatService(log *slog.Logger, membership contract.IMembership,
	billing contract.IBilling, rooms contract.IRoomRepository,
	messages contract.IMessageRepository, receipts contract.IReceiptRepository,
	rawEvents, events chan<- event.DomainEvent, maxContent int) *ChatService {
	return &ChatService{
		log:        log,
		membership: membership,
		billing:    billing,
		rooms:      rooms,
		messages:   messages,
		receipts:   receipts,
		rawEvents:  rawEvents,
		events:     events,
		roomLocks:  make(map[domain.RoomID]*sync.Mutex),
		maxContent: maxContent,
	}
}

func (s *ChatService) Send(ctx context.Context, sender domain.IdentityID, cmd domain.SendMessageCommand) (domain.Message, error) {
	if cmd.Content == "" && cmd.MediaRef == "" {
		return domain.Message{}, fmt.Errorf("empty message")
	}
	if s.maxContent > 0 && len(cmd.Content) > s.maxContent {
		return domain.Message{}, fmt.Errorf("content exceeds %d bytes", s.maxContent)
	}

	room, found, err := s.rooms.GetRoom(cmd.Room)
	if err != nil {
		return domain.Message{}, err
	}
	if !found {
		return domain.Message{}, fmt.Errorf("%w: %s", errs.ErrRoomNotFound, cmd.Room)
	}
	if !s.membership.IsMember(cmd.Room, sender) {
		return domain.Message{}, fmt.Errorf("%w: %s in %s", errs.ErrNotAMember, sender, cmd.Room)
	}

	lock := s.lockFor(cmd.Room)
	lock.Lock()
	defer lock.Unlock()

	// The remaining-seconds counter is the single source of truth for paid
	// rooms; a zero budget message is neither persisted nor fanned out.
	if room.Kind == domain.RoomKindPaid && s.billing.RemainingSeconds(cmd.Room) == 0 {
		return domain.Message{}, fmt.Errorf("%w: room %s", errs.ErrTimeExpired, cmd.Room)
	}

	kind := cmd.Kind
	if kind == "" {
		kind = domain.MessageKindText
	}
	message := domain.Message{
		ID:        uuid.New(),
		Room:      cmd.Room,
		SenderID:  sender,
		Kind:      kind,
		Content:   cmd.Content,
		MediaRef:  cmd.MediaRef,
		CreatedAt: time.Now().UTC(),
	}
	seq, err := s.messages.StoreMessage(message)
	if err != nil {
		return domain.Message{}, err
	}
	message.Seq = seq

	if err := s.rooms.SetLastMessage(cmd.Room, message.ID.String(), message.CreatedAt); err != nil {
		s.log.Warn("Failed to update last message reference",
			"room", cmd.Room, "error", err)
	}

	// Blocking send under the room lock: commit order is pipeline order.
	select {
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	case s.rawEvents <- event.MessagePosted{
		ID:       message.ID,
		RoomID:   message.Room,
		Author:   message.SenderID,
		Kind:     message.Kind,
		Content:  message.Content,
		MediaRef: message.MediaRef,
		Seq:      message.Seq,
		At:       message.CreatedAt,
	}:
	}
	return message, nil
}

// SetTyping broadcasts the ephemeral typing state to the other members.
// It is never persisted and may be dropped under pressure.
func (s *ChatService) SetTyping(sender domain.IdentityID, cmd domain.TypingCommand) error {
	if !s.membership.IsMember(cmd.Room, sender) {
		return fmt.Errorf("%w: %s in %s", errs.ErrNotAMember, sender, cmd.Room)
	}
	select {
	case s.events <- event.TypingIndicator{RoomID: cmd.Room, Identity: sender, IsTyping: cmd.IsTyping}:
	default:
		s.log.Debug("Dropping typing indicator, channel full", "room", cmd.Room)
	}
	return nil
}

func (s *ChatService) MarkRead(reader domain.IdentityID, cmd domain.ReadReceiptCommand) error {
	if !s.membership.IsMember(cmd.Room, reader) {
		return fmt.Errorf("%w: %s in %s", errs.ErrNotAMember, reader, cmd.Room)
	}
	at := time.Now().UTC()
	if err := s.receipts.MarkRead(cmd.Room, cmd.MessageID, reader, at); err != nil {
		return err
	}
	select {
	case s.events <- event.MessageRead{RoomID: cmd.Room, MessageID: cmd.MessageID, Reader: reader, At: at}:
	default:
		s.log.Debug("Dropping read receipt event, channel full", "room", cmd.Room)
	}
	return nil
}

func (s *ChatService) History(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	return s.messages.GetMessages(room, cursor)
}

// EndChat is the explicit termination path for a paid chat: the countdown
// is freed and members are told the chat is over.
func (s *ChatService) EndChat(room domain.RoomID, by domain.IdentityID) error {
	if !s.membership.IsMember(room, by) {
		return fmt.Errorf("%w: %s in %s", errs.ErrNotAMember, by, room)
	}
	s.billing.End(room)
	s.events <- event.ChatEnded{RoomID: room, EndedBy: by}
	return nil
}

func (s *ChatService) lockFor(room domain.RoomID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roomLocks[room]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[room] = lock
	}
	return lock
}
