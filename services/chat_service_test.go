package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
	errs "chat-broker/errors"
	"chat-broker/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type chatFixture struct {
	membership *mocks.MockIMembership
	billing    *mocks.MockIBilling
	rooms      *mocks.MockIRoomRepository
	messages   *mocks.MockIMessageRepository
	receipts   *mocks.MockIReceiptRepository
	rawEvents  chan event.DomainEvent
	events     chan event.DomainEvent
	service    *ChatService
}

func newChatFixture(t *testing.T) chatFixture {
	ctrl := gomock.NewController(t)
	f := chatFixture{
		membership: mocks.NewMockIMembership(ctrl),
		billing:    mocks.NewMockIBilling(ctrl),
		rooms:      mocks.NewMockIRoomRepository(ctrl),
		messages:   mocks.NewMockIMessageRepository(ctrl),
		receipts:   mocks.NewMockIReceiptRepository(ctrl),
		rawEvents:  make(chan event.DomainEvent, 8),
		events:     make(chan event.DomainEvent, 8),
	}
	f.service = NewChatService(logs.GetLoggerFromLevel(slog.LevelDebug),
		f.membership, f.billing, f.rooms, f.messages, f.receipts,
		f.rawEvents, f.events, 1024)
	return f
}

func freeRoom(id domain.RoomID) domain.ChatRoom {
	return domain.ChatRoom{ID: id, Kind: domain.RoomKindFree}
}

func paidRoom(id domain.RoomID) domain.ChatRoom {
	return domain.ChatRoom{ID: id, Kind: domain.RoomKindPaid}
}

func TestChatService_Send_PersistsThenEmits(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("room-1")

	// Given a member of a free room
	f.rooms.EXPECT().GetRoom(room).Return(freeRoom(room), true, nil)
	f.membership.EXPECT().IsMember(room, domain.IdentityID("alice")).Return(true)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(uint64(7), nil)
	f.rooms.EXPECT().SetLastMessage(room, gomock.Any(), gomock.Any()).Return(nil)

	// When a message is sent
	msg, err := f.service.Send(context.Background(), "alice",
		domain.SendMessageCommand{Room: room, Content: "hello"})

	// Then it carries the storage sequence and the raw event follows
	req.NoError(err)
	req.Equal(uint64(7), msg.Seq)
	posted := (<-f.rawEvents).(event.MessagePosted)
	req.Equal(uint64(7), posted.Seq)
	req.Equal("hello", posted.Content)
}

func TestChatService_Send_RejectsNonMember(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("room-1")

	f.rooms.EXPECT().GetRoom(room).Return(freeRoom(room), true, nil)
	f.membership.EXPECT().IsMember(room, domain.IdentityID("mallory")).Return(false)

	_, err := f.service.Send(context.Background(), "mallory",
		domain.SendMessageCommand{Room: room, Content: "hi"})

	// Then nothing is persisted nor emitted
	req.ErrorIs(err, errs.ErrNotAMember)
	req.Empty(f.rawEvents)
}

func TestChatService_Send_RejectsUnknownRoom(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	f.rooms.EXPECT().GetRoom(domain.RoomID("ghost")).Return(domain.ChatRoom{}, false, nil)

	_, err := f.service.Send(context.Background(), "alice",
		domain.SendMessageCommand{Room: "ghost", Content: "hi"})
	req.ErrorIs(err, errs.ErrRoomNotFound)
}

func TestChatService_Send_PaidRoomWithNoBudget(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("paid-1")

	// Given an expired paid room
	f.rooms.EXPECT().GetRoom(room).Return(paidRoom(room), true, nil)
	f.membership.EXPECT().IsMember(room, domain.IdentityID("alice")).Return(true)
	f.billing.EXPECT().RemainingSeconds(room).Return(0)

	// When a message arrives after expiry
	_, err := f.service.Send(context.Background(), "alice",
		domain.SendMessageCommand{Room: room, Content: "too late"})

	// Then it is neither persisted nor fanned out
	req.ErrorIs(err, errs.ErrTimeExpired)
	req.Empty(f.rawEvents)
}

func TestChatService_Send_PaidRoomWithBudget(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("paid-1")

	f.rooms.EXPECT().GetRoom(room).Return(paidRoom(room), true, nil)
	f.membership.EXPECT().IsMember(room, domain.IdentityID("alice")).Return(true)
	f.billing.EXPECT().RemainingSeconds(room).Return(42)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(uint64(1), nil)
	f.rooms.EXPECT().SetLastMessage(room, gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.service.Send(context.Background(), "alice",
		domain.SendMessageCommand{Room: room, Content: "still time"})
	req.NoError(err)
}

func TestChatService_Send_ConcurrentSendersKeepCommitOrder(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("room-1")
	const senders = 4

	f.rooms.EXPECT().GetRoom(room).Return(freeRoom(room), true, nil).Times(senders)
	f.membership.EXPECT().IsMember(room, gomock.Any()).Return(true).Times(senders)
	f.rooms.EXPECT().SetLastMessage(room, gomock.Any(), gomock.Any()).Return(nil).Times(senders)
	// Storage hands out sequences in commit order
	var seq uint64
	f.messages.EXPECT().StoreMessage(gomock.Any()).Times(senders).
		DoAndReturn(func(domain.Message) (uint64, error) {
			seq++
			return seq, nil
		})

	// When several members send into the same room at once
	var wg sync.WaitGroup
	sendErrs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(sender domain.IdentityID) {
			defer wg.Done()
			_, err := f.service.Send(context.Background(), sender,
				domain.SendMessageCommand{Room: room, Content: "racing"})
			sendErrs <- err
		}(domain.IdentityID(fmt.Sprintf("sender-%d", i)))
	}
	wg.Wait()
	close(sendErrs)
	for err := range sendErrs {
		req.NoError(err)
	}

	// Then the raw events leave the pipeline in sequence order
	var last uint64
	for i := 0; i < senders; i++ {
		posted := (<-f.rawEvents).(event.MessagePosted)
		req.Greater(posted.Seq, last)
		last = posted.Seq
	}
}

func TestChatService_Send_EmptyMessage(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, err := f.service.Send(context.Background(), "alice",
		domain.SendMessageCommand{Room: "room-1"})
	req.Error(err)
}

func TestChatService_SetTyping_NeverPersists(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("room-1")

	f.membership.EXPECT().IsMember(room, domain.IdentityID("alice")).Return(true)

	req.NoError(f.service.SetTyping("alice", domain.TypingCommand{Room: room, IsTyping: true}))

	evt := (<-f.events).(event.TypingIndicator)
	req.True(evt.IsTyping)
	req.Equal(domain.IdentityID("alice"), evt.Identity)
}

func TestChatService_MarkRead(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("room-1")

	f.membership.EXPECT().IsMember(room, domain.IdentityID("bob")).Return(true)
	f.receipts.EXPECT().MarkRead(room, "msg-1", domain.IdentityID("bob"), gomock.Any()).Return(nil)

	req.NoError(f.service.MarkRead("bob", domain.ReadReceiptCommand{Room: room, MessageID: "msg-1"}))

	evt := (<-f.events).(event.MessageRead)
	req.Equal("msg-1", evt.MessageID)
	req.WithinDuration(time.Now().UTC(), evt.At, time.Second)
}

func TestChatService_EndChat(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.RoomID("paid-1")

	f.membership.EXPECT().IsMember(room, domain.IdentityID("alice")).Return(true)
	f.billing.EXPECT().End(room).Return(true)

	req.NoError(f.service.EndChat(room, "alice"))

	evt := (<-f.events).(event.ChatEnded)
	req.Equal(domain.IdentityID("alice"), evt.EndedBy)
}
