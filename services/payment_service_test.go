package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
	errs "chat-broker/errors"
	"chat-broker/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type paymentFixture struct {
	gateway *mocks.MockIPaymentGateway
	billing *mocks.MockIBilling
	rooms   *mocks.MockIRoomRepository
	users   *mocks.MockIUserRepository
	events  chan event.DomainEvent
	service *PaymentService
}

func newPaymentFixture(t *testing.T) paymentFixture {
	ctrl := gomock.NewController(t)
	f := paymentFixture{
		gateway: mocks.NewMockIPaymentGateway(ctrl),
		billing: mocks.NewMockIBilling(ctrl),
		rooms:   mocks.NewMockIRoomRepository(ctrl),
		users:   mocks.NewMockIUserRepository(ctrl),
		events:  make(chan event.DomainEvent, 16),
	}
	f.service = NewPaymentService(logs.GetLoggerFromLevel(slog.LevelDebug),
		f.gateway, f.billing, f.rooms, f.users, f.events,
		2, time.Millisecond)
	return f
}

func provider() contract.User {
	return contract.User{ID: "bob", Role: domain.RoleProvider, RatePerMinute: 150}
}

func TestPaymentService_RequestPaidChat_ComputesCost(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)

	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 10})
	req.NoError(err)
	req.NotEmpty(requestID)

	// The provider gets the request with the quoted cost
	requested := (<-f.events).(event.ChatRequested)
	req.Equal(domain.IdentityID("bob"), requested.Target())
	req.Equal(1500, requested.CostCents)
	req.Equal(10, requested.DurationMinutes)
}

func TestPaymentService_RequestPaidChat_RejectsNonProvider(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("carol").
		Return(contract.User{ID: "carol", Role: domain.RoleRequester}, nil)

	_, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "carol", DurationMinutes: 5})
	req.ErrorIs(err, errs.ErrUserNotFound)
}

func TestPaymentService_AcceptChatRequest_FullFlow(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 2})
	req.NoError(err)
	<-f.events

	// Given a gateway that authorizes the requester's payment
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r contract.AuthorizationRequest) (domain.PaymentAuthorization, error) {
			req.Equal(domain.AuthorizationInitial, r.Kind)
			req.Equal(domain.IdentityID("alice"), r.Identity)
			req.Equal(120, r.Seconds)
			return domain.PaymentAuthorization{
				ID: "auth-1", Kind: r.Kind, Identity: r.Identity,
				Room: r.Room, AuthorizedSeconds: r.Seconds,
			}, nil
		})
	f.billing.EXPECT().StartSession(gomock.Any()).Return(nil)
	f.rooms.EXPECT().CreateRoom(gomock.Any()).
		DoAndReturn(func(room domain.ChatRoom) error {
			req.Equal(domain.RoomKindPaid, room.Kind)
			req.ElementsMatch([]domain.IdentityID{"alice", "bob"}, room.Participants)
			return nil
		})

	// When the provider accepts
	roomID, err := f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.NoError(err)
	req.NotEmpty(roomID)

	// Then both parties learn the chat started with the full budget
	first := (<-f.events).(event.ChatStarted)
	second := (<-f.events).(event.ChatStarted)
	req.Equal(120, first.AuthorizedSeconds)
	req.ElementsMatch(
		[]domain.IdentityID{"alice", "bob"},
		[]domain.IdentityID{first.To, second.To})
}

func TestPaymentService_AcceptChatRequest_WrongProvider(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 2})
	req.NoError(err)
	<-f.events

	_, err = f.service.AcceptChatRequest(context.Background(), "mallory", requestID)
	req.ErrorIs(err, errs.ErrRequestNotFound)
}

func TestPaymentService_AcceptChatRequest_ConcurrentAcceptAuthorizesOnce(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 2})
	req.NoError(err)
	<-f.events

	// Given a gateway call held open while a second accept comes in
	entered := make(chan struct{})
	release := make(chan struct{})
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Times(1).
		DoAndReturn(func(_ context.Context, r contract.AuthorizationRequest) (domain.PaymentAuthorization, error) {
			close(entered)
			<-release
			return domain.PaymentAuthorization{
				ID: "auth-1", Kind: r.Kind, Identity: r.Identity,
				Room: r.Room, AuthorizedSeconds: r.Seconds,
			}, nil
		})
	f.billing.EXPECT().StartSession(gomock.Any()).Return(nil).Times(1)
	f.rooms.EXPECT().CreateRoom(gomock.Any()).Return(nil).Times(1)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.service.AcceptChatRequest(context.Background(), "bob", requestID)
		firstDone <- err
	}()
	<-entered

	// When a second accept lands mid-authorization, it is turned away
	_, err = f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.ErrorIs(err, errs.ErrRequestNotFound)

	// Then the first accept completes alone: one authorization, one
	// session, one room
	close(release)
	req.NoError(<-firstDone)
}

func TestPaymentService_AcceptChatRequest_RecoversAfterActivationFailure(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 2})
	req.NoError(err)
	<-f.events

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, r contract.AuthorizationRequest) (domain.PaymentAuthorization, error) {
			return domain.PaymentAuthorization{
				ID: "auth-1", Kind: r.Kind, Identity: r.Identity,
				Room: r.Room, AuthorizedSeconds: r.Seconds,
			}, nil
		})
	gomock.InOrder(
		f.billing.EXPECT().StartSession(gomock.Any()).Return(errs.ErrDuplicateSession),
		f.billing.EXPECT().StartSession(gomock.Any()).Return(nil),
	)
	f.rooms.EXPECT().CreateRoom(gomock.Any()).Return(nil)

	// Given a first accept that fails after authorization
	_, err = f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.ErrorIs(err, errs.ErrDuplicateSession)

	// Then the request is not wedged: the provider can accept again
	roomID, err := f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.NoError(err)
	req.NotEmpty(roomID)
}

func TestPaymentService_AcceptChatRequest_GatewayRefusal(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 2})
	req.NoError(err)
	<-f.events

	// Given a definite refusal, no retry happens
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		Return(domain.PaymentAuthorization{}, errs.ErrPaymentNotAuthorized).Times(1)

	_, err = f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.ErrorIs(err, errs.ErrPaymentNotAuthorized)
	req.Empty(f.events)
}

func TestPaymentService_AcceptChatRequest_RetriesTransientFailures(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 1})
	req.NoError(err)
	<-f.events

	// Given a gateway that fails twice then succeeds
	gomock.InOrder(
		f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
			Return(domain.PaymentAuthorization{}, errs.ErrUpstreamUnavailable),
		f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
			Return(domain.PaymentAuthorization{}, errs.ErrUpstreamUnavailable),
		f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
			Return(domain.PaymentAuthorization{
				ID: "auth-1", Kind: domain.AuthorizationInitial,
				Identity: "alice", AuthorizedSeconds: 60,
			}, nil),
	)
	f.billing.EXPECT().StartSession(gomock.Any()).Return(nil)
	f.rooms.EXPECT().CreateRoom(gomock.Any()).Return(nil)

	_, err = f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.NoError(err)
}

func TestPaymentService_AcceptChatRequest_ExhaustedRetries(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)

	f.users.EXPECT().GetUserByID("bob").Return(provider(), nil)
	requestID, err := f.service.RequestPaidChat(context.Background(), "alice",
		domain.RequestPaidChatCommand{Provider: "bob", DurationMinutes: 1})
	req.NoError(err)
	<-f.events

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		Return(domain.PaymentAuthorization{}, errs.ErrUpstreamUnavailable).Times(3)

	_, err = f.service.AcceptChatRequest(context.Background(), "bob", requestID)
	req.ErrorIs(err, errs.ErrUpstreamUnavailable)
}

func TestPaymentService_ExtendChat(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)
	room := domain.RoomID("paid-1")

	f.rooms.EXPECT().GetRoom(room).Return(domain.ChatRoom{
		ID: room, Kind: domain.RoomKindPaid,
		Participants: []domain.IdentityID{"alice", "bob"},
	}, true, nil)
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r contract.AuthorizationRequest) (domain.PaymentAuthorization, error) {
			req.Equal(domain.AuthorizationExtension, r.Kind)
			req.Equal(300, r.Seconds)
			return domain.PaymentAuthorization{
				ID: "auth-2", Kind: r.Kind, Room: room, AuthorizedSeconds: r.Seconds,
			}, nil
		})
	f.billing.EXPECT().Extend(gomock.Any()).Return(420, nil)

	remaining, err := f.service.ExtendChat(context.Background(), "alice",
		domain.ExtendChatCommand{Room: room, Minutes: 5})
	req.NoError(err)
	req.Equal(420, remaining)
}

func TestPaymentService_ExtendChat_NonParticipant(t *testing.T) {
	req := require.New(t)
	f := newPaymentFixture(t)
	room := domain.RoomID("paid-1")

	f.rooms.EXPECT().GetRoom(room).Return(domain.ChatRoom{
		ID: room, Kind: domain.RoomKindPaid,
		Participants: []domain.IdentityID{"alice", "bob"},
	}, true, nil)

	_, err := f.service.ExtendChat(context.Background(), "mallory",
		domain.ExtendChatCommand{Room: room, Minutes: 5})
	req.ErrorIs(err, errs.ErrNotAMember)
}
