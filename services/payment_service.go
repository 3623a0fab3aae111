package services

import (
	"context"
	"errors"
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

// RequestState follows the paid chat request through its lifecycle:
// requested -> awaiting_payment -> accepting -> authorized -> active. The
// countdown itself belongs to the billing engine once active. "accepting"
// claims the request for a single provider acceptance while the gateway
// call is in flight; a failed activation returns it to awaiting_payment.
type RequestState string

const (
	RequestRequested       RequestState = "requested"
	RequestAwaitingPayment RequestState = "awaiting_payment"
	RequestAccepting       RequestState = "accepting"
	RequestAuthorized      RequestState = "authorized"
	RequestActive          RequestState = "active"
)

type chatRequest struct {
	id        string
	requester domain.IdentityID
	provider  domain.IdentityID
	minutes   int
	rate      int
	cost      int
	state     RequestState
}

type IPaymentService interface {
	RequestPaidChat(ctx context.Context, requester domain.IdentityID, cmd domain.RequestPaidChatCommand) (string, error)
	AcceptChatRequest(ctx context.Context, provider domain.IdentityID, requestID string) (domain.RoomID, error)
	ExtendChat(ctx context.Context, identity domain.IdentityID, cmd domain.ExtendChatCommand) (int, error)
}

// PaymentService drives the payment session state machine. It follows a
// strict authorize-then-apply discipline: the billing engine only ever sees
// authorizations the gateway has produced.
type PaymentService struct {
	mu       sync.Mutex
	log      *slog.Logger
	gateway  contract.IPaymentGateway
	billing  contract.IBilling
	rooms    contract.IRoomRepository
	users    contract.IUserRepository
	events   chan<- event.DomainEvent
	requests map[string]*chatRequest

	retries int
	backoff time.Duration
}

func NewPaymentService(log *slog.Logger, gateway contract.IPaymentGateway,
	billing contract.IBilling, rooms contract.IRoomRepository,
	users contract.IUserRepository, events chan<- event.DomainEvent,
	retries int, backoff time.Duration) *PaymentService {
	return &PaymentService{
		log:      log,
		gateway:  gateway,
		billing:  billing,
		rooms:    rooms,
		users:    users,
		events:   events,
		requests: make(map[string]*chatRequest),
		retries:  retries,
		backoff:  backoff,
	}
}

// RequestPaidChat computes the cost from the provider's rate and the asked
// duration, then notifies the provider. No money moves yet.
func (s *PaymentService) RequestPaidChat(ctx context.Context, requester domain.IdentityID, cmd domain.RequestPaidChatCommand) (string, error) {
	if cmd.DurationMinutes <= 0 {
		return "", fmt.Errorf("duration must be positive")
	}
	provider, err := s.users.GetUserByID(string(cmd.Provider))
	if err != nil {
		return "", err
	}
	if provider.Role != domain.RoleProvider {
		return "", fmt.Errorf("%w: %s is not a provider", errs.ErrUserNotFound, cmd.Provider)
	}

	request := &chatRequest{
		id:        uuid.NewString(),
		requester: requester,
		provider:  cmd.Provider,
		minutes:   cmd.DurationMinutes,
		rate:      provider.RatePerMinute,
		cost:      provider.RatePerMinute * cmd.DurationMinutes,
		state:     RequestAwaitingPayment,
	}
	s.mu.Lock()
	s.requests[request.id] = request
	s.mu.Unlock()

	s.events <- event.ChatRequested{
		RequestID:       request.id,
		Requester:       requester,
		Provider:        cmd.Provider,
		DurationMinutes: cmd.DurationMinutes,
		CostCents:       request.cost,
	}
	return request.id, nil
}

// AcceptChatRequest is the provider's acceptance: the requester's payment
// is authorized, the billing session starts, and only then is the paid
// room created and announced to both parties.
func (s *PaymentService) AcceptChatRequest(ctx context.Context, provider domain.IdentityID, requestID string) (domain.RoomID, error) {
	s.mu.Lock()
	request, ok := s.requests[requestID]
	if !ok || request.provider != provider {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", errs.ErrRequestNotFound, requestID)
	}
	if request.state != RequestAwaitingPayment {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: request already %s", errs.ErrRequestNotFound, request.state)
	}
	// Claim the request before releasing the lock: a concurrent accept of
	// the same request must fail here, never reach the gateway and charge
	// the requester a second time.
	request.state = RequestAccepting
	s.mu.Unlock()

	roomID := domain.RoomID(uuid.NewString())
	auth, err := s.authorize(ctx, contract.AuthorizationRequest{
		Kind:            domain.AuthorizationInitial,
		Identity:        request.requester,
		Room:            roomID,
		Seconds:         request.minutes * 60,
		RateCentsPerMin: request.rate,
	})
	if err != nil {
		s.release(request)
		return "", err
	}

	s.mu.Lock()
	request.state = RequestAuthorized
	s.mu.Unlock()

	if err := s.billing.StartSession(auth); err != nil {
		s.release(request)
		return "", err
	}
	room := domain.ChatRoom{
		ID:           roomID,
		Kind:         domain.RoomKindPaid,
		Participants: []domain.IdentityID{request.requester, request.provider},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.rooms.CreateRoom(room); err != nil {
		// The countdown must not run against a room that failed to open.
		s.billing.End(roomID)
		s.release(request)
		return "", err
	}

	s.mu.Lock()
	request.state = RequestActive
	s.mu.Unlock()

	seconds := request.minutes * 60
	s.events <- event.ChatStarted{RoomID: roomID, To: request.requester, AuthorizedSeconds: seconds}
	s.events <- event.ChatStarted{RoomID: roomID, To: request.provider, AuthorizedSeconds: seconds}
	s.log.Info("Paid chat activated",
		"room", roomID, "requester", request.requester, "provider", request.provider,
		"seconds", seconds)
	return roomID, nil
}

// release returns a claimed request to awaiting_payment so the provider
// can try again after a failed activation.
func (s *PaymentService) release(request *chatRequest) {
	s.mu.Lock()
	request.state = RequestAwaitingPayment
	s.mu.Unlock()
}

// ExtendChat follows the same authorize-then-apply discipline as the
// initial start. An authorization that lands after expiry is rejected by
// the billing engine; the caller must issue a fresh request.
func (s *PaymentService) ExtendChat(ctx context.Context, identity domain.IdentityID, cmd domain.ExtendChatCommand) (int, error) {
	if cmd.Minutes <= 0 {
		return 0, fmt.Errorf("minutes must be positive")
	}
	room, found, err := s.rooms.GetRoom(cmd.Room)
	if err != nil {
		return 0, err
	}
	if !found || room.Kind != domain.RoomKindPaid {
		return 0, fmt.Errorf("%w: %s", errs.ErrRoomNotFound, cmd.Room)
	}
	if !room.HasParticipant(identity) {
		return 0, fmt.Errorf("%w: %s in %s", errs.ErrNotAMember, identity, cmd.Room)
	}

	auth, err := s.authorize(ctx, contract.AuthorizationRequest{
		Kind:     domain.AuthorizationExtension,
		Identity: identity,
		Room:     cmd.Room,
		Seconds:  cmd.Minutes * 60,
	})
	if err != nil {
		return 0, err
	}
	return s.billing.Extend(auth)
}

// authorize retries transient gateway failures with a doubling backoff.
// A definite refusal (ErrPaymentNotAuthorized) is never retried; exhausted
// retries surface as ErrUpstreamUnavailable.
func (s *PaymentService) authorize(ctx context.Context, req contract.AuthorizationRequest) (domain.PaymentAuthorization, error) {
	backoff := s.backoff
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		auth, err := s.gateway.Authorize(ctx, req)
		if err == nil {
			return auth, nil
		}
		if errors.Is(err, errs.ErrPaymentNotAuthorized) {
			return domain.PaymentAuthorization{}, err
		}
		lastErr = err
		s.log.Warn("Payment gateway unreachable, retrying",
			"attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return domain.PaymentAuthorization{}, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return domain.PaymentAuthorization{}, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, lastErr)
}
