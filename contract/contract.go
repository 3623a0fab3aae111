//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself. Supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one consumer of domain events: a connection's outbound
// channel, a projection, an index, a metrics collector.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IPresence tracks the canonical connection and status per identity.
type IPresence interface {
	Register(identity domain.IdentityID, conn domain.ConnectionID, sink EventSink)
	Unregister(identity domain.IdentityID, conn domain.ConnectionID) bool
	SetStatus(identity domain.IdentityID, status domain.PresenceStatus, custom string) bool
	Refresh(identity domain.IdentityID, conn domain.ConnectionID)
	IsOnline(identity domain.IdentityID) bool
	Lookup(identity domain.IdentityID) (domain.PresenceRecord, bool)
	SinkOf(identity domain.IdentityID) (EventSink, bool)
}

// IMembership tracks which identities are joined to which rooms.
type IMembership interface {
	Join(room domain.RoomID, identity domain.IdentityID) []domain.IdentityID
	Leave(room domain.RoomID, identity domain.IdentityID) bool
	MembersOf(room domain.RoomID) []domain.IdentityID
	IsMember(room domain.RoomID, identity domain.IdentityID) bool
	RoomsOf(identity domain.IdentityID) []domain.RoomID
}

// IBilling owns one countdown per active paid chat.
type IBilling interface {
	StartSession(auth domain.PaymentAuthorization) error
	Extend(auth domain.PaymentAuthorization) (remaining int, err error)
	RemainingSeconds(room domain.RoomID) int
	State(room domain.RoomID) (domain.BillingState, bool)
	End(room domain.RoomID) bool
}

type IMessageRepository interface {
	StoreMessage(message domain.Message) (seq uint64, err error)
	GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
}

type IRoomRepository interface {
	CreateRoom(room domain.ChatRoom) error
	GetRoom(id domain.RoomID) (domain.ChatRoom, bool, error)
	SetLastMessage(id domain.RoomID, messageID string, at time.Time) error
}

type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          domain.Role
	VoiceEnabled  bool
	VideoEnabled  bool
	RatePerMinute int
}

type IUserRepository interface {
	CreateUser(email, passwordHash string, role domain.Role) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	CallKindEnabled(id string, kind domain.CallKind) (bool, error)
}

type IReceiptRepository interface {
	MarkRead(room domain.RoomID, messageID string, reader domain.IdentityID, at time.Time) error
	ReadBy(room domain.RoomID, messageID string) ([]domain.IdentityID, error)
}

type IMediaRepository interface {
	StoreMedia(id string, mime string, data []byte) error
	GetMedia(id string) (mime string, data []byte, err error)
}

// AuthorizationRequest is what the broker asks the payment collaborator for.
type AuthorizationRequest struct {
	Kind            domain.AuthorizationKind
	Identity        domain.IdentityID
	Room            domain.RoomID
	Seconds         int
	RateCentsPerMin int
}

// IPaymentGateway is the external payment collaborator. Authorize blocks and
// may be retried by the caller; a definite refusal must wrap
// errors.ErrPaymentNotAuthorized so retries stop.
type IPaymentGateway interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (domain.PaymentAuthorization, error)
}

// ISearch indexes relayed messages and answers room-scoped queries.
type ISearch interface {
	Index(msg domain.Message, language string) error
	Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]domain.Message, error)
}
