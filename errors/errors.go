package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthentication       = fmt.Errorf("authentication failed")
	ErrNotAMember           = fmt.Errorf("sender is not a member of the room")
	ErrTimeExpired          = fmt.Errorf("paid chat time is exhausted")
	ErrDuplicateSession     = fmt.Errorf("a billing session already exists for the room")
	ErrSessionExpired       = fmt.Errorf("billing session already expired")
	ErrRecipientUnavailable = fmt.Errorf("recipient is unavailable")
	ErrPaymentNotAuthorized = fmt.Errorf("payment was not authorized")
	ErrUpstreamUnavailable  = fmt.Errorf("upstream collaborator unavailable")

	ErrRoomNotFound     = fmt.Errorf("room not found")
	ErrCallNotFound     = fmt.Errorf("call not found")
	ErrInvalidCallState = fmt.Errorf("operation not valid in current call state")
	ErrRequestNotFound  = fmt.Errorf("chat request not found")
	ErrUnknownEvent     = fmt.Errorf("unknown event type")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrWorkerPanic      = fmt.Errorf("worker panic")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnsupportedMedia   = fmt.Errorf("unsupported media type")
)

// Kind returns the machine-readable kind carried by error notifications
// pushed to a connection. Wrapped errors resolve to their sentinel kind.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "AuthenticationError"
	case errors.Is(err, ErrNotAMember):
		return "NotAMemberError"
	case errors.Is(err, ErrTimeExpired):
		return "TimeExpiredError"
	case errors.Is(err, ErrDuplicateSession):
		return "DuplicateSessionError"
	case errors.Is(err, ErrSessionExpired):
		return "SessionExpiredError"
	case errors.Is(err, ErrRecipientUnavailable):
		return "RecipientUnavailableError"
	case errors.Is(err, ErrPaymentNotAuthorized):
		return "PaymentNotAuthorizedError"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailableError"
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFoundError"
	case errors.Is(err, ErrCallNotFound), errors.Is(err, ErrInvalidCallState):
		return "CallStateError"
	case errors.Is(err, ErrRequestNotFound):
		return "RequestNotFoundError"
	default:
		return "InternalError"
	}
}

// MapToStatus converts domain errors into HTTP status codes at the
// transport boundary. The WebSocket path uses Kind instead.
func MapToStatus(err error) int {
	switch {
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAMember):
		return http.StatusForbidden
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCallNotFound), errors.Is(err, ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateSession), errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrTimeExpired), errors.Is(err, ErrSessionExpired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrUnsupportedMedia):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
