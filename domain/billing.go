package domain

import "time"

type BillingState string

// Sessions are born active: the pre-payment phase is tracked by the
// payment request state machine, not by the countdown.
const (
	BillingActive   BillingState = "active"
	BillingExpiring BillingState = "expiring"
	BillingExpired  BillingState = "expired"
	BillingEnded    BillingState = "ended"
)

// Terminal reports whether no further countdown activity is possible.
func (s BillingState) Terminal() bool {
	return s == BillingExpired || s == BillingEnded
}

type AuthorizationKind string

const (
	AuthorizationInitial   AuthorizationKind = "initial"
	AuthorizationExtension AuthorizationKind = "extension"
)

// PaymentAuthorization is a fact asserted by the payment collaborator:
// "identity X authorized N seconds for room R at rate Y". It is the only
// input the billing engine trusts to start or extend a countdown.
type PaymentAuthorization struct {
	ID                string
	Kind              AuthorizationKind
	Identity          IdentityID
	Room              RoomID
	AuthorizedSeconds int
	RateCentsPerMin   int
	AmountCents       int
	IssuedAt          time.Time
}
