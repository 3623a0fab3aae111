// Package payment holds the broker-side view of the external payment
// collaborator. The broker never computes charges itself; it only asks for
// authorizations and applies whatever comes back.
package payment

import (
	"context"
	"log/slog"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/errors"

	"github.com/google/uuid"
)

// DevGateway authorizes everything locally. It stands in for the real
// payment collaborator in development and tests.
type DevGateway struct {
	log *slog.Logger

	// FailNext makes the next call fail with a transient error, to
	// exercise the retry path.
	FailNext int
	// RefuseAll makes every call a definite refusal.
	RefuseAll bool
}

func NewDevGateway(log *slog.Logger) *DevGateway {
	return &DevGateway{log: log}
}

func (g *DevGateway) Authorize(_ context.Context, req contract.AuthorizationRequest) (domain.PaymentAuthorization, error) {
	if g.RefuseAll {
		return domain.PaymentAuthorization{}, errors.ErrPaymentNotAuthorized
	}
	if g.FailNext > 0 {
		g.FailNext--
		return domain.PaymentAuthorization{}, errors.ErrUpstreamUnavailable
	}
	auth := domain.PaymentAuthorization{
		ID:                uuid.NewString(),
		Kind:              req.Kind,
		Identity:          req.Identity,
		Room:              req.Room,
		AuthorizedSeconds: req.Seconds,
		RateCentsPerMin:   req.RateCentsPerMin,
		AmountCents:       req.RateCentsPerMin * req.Seconds / 60,
		IssuedAt:          time.Now().UTC(),
	}
	g.log.Debug("Authorized payment",
		"authorization", auth.ID, "identity", req.Identity, "room", req.Room,
		"seconds", req.Seconds, "amount_cents", auth.AmountCents)
	return auth, nil
}
