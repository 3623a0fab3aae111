package runtime

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
	errs "chat-broker/errors"
)

type billingSession struct {
	room     domain.RoomID
	state    domain.BillingState
	deadline time.Time
	// version guards the timer against racing a concurrent extend or a
	// replacement session for the same room: a fire carrying a stale
	// version is discarded.
	version uint64
	warned  bool
	timer   *time.Timer
}

// Billing owns one countdown per active paid chat. A single rescheduled
// timer per room fires the expiring warning and then the expiry itself;
// there is no polling, so idle sessions cost nothing and the expiry event
// fires exactly once with no drift.
type Billing struct {
	mu         sync.Mutex
	log        *slog.Logger
	sessions   map[domain.RoomID]*billingSession
	versions   map[domain.RoomID]uint64
	events     chan<- event.DomainEvent
	warnWindow time.Duration
}

func NewBilling(log *slog.Logger, events chan<- event.DomainEvent, warnWindow time.Duration) *Billing {
	return &Billing{
		log:        log,
		sessions:   make(map[domain.RoomID]*billingSession),
		versions:   make(map[domain.RoomID]uint64),
		events:     events,
		warnWindow: warnWindow,
	}
}

// nextVersion hands out per-room timer versions from a counter that
// survives session replacement. A timer callback from a session that has
// since been ended and replaced carries an older version than anything the
// new session will ever schedule, so it can never pass the stale-fire
// guard. Callers hold b.mu.
func (b *Billing) nextVersion(room domain.RoomID) uint64 {
	b.versions[room]++
	return b.versions[room]
}

// StartSession turns a fresh initial authorization into an active countdown.
// A non-terminal session for the same room is a conflict; an expired or
// ended one is replaced, because an authorization arriving after expiry
// starts a new session rather than reviving the old one.
func (b *Billing) StartSession(auth domain.PaymentAuthorization) error {
	if auth.Kind != domain.AuthorizationInitial || auth.AuthorizedSeconds <= 0 {
		return fmt.Errorf("%w: initial authorization required", errs.ErrPaymentNotAuthorized)
	}

	b.mu.Lock()
	if existing, ok := b.sessions[auth.Room]; ok && !existing.state.Terminal() {
		b.mu.Unlock()
		return fmt.Errorf("%w: room %s", errs.ErrDuplicateSession, auth.Room)
	}

	s := &billingSession{
		room:     auth.Room,
		state:    domain.BillingActive,
		deadline: time.Now().Add(time.Duration(auth.AuthorizedSeconds) * time.Second),
		version:  b.nextVersion(auth.Room),
	}
	b.sessions[auth.Room] = s
	b.schedule(s)
	b.mu.Unlock()

	b.log.Info("Billing session started",
		"room", auth.Room, "seconds", auth.AuthorizedSeconds)
	return nil
}

// Extend applies an extension authorization strictly before the deadline.
// Once the timer has fired, the session is expired and the extension is
// rejected; the caller must start a new session.
func (b *Billing) Extend(auth domain.PaymentAuthorization) (int, error) {
	if auth.Kind != domain.AuthorizationExtension || auth.AuthorizedSeconds <= 0 {
		return 0, fmt.Errorf("%w: extension authorization required", errs.ErrPaymentNotAuthorized)
	}

	b.mu.Lock()
	s, ok := b.sessions[auth.Room]
	if !ok || s.state.Terminal() {
		b.mu.Unlock()
		return 0, fmt.Errorf("%w: room %s", errs.ErrSessionExpired, auth.Room)
	}

	s.deadline = s.deadline.Add(time.Duration(auth.AuthorizedSeconds) * time.Second)
	s.version = b.nextVersion(auth.Room)
	remaining := secondsUntil(s.deadline)
	if time.Until(s.deadline) > b.warnWindow {
		s.state = domain.BillingActive
		s.warned = false
	}
	b.schedule(s)
	b.mu.Unlock()

	b.events <- event.ChatExtended{
		RoomID:            auth.Room,
		AdditionalSeconds: auth.AuthorizedSeconds,
		RemainingSeconds:  remaining,
	}
	return remaining, nil
}

// RemainingSeconds is the non-blocking read the relay consults before
// admitting a paid message. Absent and terminal sessions read as zero.
func (b *Billing) RemainingSeconds(room domain.RoomID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[room]
	if !ok || s.state.Terminal() {
		return 0
	}
	return secondsUntil(s.deadline)
}

func (b *Billing) State(room domain.RoomID) (domain.BillingState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[room]
	if !ok {
		return "", false
	}
	return s.state, true
}

// End is the explicit termination path: cancels the timer and frees the
// countdown. Reports false if no live session existed.
func (b *Billing) End(room domain.RoomID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[room]
	if !ok || s.state.Terminal() {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = domain.BillingEnded
	return true
}

// schedule arms the session's single timer for its next fire: the warning
// point if it hasn't passed yet, otherwise the deadline. Callers hold b.mu.
func (b *Billing) schedule(s *billingSession) {
	next := time.Until(s.deadline)
	if !s.warned && next > b.warnWindow {
		next -= b.warnWindow
	} else {
		s.warned = true
	}
	version := s.version
	room := s.room
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(next, func() { b.fire(room, version) })
}

func (b *Billing) fire(room domain.RoomID, version uint64) {
	b.mu.Lock()
	s, ok := b.sessions[room]
	if !ok || s.state.Terminal() || s.version != version {
		// An extend or end won the race; this fire is stale.
		b.mu.Unlock()
		return
	}

	if !s.warned {
		s.warned = true
		s.state = domain.BillingExpiring
		remaining := secondsUntil(s.deadline)
		s.timer = time.AfterFunc(time.Until(s.deadline), func() { b.fire(room, version) })
		b.mu.Unlock()

		b.events <- event.ChatTimeWarning{RoomID: room, RemainingSeconds: remaining}
		return
	}

	// The in-memory transition commits before any side effect so a slow
	// consumer can never lose the expiry.
	s.state = domain.BillingExpired
	s.timer = nil
	b.mu.Unlock()

	b.log.Info("Billing session expired", "room", room)
	b.events <- event.ChatTimeEnded{RoomID: room}
}

func secondsUntil(deadline time.Time) int {
	remaining := int(math.Ceil(time.Until(deadline).Seconds()))
	if remaining < 0 {
		return 0
	}
	return remaining
}
