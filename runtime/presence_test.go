package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type testSink struct{}

func (s testSink) Consume(_ context.Context, _ event.DomainEvent) error { return nil }

func TestPresence_Register_MakesIdentityOnline(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	presence := NewPresence(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	identity := domain.IdentityID(uuid.NewString())
	conn := domain.ConnectionID(uuid.NewString())

	// Given nobody is registered
	req.False(presence.IsOnline(identity))

	// When the identity registers
	presence.Register(identity, conn, testSink{})

	// Then it is online with a resolvable sink
	req.True(presence.IsOnline(identity))
	sink, ok := presence.SinkOf(identity)
	req.True(ok)
	req.Equal(testSink{}, sink)

	// And a presence update was emitted
	evt := <-events
	update, ok := evt.(event.PresenceUpdate)
	req.True(ok)
	req.Equal(identity, update.Identity)
	req.Equal(domain.StatusOnline, update.Status)
}

func TestPresence_Reconnect_LastWriterWins(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	presence := NewPresence(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	identity := domain.IdentityID(uuid.NewString())
	oldConn := domain.ConnectionID("old")
	newConn := domain.ConnectionID("new")

	// Given an identity connected twice, the second replacing the first
	presence.Register(identity, oldConn, testSink{})
	presence.Register(identity, newConn, testSink{})

	// When the stale connection's disconnect finally lands
	undone := presence.Unregister(identity, oldConn)

	// Then it is ignored and the identity stays online
	req.False(undone)
	req.True(presence.IsOnline(identity))

	// And unregistering the canonical connection flips it offline
	req.True(presence.Unregister(identity, newConn))
	req.False(presence.IsOnline(identity))
	_, ok := presence.SinkOf(identity)
	req.False(ok)
}

func TestPresence_SetStatus(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	presence := NewPresence(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	identity := domain.IdentityID(uuid.NewString())

	// Given an unknown identity, a status update reports false
	req.False(presence.SetStatus(identity, domain.StatusCustom, "in a call"))

	// When the identity registers and sets a custom status
	presence.Register(identity, "c1", testSink{})
	req.True(presence.SetStatus(identity, domain.StatusCustom, "in a call"))

	// Then the record carries it
	record, ok := presence.Lookup(identity)
	req.True(ok)
	req.Equal(domain.StatusCustom, record.Status)
	req.Equal("in a call", record.CustomStatus)
}

func TestPresence_Sweep_ExpiresStaleRecords(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	presence := NewPresence(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	stale := domain.IdentityID("stale")
	fresh := domain.IdentityID("fresh")

	presence.Register(stale, "c1", testSink{})
	presence.Register(fresh, "c2", testSink{})

	// Given the stale identity stops refreshing
	time.Sleep(30 * time.Millisecond)
	presence.Refresh(fresh, "c2")

	// When the sweeper runs with a tiny TTL
	swept := presence.Sweep(20 * time.Millisecond)

	// Then only the stale identity is expired
	req.Equal([]domain.IdentityID{stale}, swept)
	req.False(presence.IsOnline(stale))
	req.True(presence.IsOnline(fresh))
}

func TestPresence_Refresh_IgnoresStaleConnection(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 10)
	presence := NewPresence(logs.GetLoggerFromLevel(slog.LevelDebug), events)
	identity := domain.IdentityID(uuid.NewString())

	presence.Register(identity, "new", testSink{})
	before, _ := presence.Lookup(identity)

	// When a refresh arrives from a connection that is no longer canonical
	time.Sleep(5 * time.Millisecond)
	presence.Refresh(identity, "old")

	// Then LastSeen is unchanged
	after, _ := presence.Lookup(identity)
	req.Equal(before.LastSeen, after.LastSeen)
}
